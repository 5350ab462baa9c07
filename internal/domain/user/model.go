package user

import (
	"strconv"
	"strings"
	"time"
)

// User is the root identity. Everything except the counters changes only
// through UpdateProfile.
type User struct {
	ID            string    `firestore:"-" json:"id"`
	Email         string    `firestore:"email" json:"email"`
	Name          string    `firestore:"name" json:"name"`
	NameLower     string    `firestore:"nameLower" json:"-"`
	Username      string    `firestore:"username" json:"username"`
	UsernameLower string    `firestore:"usernameLower" json:"-"`
	Bio           string    `firestore:"bio,omitempty" json:"bio,omitempty"`
	PostCount     int       `firestore:"postCount" json:"postCount"`
	LoggedHours   float64   `firestore:"loggedHours" json:"loggedHours"`
	ImageURL      string    `firestore:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	CreatedAt     time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// DisplayName prefers the full name and falls back to the handle.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// Relationship is a directed follow edge.
type Relationship struct {
	ID          string    `firestore:"-" json:"id"`
	FollowerID  string    `firestore:"followerId" json:"followerId"`
	FollowingID string    `firestore:"followingId" json:"followingId"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`
}

// RelationshipID is the document id of an edge, one per ordered pair. The
// follower's length leads the id so uids containing "_" cannot collide.
func RelationshipID(followerID, followingID string) string {
	return strconv.Itoa(len(followerID)) + "_" + followerID + "_" + followingID
}

type UpdateProfileInput struct {
	Name     *string `json:"name,omitempty"`
	Username *string `json:"username,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

func (in *UpdateProfileInput) Trim() {
	for _, p := range []*string{in.Name, in.Username, in.Bio, in.ImageURL} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	if in.Username != nil {
		*in.Username = strings.TrimPrefix(*in.Username, "@")
	}
}

func (in UpdateProfileInput) Empty() bool {
	return in.Name == nil && in.Username == nil && in.Bio == nil && in.ImageURL == nil
}

