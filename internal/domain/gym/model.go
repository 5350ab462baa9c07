package gym

import (
	"strings"
	"time"
)

type ClimbingType string

const (
	Bouldering ClimbingType = "bouldering"
	Lead       ClimbingType = "lead"
	TopRope    ClimbingType = "topRope"
)

func (c ClimbingType) Valid() bool {
	switch c {
	case Bouldering, Lead, TopRope:
		return true
	}
	return false
}

type Gym struct {
	ID            string         `firestore:"id" json:"id"`
	Name          string         `firestore:"name" json:"name"`
	NameLower     string         `firestore:"nameLower" json:"-"`
	Slug          string         `firestore:"slug" json:"slug"`
	Location      string         `firestore:"location" json:"location"`
	ClimbingTypes []ClimbingType `firestore:"climbingTypes" json:"climbingTypes"`
	Amenities     []string       `firestore:"amenities,omitempty" json:"amenities,omitempty"`
	Events        []string       `firestore:"events,omitempty" json:"events,omitempty"`
	ImageURL      string         `firestore:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	CreatedBy     string         `firestore:"createdBy" json:"createdBy"`
	CreatedAt     time.Time      `firestore:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time      `firestore:"updatedAt" json:"updatedAt"`
}

// Ref is the gym snapshot embedded in activity items.
type Ref struct {
	ID       string `firestore:"id" json:"id"`
	Name     string `firestore:"name" json:"name"`
	Location string `firestore:"location,omitempty" json:"location,omitempty"`
}

func (g Gym) Ref() Ref {
	return Ref{ID: g.ID, Name: g.Name, Location: g.Location}
}

type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager:
		return true
	}
	return false
}

// CanManageAdmins reports whether the role may appoint other administrators.
func (r Role) CanManageAdmins() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Administrator is stored at gyms/{gymId}/administrators/{userId}.
type Administrator struct {
	UserID    string    `firestore:"userId" json:"userId"`
	GymID     string    `firestore:"gymId" json:"gymId"`
	Role      Role      `firestore:"role" json:"role"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

type Favorite struct {
	ID        string    `firestore:"-" json:"id"`
	UserID    string    `firestore:"userId" json:"userId"`
	GymID     string    `firestore:"gymId" json:"gymId"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

// FavoriteID is a pure function of the pair, so favoriting twice lands on
// the same document.
func FavoriteID(userID, gymID string) string {
	return userID + gymID
}

type CreateGymInput struct {
	Name          string         `json:"name"`
	Slug          string         `json:"slug,omitempty"`
	Location      string         `json:"location"`
	ClimbingTypes []ClimbingType `json:"climbingTypes"`
	Amenities     []string       `json:"amenities,omitempty"`
	ImageURL      string         `json:"imageUrl,omitempty"`
}

func (in *CreateGymInput) Trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Location = strings.TrimSpace(in.Location)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	amenities := in.Amenities[:0]
	for _, a := range in.Amenities {
		if a = strings.TrimSpace(a); a != "" {
			amenities = append(amenities, a)
		}
	}
	in.Amenities = amenities
}

type AddAdministratorInput struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

func (in *AddAdministratorInput) Trim() {
	in.UserID = strings.TrimSpace(in.UserID)
	in.Role = Role(strings.TrimSpace(string(in.Role)))
}
