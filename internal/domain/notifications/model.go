package notifications

import (
	"strings"
	"time"
)

type Type string

const (
	TypeLike    Type = "like"
	TypeComment Type = "comment"
	TypeFollow  Type = "follow"
	TypeMention Type = "mention"
	TypeSystem  Type = "system"
)

func (t Type) Valid() bool {
	switch t {
	case TypeLike, TypeComment, TypeFollow, TypeMention, TypeSystem:
		return true
	}
	return false
}

// Notification is stored under users/{uid}/notifications/{id}.
type Notification struct {
	ID            string    `firestore:"-" json:"id"`
	UserID        string    `firestore:"userId" json:"userId"`
	Title         string    `firestore:"title" json:"title"`
	Message       string    `firestore:"message" json:"message"`
	Timestamp     time.Time `firestore:"timestamp" json:"timestamp"`
	IsRead        bool      `firestore:"isRead" json:"isRead"`
	Type          Type      `firestore:"type" json:"type"`
	RelatedItemID string    `firestore:"relatedItemId,omitempty" json:"relatedItemId,omitempty"`
	SenderID      string    `firestore:"senderId,omitempty" json:"senderId,omitempty"`
}

// Equal compares identity only.
func (n Notification) Equal(o Notification) bool { return n.ID == o.ID }

type CreateInput struct {
	TargetUID     string `json:"targetUid"`
	SenderUID     string `json:"-"`
	Title         string `json:"title"`
	Message       string `json:"message,omitempty"`
	Type          Type   `json:"type,omitempty"`
	RelatedItemID string `json:"relatedItemId,omitempty"`
}

func (in *CreateInput) Trim() {
	in.TargetUID = strings.TrimSpace(in.TargetUID)
	in.SenderUID = strings.TrimSpace(in.SenderUID)
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	in.RelatedItemID = strings.TrimSpace(in.RelatedItemID)
}

type ListResult struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
}

// CountUnread is the single source for unread counters.
func CountUnread(ns []Notification) int {
	n := 0
	for _, x := range ns {
		if !x.IsRead {
			n++
		}
	}
	return n
}
