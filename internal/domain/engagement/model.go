package engagement

import (
	"time"

	"cragline/backend/internal/domain/activity"
)

// Like is stored at likes/{userId_itemId}.
type Like struct {
	UserID    string    `firestore:"userId" json:"userId"`
	ItemID    string    `firestore:"itemId" json:"itemId"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

func LikeID(userID, itemID string) string {
	return userID + "_" + itemID
}

// Comment is stored at activities/{itemId}/comments/{id}.
type Comment struct {
	ID        string          `firestore:"-" json:"id"`
	ItemID    string          `firestore:"itemId" json:"itemId"`
	Author    activity.Author `firestore:"author" json:"author"`
	Text      string          `firestore:"text" json:"text"`
	CreatedAt time.Time       `firestore:"createdAt" json:"createdAt"`
}

const maxCommentRunes = 1000
