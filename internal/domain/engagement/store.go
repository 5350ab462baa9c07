package engagement

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store is the durable side of engagement. Each call touches the like or
// comment document and the item counter in one transaction.
type Store interface {
	Like(ctx context.Context, uid, itemID string) (created bool, err error)
	Unlike(ctx context.Context, uid, itemID string) (removed bool, err error)
	Liked(ctx context.Context, uid string, itemIDs []string) ([]string, error)
	AddComment(ctx context.Context, c Comment) (Comment, error)
	DeleteComment(ctx context.Context, itemID, commentID string) error
	GetComment(ctx context.Context, itemID, commentID string) (*Comment, error)
	Comments(ctx context.Context, itemID string, limit int) ([]Comment, error)
}

type FirestoreStore struct {
	fs *firestore.Client
}

func NewFirestoreStore(fs *firestore.Client) *FirestoreStore {
	return &FirestoreStore{fs: fs}
}

func (s *FirestoreStore) likes() *firestore.CollectionRef {
	return s.fs.Collection("likes")
}

func (s *FirestoreStore) item(itemID string) *firestore.DocumentRef {
	return s.fs.Collection("activities").Doc(itemID)
}

func (s *FirestoreStore) comments(itemID string) *firestore.CollectionRef {
	return s.item(itemID).Collection("comments")
}

func (s *FirestoreStore) Like(ctx context.Context, uid, itemID string) (bool, error) {
	likeRef := s.likes().Doc(LikeID(uid, itemID))
	itemRef := s.item(itemID)

	created := false
	err := s.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		created = false
		if _, err := tx.Get(itemRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("%w: activity %s", ErrNotFound, itemID)
			}
			return err
		}
		_, err := tx.Get(likeRef)
		if err == nil {
			return nil
		}
		if status.Code(err) != codes.NotFound {
			return err
		}
		if err := tx.Create(likeRef, Like{UserID: uid, ItemID: itemID, CreatedAt: time.Now().UTC()}); err != nil {
			return err
		}
		created = true
		return tx.Update(itemRef, []firestore.Update{{Path: "likeCount", Value: firestore.Increment(1)}})
	})
	if err != nil {
		return false, fmt.Errorf("failed to like: %w", err)
	}
	return created, nil
}

// Unlike deletes the like edge and lowers likeCount, never below zero.
func (s *FirestoreStore) Unlike(ctx context.Context, uid, itemID string) (bool, error) {
	likeRef := s.likes().Doc(LikeID(uid, itemID))
	itemRef := s.item(itemID)

	removed := false
	err := s.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		removed = false
		itemDoc, err := tx.Get(itemRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("%w: activity %s", ErrNotFound, itemID)
			}
			return err
		}
		if _, err := tx.Get(likeRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}
		count, _ := itemDoc.DataAt("likeCount")
		next := toInt(count) - 1
		if next < 0 {
			next = 0
		}
		if err := tx.Delete(likeRef); err != nil {
			return err
		}
		removed = true
		return tx.Update(itemRef, []firestore.Update{{Path: "likeCount", Value: next}})
	})
	if err != nil {
		return false, fmt.Errorf("failed to unlike: %w", err)
	}
	return removed, nil
}

// Liked returns the subset of itemIDs uid has liked.
func (s *FirestoreStore) Liked(ctx context.Context, uid string, itemIDs []string) ([]string, error) {
	if len(itemIDs) == 0 {
		return []string{}, nil
	}
	refs := make([]*firestore.DocumentRef, len(itemIDs))
	for i, id := range itemIDs {
		refs[i] = s.likes().Doc(LikeID(uid, id))
	}
	docs, err := s.fs.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to load likes: %w", err)
	}
	out := []string{}
	for i, d := range docs {
		if d.Exists() {
			out = append(out, itemIDs[i])
		}
	}
	return out, nil
}

func (s *FirestoreStore) AddComment(ctx context.Context, c Comment) (Comment, error) {
	itemRef := s.item(c.ItemID)
	ref := s.comments(c.ItemID).NewDoc()
	err := s.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(itemRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("%w: activity %s", ErrNotFound, c.ItemID)
			}
			return err
		}
		if err := tx.Create(ref, c); err != nil {
			return err
		}
		return tx.Update(itemRef, []firestore.Update{{Path: "commentCount", Value: firestore.Increment(1)}})
	})
	if err != nil {
		return Comment{}, fmt.Errorf("failed to add comment: %w", err)
	}
	c.ID = ref.ID
	return c, nil
}

func (s *FirestoreStore) GetComment(ctx context.Context, itemID, commentID string) (*Comment, error) {
	doc, err := s.comments(itemID).Doc(commentID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: comment %s", ErrNotFound, commentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	var c Comment
	if err := doc.DataTo(&c); err != nil {
		return nil, fmt.Errorf("failed to decode comment: %w", err)
	}
	c.ID = doc.Ref.ID
	return &c, nil
}

func (s *FirestoreStore) DeleteComment(ctx context.Context, itemID, commentID string) error {
	itemRef := s.item(itemID)
	ref := s.comments(itemID).Doc(commentID)
	err := s.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		itemDoc, err := tx.Get(itemRef)
		if err != nil {
			return err
		}
		if _, err := tx.Get(ref); err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}
		count, _ := itemDoc.DataAt("commentCount")
		next := toInt(count) - 1
		if next < 0 {
			next = 0
		}
		if err := tx.Delete(ref); err != nil {
			return err
		}
		return tx.Update(itemRef, []firestore.Update{{Path: "commentCount", Value: next}})
	})
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Comments(ctx context.Context, itemID string, limit int) ([]Comment, error) {
	it := s.comments(itemID).OrderBy("createdAt", firestore.Asc).Limit(limit).Documents(ctx)
	defer it.Stop()

	out := []Comment{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list comments: %w", err)
		}
		var c Comment
		if err := doc.DataTo(&c); err != nil {
			continue
		}
		c.ID = doc.Ref.ID
		out = append(out, c)
	}
	return out, nil
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}
