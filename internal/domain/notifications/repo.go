package notifications

import (
	"context"
	"fmt"
	"time"

	"cragline/backend/internal/listen"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Repo interface {
	Create(ctx context.Context, n Notification) (Notification, error)
	List(ctx context.Context, uid string, unreadOnly bool, limit int) ([]Notification, error)
	UnreadCount(ctx context.Context, uid string) (int, error)
	MarkRead(ctx context.Context, uid, id string) error
	MarkAllRead(ctx context.Context, uid string) (int, error)
	Delete(ctx context.Context, uid, id string) error
	Watch(ctx context.Context, uid string, limit int, fn func([]Notification), onErr func(error)) *listen.Subscription
}

// Firestore batches are capped at 500 writes; commit early.
const batchSize = 450

type FirestoreRepo struct {
	client *firestore.Client
}

func NewFirestoreRepo(client *firestore.Client) *FirestoreRepo {
	return &FirestoreRepo{client: client}
}

func (r *FirestoreRepo) col(uid string) *firestore.CollectionRef {
	return r.client.Collection("users").Doc(uid).Collection("notifications")
}

func (r *FirestoreRepo) Create(ctx context.Context, n Notification) (Notification, error) {
	ref := r.col(n.UserID).NewDoc()
	if _, err := ref.Create(ctx, n); err != nil {
		return Notification{}, fmt.Errorf("failed to create notification: %w", err)
	}
	n.ID = ref.ID
	return n, nil
}

func (r *FirestoreRepo) List(ctx context.Context, uid string, unreadOnly bool, limit int) ([]Notification, error) {
	q := r.col(uid).Query
	if unreadOnly {
		q = q.Where("isRead", "==", false)
	}
	it := q.OrderBy("timestamp", firestore.Desc).Limit(limit).Documents(ctx)
	defer it.Stop()

	out := []Notification{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get notifications: %w", err)
		}
		n, err := decode(doc)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *FirestoreRepo) UnreadCount(ctx context.Context, uid string) (int, error) {
	q := r.col(uid).Where("isRead", "==", false)
	res, err := q.NewAggregationQuery().WithCount("n").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	v, ok := res["n"]
	if !ok {
		return 0, nil
	}
	if c, ok := v.(interface{ GetIntegerValue() int64 }); ok {
		return int(c.GetIntegerValue()), nil
	}
	return 0, nil
}

func (r *FirestoreRepo) MarkRead(ctx context.Context, uid, id string) error {
	_, err := r.col(uid).Doc(id).Update(ctx, []firestore.Update{
		{Path: "isRead", Value: true},
		{Path: "readAt", Value: time.Now().UTC()},
	})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: notification %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

func (r *FirestoreRepo) MarkAllRead(ctx context.Context, uid string) (int, error) {
	it := r.col(uid).Where("isRead", "==", false).Documents(ctx)
	defer it.Stop()

	now := time.Now().UTC()
	batch := r.client.Batch()
	count := 0
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to get notifications: %w", err)
		}
		batch.Set(doc.Ref, map[string]interface{}{
			"isRead": true,
			"readAt": now,
		}, firestore.MergeAll)
		count++
		if count%batchSize == 0 {
			if _, err := batch.Commit(ctx); err != nil {
				return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
			}
			batch = r.client.Batch()
		}
	}
	if count%batchSize != 0 {
		if _, err := batch.Commit(ctx); err != nil {
			return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
		}
	}
	return count, nil
}

func (r *FirestoreRepo) Delete(ctx context.Context, uid, id string) error {
	if _, err := r.col(uid).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

func (r *FirestoreRepo) Watch(ctx context.Context, uid string, limit int, fn func([]Notification), onErr func(error)) *listen.Subscription {
	q := r.col(uid).OrderBy("timestamp", firestore.Desc).Limit(limit)
	return listen.Query(ctx, q, decode, fn, onErr)
}

func decode(doc *firestore.DocumentSnapshot) (Notification, error) {
	var n Notification
	if err := doc.DataTo(&n); err != nil {
		return Notification{}, err
	}
	n.ID = doc.Ref.ID
	return n, nil
}
