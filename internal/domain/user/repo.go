package user

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Repo interface {
	Get(ctx context.Context, uid string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Ensure(ctx context.Context, uid, email string) (*User, error)
	Update(ctx context.Context, uid string, updates map[string]any) error
	List(ctx context.Context, limit int) ([]User, error)
	IncrementPostCount(ctx context.Context, uid string, delta int) error

	CreateRelationship(ctx context.Context, rel Relationship) (created bool, err error)
	DeleteRelationship(ctx context.Context, id string) (deleted bool, err error)
	RelationshipExists(ctx context.Context, id string) (bool, error)
	Followers(ctx context.Context, uid string, limit int) ([]Relationship, error)
	Following(ctx context.Context, uid string, limit int) ([]Relationship, error)
}

type FirestoreRepo struct {
	fs *firestore.Client
}

func NewFirestoreRepo(fs *firestore.Client) *FirestoreRepo {
	return &FirestoreRepo{fs: fs}
}

func (r *FirestoreRepo) users() *firestore.CollectionRef {
	return r.fs.Collection("users")
}

func (r *FirestoreRepo) relationships() *firestore.CollectionRef {
	return r.fs.Collection("userRelationships")
}

func (r *FirestoreRepo) Get(ctx context.Context, uid string) (*User, error) {
	doc, err := r.users().Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, uid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return decodeUser(doc)
}

func (r *FirestoreRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	it := r.users().Where("usernameLower", "==", username).Limit(1).Documents(ctx)
	defer it.Stop()
	doc, err := it.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("%w: username %s", ErrNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return decodeUser(doc)
}

// Ensure creates a minimal user document on first sign-in and returns the
// stored user either way.
func (r *FirestoreRepo) Ensure(ctx context.Context, uid, email string) (*User, error) {
	ref := r.users().Doc(uid)
	now := time.Now().UTC()
	_, err := ref.Create(ctx, map[string]any{
		"email":       email,
		"name":        "",
		"nameLower":   "",
		"postCount":   0,
		"loggedHours": 0,
		"createdAt":   now,
		"updatedAt":   now,
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return r.Get(ctx, uid)
}

func (r *FirestoreRepo) Update(ctx context.Context, uid string, updates map[string]any) error {
	if _, err := r.users().Doc(uid).Set(ctx, updates, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *FirestoreRepo) List(ctx context.Context, limit int) ([]User, error) {
	it := r.users().OrderBy("createdAt", firestore.Desc).Limit(limit).Documents(ctx)
	defer it.Stop()

	out := []User{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		u, err := decodeUser(doc)
		if err != nil {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (r *FirestoreRepo) IncrementPostCount(ctx context.Context, uid string, delta int) error {
	_, err := r.users().Doc(uid).Set(ctx, map[string]any{
		"postCount": firestore.Increment(delta),
		"updatedAt": time.Now().UTC(),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update post count: %w", err)
	}
	return nil
}

func (r *FirestoreRepo) CreateRelationship(ctx context.Context, rel Relationship) (bool, error) {
	_, err := r.relationships().Doc(rel.ID).Create(ctx, rel)
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create relationship: %w", err)
	}
	return true, nil
}

func (r *FirestoreRepo) DeleteRelationship(ctx context.Context, id string) (bool, error) {
	_, err := r.relationships().Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete relationship: %w", err)
	}
	return true, nil
}

func (r *FirestoreRepo) RelationshipExists(ctx context.Context, id string) (bool, error) {
	doc, err := r.relationships().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get relationship: %w", err)
	}
	return doc.Exists(), nil
}

func (r *FirestoreRepo) Followers(ctx context.Context, uid string, limit int) ([]Relationship, error) {
	return r.edges(ctx, r.relationships().Where("followingId", "==", uid), limit)
}

func (r *FirestoreRepo) Following(ctx context.Context, uid string, limit int) ([]Relationship, error) {
	return r.edges(ctx, r.relationships().Where("followerId", "==", uid), limit)
}

func (r *FirestoreRepo) edges(ctx context.Context, q firestore.Query, limit int) ([]Relationship, error) {
	it := q.OrderBy("createdAt", firestore.Desc).Limit(limit).Documents(ctx)
	defer it.Stop()

	out := []Relationship{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list relationships: %w", err)
		}
		var rel Relationship
		if err := doc.DataTo(&rel); err != nil {
			continue
		}
		rel.ID = doc.Ref.ID
		out = append(out, rel)
	}
	return out, nil
}

func decodeUser(doc *firestore.DocumentSnapshot) (*User, error) {
	var u User
	if err := doc.DataTo(&u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	u.ID = doc.Ref.ID
	return &u, nil
}
