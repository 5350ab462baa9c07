package activity

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MutateFunc changes it in place and returns the matching store updates.
// Returning an error aborts without writing.
type MutateFunc func(it *Item) ([]firestore.Update, error)

type Repo interface {
	Create(ctx context.Context, it Item) (Item, error)
	Get(ctx context.Context, id string) (*Item, error)
	Recent(ctx context.Context, limit int) ([]Item, error)
	ByKind(ctx context.Context, kind Kind, limit int) ([]Item, error)
	// Featured lists curated items of kind. Events must start after now and
	// come soonest first; other kinds come newest first.
	Featured(ctx context.Context, kind Kind, now time.Time, limit int) ([]Item, error)
	ByAuthor(ctx context.Context, uid string, limit int) ([]Item, error)
	Delete(ctx context.Context, id string) error
	Mutate(ctx context.Context, id string, fn MutateFunc) (*Item, error)
}

type FirestoreRepo struct {
	fs *firestore.Client
}

func NewFirestoreRepo(fs *firestore.Client) *FirestoreRepo {
	return &FirestoreRepo{fs: fs}
}

func (r *FirestoreRepo) col() *firestore.CollectionRef {
	return r.fs.Collection("activities")
}

func (r *FirestoreRepo) Create(ctx context.Context, it Item) (Item, error) {
	ref := r.col().NewDoc()
	if _, err := ref.Create(ctx, toDocument(it)); err != nil {
		return Item{}, fmt.Errorf("failed to create activity: %w", err)
	}
	it.ID = ref.ID
	return it, nil
}

func (r *FirestoreRepo) Get(ctx context.Context, id string) (*Item, error) {
	doc, err := r.col().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: activity %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	it, err := Decode(doc)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *FirestoreRepo) Recent(ctx context.Context, limit int) ([]Item, error) {
	return r.list(ctx, r.col().OrderBy("createdAt", firestore.Desc).Limit(limit))
}

func (r *FirestoreRepo) ByKind(ctx context.Context, kind Kind, limit int) ([]Item, error) {
	return r.list(ctx, r.col().Where("type", "==", string(kind)).OrderBy("createdAt", firestore.Desc).Limit(limit))
}

func (r *FirestoreRepo) Featured(ctx context.Context, kind Kind, now time.Time, limit int) ([]Item, error) {
	q := r.col().Where("type", "==", string(kind)).Where("isFeatured", "==", true)
	if kind == KindEvent {
		q = q.Where("eventDate", ">", now).OrderBy("eventDate", firestore.Asc)
	} else {
		q = q.OrderBy("createdAt", firestore.Desc)
	}
	return r.list(ctx, q.Limit(limit))
}

func (r *FirestoreRepo) ByAuthor(ctx context.Context, uid string, limit int) ([]Item, error) {
	return r.list(ctx, r.col().Where("author.id", "==", uid).OrderBy("createdAt", firestore.Desc).Limit(limit))
}

func (r *FirestoreRepo) list(ctx context.Context, q firestore.Query) ([]Item, error) {
	it := q.Documents(ctx)
	defer it.Stop()

	out := []Item{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list activities: %w", err)
		}
		item, err := Decode(doc)
		if err != nil {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *FirestoreRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.col().Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	return nil
}

func (r *FirestoreRepo) Mutate(ctx context.Context, id string, fn MutateFunc) (*Item, error) {
	ref := r.col().Doc(id)
	var out Item
	err := r.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: activity %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		item, err := Decode(doc)
		if err != nil {
			return err
		}
		updates, err := fn(&item)
		if err != nil {
			return err
		}
		out = item
		if len(updates) == 0 {
			return nil
		}
		return tx.Update(ref, updates)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Decode reads an activity document. Unknown types decode to KindUnknown.
func Decode(doc *firestore.DocumentSnapshot) (Item, error) {
	var d document
	if err := doc.DataTo(&d); err != nil {
		return Item{}, fmt.Errorf("failed to decode activity %s: %w", doc.Ref.ID, err)
	}
	return fromDocument(doc.Ref.ID, d), nil
}
