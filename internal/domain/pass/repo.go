package pass

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

type Repo interface {
	List(ctx context.Context, uid string) ([]Pass, error)
	// Update loads uid's wallet, applies fn and writes the resulting
	// changes atomically.
	Update(ctx context.Context, uid string, fn func(*Wallet) error) (*Wallet, error)
}

type FirestoreRepo struct {
	fs *firestore.Client
}

func NewFirestoreRepo(fs *firestore.Client) *FirestoreRepo {
	return &FirestoreRepo{fs: fs}
}

func (r *FirestoreRepo) passes(uid string) *firestore.CollectionRef {
	return r.fs.Collection("users").Doc(uid).Collection("passes")
}

func (r *FirestoreRepo) List(ctx context.Context, uid string) ([]Pass, error) {
	docs, err := r.passes(uid).OrderBy("createdAt", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list passes: %w", err)
	}
	return decodeAll(docs)
}

func (r *FirestoreRepo) Update(ctx context.Context, uid string, fn func(*Wallet) error) (*Wallet, error) {
	col := r.passes(uid)
	var out *Wallet
	err := r.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docs, err := tx.Documents(col).GetAll()
		if err != nil {
			return fmt.Errorf("failed to load passes: %w", err)
		}
		current, err := decodeAll(docs)
		if err != nil {
			return err
		}
		w := NewWallet(current)
		if err := fn(w); err != nil {
			return err
		}
		changes := w.Changes()
		for _, p := range changes.Put {
			if err := tx.Set(col.Doc(p.ID), p); err != nil {
				return err
			}
		}
		for _, id := range changes.Delete {
			if err := tx.Delete(col.Doc(id)); err != nil {
				return err
			}
		}
		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeAll(docs []*firestore.DocumentSnapshot) ([]Pass, error) {
	out := make([]Pass, 0, len(docs))
	for _, doc := range docs {
		var p Pass
		if err := doc.DataTo(&p); err != nil {
			return nil, fmt.Errorf("failed to decode pass %s: %w", doc.Ref.ID, err)
		}
		p.ID = doc.Ref.ID
		out = append(out, p)
	}
	return out, nil
}
