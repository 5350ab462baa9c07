package gym

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Repo interface {
	CreateGym(ctx context.Context, g Gym, owner Administrator) (*Gym, error)
	GetGym(ctx context.Context, gymID string) (*Gym, error)
	SearchByNamePrefix(ctx context.Context, q string, limit int) ([]Gym, error)

	PutAdministrator(ctx context.Context, a Administrator) error
	GetAdministrator(ctx context.Context, gymID, uid string) (*Administrator, error)
	AdministratorsForUser(ctx context.Context, uid string) ([]Administrator, error)

	PutFavorite(ctx context.Context, f Favorite) (*Favorite, error)
	DeleteFavorite(ctx context.Context, id string) error
	FavoriteExists(ctx context.Context, id string) (bool, error)
	ListFavorites(ctx context.Context, uid string) ([]Favorite, error)
}

type FirestoreRepo struct {
	fs *firestore.Client
}

func NewFirestoreRepo(fs *firestore.Client) *FirestoreRepo {
	return &FirestoreRepo{fs: fs}
}

func (r *FirestoreRepo) gyms() *firestore.CollectionRef {
	return r.fs.Collection("gyms")
}

func (r *FirestoreRepo) admins(gymID string) *firestore.CollectionRef {
	return r.gyms().Doc(gymID).Collection("administrators")
}

func (r *FirestoreRepo) favorites() *firestore.CollectionRef {
	return r.fs.Collection("gymFavorites")
}

// CreateGym writes the gym and its owner in one batch.
func (r *FirestoreRepo) CreateGym(ctx context.Context, g Gym, owner Administrator) (*Gym, error) {
	ref := r.gyms().NewDoc()
	g.ID = ref.ID
	owner.GymID = ref.ID

	batch := r.fs.Batch()
	batch.Create(ref, g)
	batch.Set(r.admins(ref.ID).Doc(owner.UserID), owner)
	if _, err := batch.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to create gym: %w", err)
	}
	return &g, nil
}

func (r *FirestoreRepo) GetGym(ctx context.Context, gymID string) (*Gym, error) {
	doc, err := r.gyms().Doc(gymID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: gym %s", ErrNotFound, gymID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gym: %w", err)
	}
	var g Gym
	if err := doc.DataTo(&g); err != nil {
		return nil, fmt.Errorf("failed to decode gym: %w", err)
	}
	if g.ID == "" {
		g.ID = gymID
	}
	return &g, nil
}

func (r *FirestoreRepo) SearchByNamePrefix(ctx context.Context, q string, limit int) ([]Gym, error) {
	q = strings.TrimSpace(strings.ToLower(q))

	var it *firestore.DocumentIterator
	if q == "" {
		it = r.gyms().OrderBy("createdAt", firestore.Desc).Limit(limit).Documents(ctx)
	} else {
		hi := q + "\uf8ff"
		it = r.gyms().Where("nameLower", ">=", q).
			Where("nameLower", "<", hi).
			OrderBy("nameLower", firestore.Asc).
			Limit(limit).
			Documents(ctx)
	}
	defer it.Stop()

	out := []Gym{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to search gyms: %w", err)
		}
		var g Gym
		if err := doc.DataTo(&g); err != nil {
			continue
		}
		if g.ID == "" {
			g.ID = doc.Ref.ID
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *FirestoreRepo) PutAdministrator(ctx context.Context, a Administrator) error {
	if _, err := r.admins(a.GymID).Doc(a.UserID).Set(ctx, a, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to save administrator: %w", err)
	}
	return nil
}

func (r *FirestoreRepo) GetAdministrator(ctx context.Context, gymID, uid string) (*Administrator, error) {
	doc, err := r.admins(gymID).Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: administrator", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get administrator: %w", err)
	}
	var a Administrator
	if err := doc.DataTo(&a); err != nil {
		return nil, fmt.Errorf("failed to decode administrator: %w", err)
	}
	return &a, nil
}

// AdministratorsForUser spans every gym through the administrators
// collection group.
func (r *FirestoreRepo) AdministratorsForUser(ctx context.Context, uid string) ([]Administrator, error) {
	it := r.fs.CollectionGroup("administrators").Where("userId", "==", uid).Documents(ctx)
	defer it.Stop()

	out := []Administrator{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list administrator roles: %w", err)
		}
		var a Administrator
		if err := doc.DataTo(&a); err != nil {
			continue
		}
		if a.GymID == "" && doc.Ref.Parent != nil && doc.Ref.Parent.Parent != nil {
			a.GymID = doc.Ref.Parent.Parent.ID
		}
		out = append(out, a)
	}
	return out, nil
}

// PutFavorite is idempotent: a second call returns the existing document.
func (r *FirestoreRepo) PutFavorite(ctx context.Context, f Favorite) (*Favorite, error) {
	ref := r.favorites().Doc(f.ID)
	_, err := ref.Create(ctx, f)
	if status.Code(err) == codes.AlreadyExists {
		doc, err := ref.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get favorite: %w", err)
		}
		var existing Favorite
		if err := doc.DataTo(&existing); err != nil {
			return nil, fmt.Errorf("failed to decode favorite: %w", err)
		}
		existing.ID = ref.ID
		return &existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save favorite: %w", err)
	}
	return &f, nil
}

func (r *FirestoreRepo) DeleteFavorite(ctx context.Context, id string) error {
	if _, err := r.favorites().Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	return nil
}

func (r *FirestoreRepo) FavoriteExists(ctx context.Context, id string) (bool, error) {
	doc, err := r.favorites().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get favorite: %w", err)
	}
	return doc.Exists(), nil
}

func (r *FirestoreRepo) ListFavorites(ctx context.Context, uid string) ([]Favorite, error) {
	it := r.favorites().Where("userId", "==", uid).OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer it.Stop()

	out := []Favorite{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list favorites: %w", err)
		}
		var f Favorite
		if err := doc.DataTo(&f); err != nil {
			continue
		}
		f.ID = doc.Ref.ID
		out = append(out, f)
	}
	return out, nil
}
