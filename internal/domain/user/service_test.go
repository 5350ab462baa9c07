package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"cragline/backend/internal/domain/notifications"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu      sync.Mutex
	users   map[string]User
	order   []string
	rels    map[string]Relationship
	updates []map[string]any
}

func newMemRepo(users ...User) *memRepo {
	r := &memRepo{users: map[string]User{}, rels: map[string]Relationship{}}
	for _, u := range users {
		u.UsernameLower = strings.ToLower(u.Username)
		r.users[u.ID] = u
		r.order = append(r.order, u.ID)
	}
	return r
}

func (r *memRepo) Get(_ context.Context, uid string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[uid]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, uid)
	}
	return &u, nil
}

func (r *memRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.UsernameLower == username {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: username %s", ErrNotFound, username)
}

func (r *memRepo) Ensure(ctx context.Context, uid, email string) (*User, error) {
	r.mu.Lock()
	if _, ok := r.users[uid]; !ok {
		r.users[uid] = User{ID: uid, Email: email}
		r.order = append(r.order, uid)
	}
	r.mu.Unlock()
	return r.Get(ctx, uid)
}

func (r *memRepo) Update(_ context.Context, uid string, updates map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, updates)
	u := r.users[uid]
	if v, ok := updates["name"].(string); ok {
		u.Name = v
	}
	if v, ok := updates["username"].(string); ok {
		u.Username = v
		u.UsernameLower = strings.ToLower(v)
	}
	if v, ok := updates["bio"].(string); ok {
		u.Bio = v
	}
	if v, ok := updates["imageUrl"].(string); ok {
		u.ImageURL = v
	}
	r.users[uid] = u
	return nil
}

func (r *memRepo) List(_ context.Context, limit int) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []User{}
	for _, id := range r.order {
		out = append(out, r.users[id])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memRepo) IncrementPostCount(_ context.Context, uid string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[uid]
	u.PostCount += delta
	r.users[uid] = u
	return nil
}

func (r *memRepo) CreateRelationship(_ context.Context, rel Relationship) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rels[rel.ID]; ok {
		return false, nil
	}
	r.rels[rel.ID] = rel
	return true, nil
}

func (r *memRepo) DeleteRelationship(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rels[id]
	delete(r.rels, id)
	return ok, nil
}

func (r *memRepo) RelationshipExists(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rels[id]
	return ok, nil
}

func (r *memRepo) Followers(_ context.Context, uid string, _ int) ([]Relationship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Relationship{}
	for _, rel := range r.rels {
		if rel.FollowingID == uid {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (r *memRepo) Following(_ context.Context, uid string, _ int) ([]Relationship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Relationship{}
	for _, rel := range r.rels {
		if rel.FollowerID == uid {
			out = append(out, rel)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	got []notifications.CreateInput
}

func (n *recordingNotifier) Notify(_ context.Context, in notifications.CreateInput) {
	n.got = append(n.got, in)
}

type stubAuth struct {
	calls int
	err   error
}

func (a *stubAuth) UpdateUser(_ context.Context, _ string, _ *auth.UserToUpdate) (*auth.UserRecord, error) {
	a.calls++
	return nil, a.err
}

func climbers() *memRepo {
	return newMemRepo(
		User{ID: "u1", Name: "Alex Honnold", Username: "alex"},
		User{ID: "u2", Name: "Janja Garnbret", Username: "janja"},
		User{ID: "u3", Name: "Adam Ondra", Username: "adam.o"},
	)
}

func TestRelationshipIDIsUnambiguous(t *testing.T) {
	assert.NotEqual(t, RelationshipID("a_b", "c"), RelationshipID("a", "b_c"))
	assert.NotEqual(t, RelationshipID("u1", "u2"), RelationshipID("u2", "u1"))
}

func TestFollowCreatesSingleEdge(t *testing.T) {
	repo := climbers()
	notifier := &recordingNotifier{}
	svc := NewService(repo, nil)
	svc.SetNotifier(notifier)
	ctx := context.Background()

	rel, err := svc.Follow(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, "2_u1_u2", rel.ID)

	_, err = svc.Follow(ctx, "u1", "u2")
	require.NoError(t, err)

	assert.Len(t, repo.rels, 1)
	require.Len(t, notifier.got, 1)
	assert.Equal(t, notifications.TypeFollow, notifier.got[0].Type)
	assert.Equal(t, "u2", notifier.got[0].TargetUID)
	assert.Equal(t, "Alex Honnold started following you", notifier.got[0].Title)
}

func TestFollowRejectsSelfAndUnknown(t *testing.T) {
	svc := NewService(climbers(), nil)
	ctx := context.Background()

	_, err := svc.Follow(ctx, "u1", "u1")
	assert.True(t, IsErrBadRequest(err))

	_, err = svc.Follow(ctx, "u1", "ghost")
	assert.True(t, IsErrNotFound(err))
}

func TestUnfollow(t *testing.T) {
	repo := climbers()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Follow(ctx, "u1", "u2")
	require.NoError(t, err)
	require.NoError(t, svc.Unfollow(ctx, "u1", "u2"))

	ok, err := svc.IsFollowing(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Unfollow(ctx, "u1", "u2"))
}

func TestSearchMatchesNameOrUsername(t *testing.T) {
	svc := NewService(climbers(), nil)
	ctx := context.Background()

	got, err := svc.Search(ctx, "GARN", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u2", got[0].ID)

	got, err = svc.Search(ctx, "ada", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u3", got[0].ID)

	got, err = svc.Search(ctx, "a", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestUpdateProfile(t *testing.T) {
	repo := climbers()
	authStub := &stubAuth{err: errors.New("auth down")}
	svc := NewService(repo, nil)
	svc.SetAuthClient(authStub)

	name := "  Alex H. "
	handle := "@Alex_H"
	u, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileInput{Name: &name, Username: &handle})
	require.NoError(t, err)

	assert.Equal(t, "Alex H.", u.Name)
	assert.Equal(t, "Alex_H", u.Username)
	assert.Equal(t, 1, authStub.calls)
	assert.Equal(t, "alex h.", repo.updates[0]["nameLower"])
}

func TestUpdateProfileRejectsTakenUsername(t *testing.T) {
	svc := NewService(climbers(), nil)

	handle := "JANJA"
	_, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileInput{Username: &handle})
	assert.True(t, IsErrConflict(err))

	_, err = svc.UpdateProfile(context.Background(), "u1", UpdateProfileInput{})
	assert.True(t, IsErrBadRequest(err))
}
