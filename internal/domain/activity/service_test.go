package activity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"cragline/backend/internal/authctx"
	"cragline/backend/internal/domain/gym"
	"cragline/backend/internal/domain/notifications"
	"cragline/backend/internal/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu    sync.Mutex
	items map[string]Item
	seq   int
}

func newMemRepo() *memRepo { return &memRepo{items: map[string]Item{}} }

func (r *memRepo) Create(_ context.Context, it Item) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	it.ID = fmt.Sprintf("a%d", r.seq)
	r.items[it.ID] = it.Clone()
	return it, nil
}

func (r *memRepo) Get(_ context.Context, id string) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: activity %s", ErrNotFound, id)
	}
	c := it.Clone()
	return &c, nil
}

func (r *memRepo) sorted(keep func(Item) bool, limit int) []Item {
	out := []Item{}
	for _, it := range r.items {
		if keep(it) {
			out = append(out, it.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *memRepo) Recent(_ context.Context, limit int) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(Item) bool { return true }, limit), nil
}

func (r *memRepo) ByKind(_ context.Context, kind Kind, limit int) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(it Item) bool { return it.Kind == kind }, limit), nil
}

func (r *memRepo) Featured(_ context.Context, kind Kind, now time.Time, limit int) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(func(it Item) bool {
		if it.Kind != kind || !it.IsFeatured {
			return false
		}
		return kind != KindEvent || (it.Event != nil && it.Event.EventDate.After(now))
	}, len(r.items))
	if kind == KindEvent {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Event.EventDate.Before(out[j].Event.EventDate) })
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) ByAuthor(_ context.Context, uid string, limit int) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(it Item) bool { return it.Author.ID == uid }, limit), nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *memRepo) Mutate(_ context.Context, id string, fn MutateFunc) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: activity %s", ErrNotFound, id)
	}
	next := cur.Clone()
	if _, err := fn(&next); err != nil {
		return nil, err
	}
	r.items[id] = next.Clone()
	return &next, nil
}

type fakeUsers struct {
	byID      map[string]user.User
	postCount map[string]int
}

func (f *fakeUsers) Get(_ context.Context, uid string) (*user.User, error) {
	u, ok := f.byID[uid]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", user.ErrNotFound, uid)
	}
	return &u, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*user.User, error) {
	for _, u := range f.byID {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: username %s", user.ErrNotFound, username)
}

func (f *fakeUsers) IncrementPostCount(_ context.Context, uid string, delta int) error {
	f.postCount[uid] += delta
	return nil
}

type fakeGyms struct {
	gyms   map[string]gym.Gym
	admins map[string]bool
}

func (f *fakeGyms) Get(_ context.Context, gymID string) (*gym.Gym, error) {
	g, ok := f.gyms[gymID]
	if !ok {
		return nil, fmt.Errorf("%w: gym %s", gym.ErrNotFound, gymID)
	}
	return &g, nil
}

func (f *fakeGyms) IsAdministrator(_ context.Context, gymID, uid string) (bool, error) {
	return f.admins[gymID+"/"+uid], nil
}

type recordingNotifier struct{ got []notifications.CreateInput }

func (n *recordingNotifier) Notify(_ context.Context, in notifications.CreateInput) {
	n.got = append(n.got, in)
}

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	repo     *memRepo
	users    *fakeUsers
	notifier *recordingNotifier
}

func newFixture() fixture {
	repo := newMemRepo()
	users := &fakeUsers{
		byID: map[string]user.User{
			"u1": {ID: "u1", Name: "Shauna", Username: "shauna"},
			"u2": {ID: "u2", Name: "Magnus", Username: "magnus"},
			"u3": {ID: "u3", Name: "Brooke", Username: "brooke"},
		},
		postCount: map[string]int{},
	}
	gyms := &fakeGyms{
		gyms:   map[string]gym.Gym{"g1": {ID: "g1", Name: "The Arch", Location: "London"}},
		admins: map[string]bool{"g1/u3": true},
	}
	notifier := &recordingNotifier{}
	svc := NewService(repo, users, gyms, nil)
	svc.SetNotifier(notifier)
	svc.now = func() time.Time { return now }
	return fixture{svc: svc, repo: repo, users: users, notifier: notifier}
}

func session(uid string) authctx.Session { return authctx.Session{UID: uid} }

func TestCreateBasicNotifiesMentions(t *testing.T) {
	f := newFixture()

	it, err := f.svc.Create(context.Background(), session("u1"), CreateInput{
		Kind:    KindBasic,
		Content: "Sent it with @magnus and @nobody, thanks @Shauna",
	})
	require.NoError(t, err)

	assert.Equal(t, KindBasic, it.Kind)
	assert.Equal(t, "Shauna", it.Author.Name)
	assert.Equal(t, 1, f.users.postCount["u1"])

	// self mention is dropped downstream by the notifications service
	require.Len(t, f.notifier.got, 2)
	assert.Equal(t, "u2", f.notifier.got[0].TargetUID)
	assert.Equal(t, notifications.TypeMention, f.notifier.got[0].Type)
	assert.Equal(t, it.ID, f.notifier.got[0].RelatedItemID)
}

func TestCreateValidatesPerKind(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, session("u1"), CreateInput{Kind: KindBasic})
	assert.True(t, IsErrBadRequest(err))

	_, err = f.svc.Create(ctx, session("u1"), CreateInput{Kind: KindBeta, Content: "drop knee"})
	assert.True(t, IsErrBadRequest(err))

	_, err = f.svc.Create(ctx, session("u1"), CreateInput{Kind: KindEvent, Title: "Comp", Location: "Leeds"})
	assert.True(t, IsErrBadRequest(err))

	_, err = f.svc.Create(ctx, session("u1"), CreateInput{Kind: "poll"})
	assert.True(t, IsErrBadRequest(err))

	_, err = f.svc.Create(ctx, authctx.Session{}, CreateInput{Kind: KindBasic, Content: "x"})
	assert.True(t, IsErrUnauthorized(err))
}

func TestCreateBetaEmbedsGym(t *testing.T) {
	f := newFixture()
	it, err := f.svc.Create(context.Background(), session("u1"), CreateInput{
		Kind:    KindBeta,
		Content: "Use the left arete",
		GymID:   "g1",
	})
	require.NoError(t, err)
	require.NotNil(t, it.Beta)
	assert.Equal(t, gym.Ref{ID: "g1", Name: "The Arch", Location: "London"}, it.Beta.Gym)
}

func TestSetFeaturedRequiresCurator(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	it, err := f.svc.Create(ctx, session("u1"), CreateInput{Kind: KindBeta, Content: "crimp", GymID: "g1"})
	require.NoError(t, err)

	_, err = f.svc.SetFeatured(ctx, session("u2"), it.ID, true)
	assert.True(t, IsErrUnauthorized(err))

	got, err := f.svc.SetFeatured(ctx, session("u3"), it.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsFeatured)

	claims := authctx.Session{UID: "u2", Claims: map[string]any{"gyms": map[string]any{"g1": "manager"}}}
	got, err = f.svc.SetFeatured(ctx, claims, it.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsFeatured)

	basic, err := f.svc.Create(ctx, session("u1"), CreateInput{Kind: KindBasic, Content: "hello"})
	require.NoError(t, err)
	admin := authctx.Session{UID: "u2", Claims: map[string]any{"admin": true}}
	got, err = f.svc.SetFeatured(ctx, admin, basic.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsFeatured)
}

func TestFeaturedListsCuratedOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	plain, err := f.svc.Create(ctx, session("u1"), CreateInput{Kind: KindBeta, Content: "sloper", GymID: "g1"})
	require.NoError(t, err)
	curated, err := f.svc.Create(ctx, session("u1"), CreateInput{Kind: KindBeta, Content: "heel hook", GymID: "g1"})
	require.NoError(t, err)
	_, err = f.svc.SetFeatured(ctx, session("u3"), curated.ID, true)
	require.NoError(t, err)

	got, err := f.svc.Featured(ctx, KindBeta, now, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, curated.ID, got[0].ID)
	assert.NotEqual(t, plain.ID, got[0].ID)

	_, err = f.svc.Featured(ctx, Kind("bogus"), now, 10)
	assert.True(t, IsErrBadRequest(err))
}

func TestRegisterForEventBounded(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	at := now.Add(48 * time.Hour)
	ev, err := f.svc.Create(ctx, session("u1"), CreateInput{
		Kind:         KindEvent,
		Title:        "Bouldering league",
		EventDate:    &at,
		Location:     "Leeds",
		MaxAttendees: 1,
	})
	require.NoError(t, err)

	got, err := f.svc.RegisterForEvent(ctx, session("u2"), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Event.Registered)

	got, err = f.svc.RegisterForEvent(ctx, session("u2"), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Event.Registered)

	_, err = f.svc.RegisterForEvent(ctx, session("u3"), ev.ID)
	assert.True(t, IsErrConflict(err))
}

func TestGroupVisitLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	at := now.Add(24 * time.Hour)
	v, err := f.svc.Create(ctx, session("u1"), CreateInput{
		Kind:            KindGroupVisit,
		GymID:           "g1",
		VisitDate:       &at,
		DurationMinutes: 120,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, v.Visit.Attendees)

	got, err := f.svc.JoinVisit(ctx, session("u2"), v.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, got.Visit.Attendees)

	_, err = f.svc.SetVisitStatus(ctx, session("u2"), v.ID, VisitOngoing)
	assert.True(t, IsErrUnauthorized(err))

	_, err = f.svc.SetVisitStatus(ctx, session("u1"), v.ID, VisitCompleted)
	assert.True(t, IsErrConflict(err))

	_, err = f.svc.SetVisitStatus(ctx, session("u1"), v.ID, VisitOngoing)
	require.NoError(t, err)
	got, err = f.svc.SetVisitStatus(ctx, session("u1"), v.ID, VisitCompleted)
	require.NoError(t, err)
	assert.Equal(t, VisitCompleted, got.Visit.Status)

	_, err = f.svc.JoinVisit(ctx, session("u3"), v.ID)
	assert.True(t, IsErrConflict(err))

	_, err = f.svc.LeaveVisit(ctx, authctx.Session{}, v.ID)
	assert.True(t, IsErrUnauthorized(err))

	got, err = f.svc.LeaveVisit(ctx, session("u2"), v.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, got.Visit.Attendees)
}

func TestDeleteOnlyByAuthor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	it, err := f.svc.Create(ctx, session("u1"), CreateInput{Kind: KindBasic, Content: "bye"})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, session("u2"), it.ID)
	assert.True(t, IsErrUnauthorized(err))

	require.NoError(t, f.svc.Delete(ctx, session("u1"), it.ID))
	assert.Equal(t, 0, f.users.postCount["u1"])

	_, err = f.svc.Get(ctx, it.ID)
	assert.True(t, IsErrNotFound(err))
}
