package pass

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cragline/backend/internal/authctx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu     sync.Mutex
	byUser map[string]map[string]Pass
	err    error
	writes int
}

func newMemRepo() *memRepo {
	return &memRepo{byUser: map[string]map[string]Pass{}}
}

func (r *memRepo) List(_ context.Context, uid string) ([]Pass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Pass{}
	for _, p := range r.byUser[uid] {
		out = append(out, p)
	}
	return out, nil
}

func (r *memRepo) Update(_ context.Context, uid string, fn func(*Wallet) error) (*Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	current := []Pass{}
	for _, p := range r.byUser[uid] {
		current = append(current, p)
	}
	w := NewWallet(current)
	if err := fn(w); err != nil {
		return nil, err
	}
	if r.byUser[uid] == nil {
		r.byUser[uid] = map[string]Pass{}
	}
	c := w.Changes()
	for _, p := range c.Put {
		r.byUser[uid][p.ID] = p
		r.writes++
	}
	for _, id := range c.Delete {
		delete(r.byUser[uid], id)
		r.writes++
	}
	return w, nil
}

var climber = authctx.Session{UID: "u1"}

func newTestService(repo Repo) *Service {
	svc := NewService(repo, nil)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("p%d", n)
	}
	svc.now = func() time.Time { return t0.Add(time.Duration(n) * time.Hour) }
	return svc
}

func TestServiceAddAndPrimary(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	a, err := svc.Add(ctx, climber, AddInput{Title: " Boulder Barn ", Payload: "111", Symbology: SymbologyQR})
	require.NoError(t, err)
	assert.True(t, a.IsPrimary)
	assert.Equal(t, "Boulder Barn", a.Title)

	b, err := svc.Add(ctx, climber, AddInput{Title: "Lead Cave", Payload: "222", Symbology: SymbologyCode128})
	require.NoError(t, err)
	assert.False(t, b.IsPrimary)

	passes, err := svc.SetPrimary(ctx, climber, b.ID)
	require.NoError(t, err)
	require.Len(t, passes, 2)
	assert.False(t, passes[0].IsPrimary)
	assert.True(t, passes[1].IsPrimary)

	stored, err := svc.List(ctx, climber)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, primaryIDs(stored))
}

func primaryIDs(ps []Pass) []string {
	out := []string{}
	for _, p := range ps {
		if p.IsPrimary {
			out = append(out, p.ID)
		}
	}
	return out
}

func TestServiceAddDuplicate(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Add(ctx, climber, AddInput{Title: "A", Payload: "111", Symbology: SymbologyQR})
	require.NoError(t, err)
	_, err = svc.Add(ctx, climber, AddInput{Title: "B", Payload: "111", Symbology: SymbologyQR})
	assert.True(t, IsErrDuplicatePass(err))

	// other users may hold the same card
	_, err = svc.Add(ctx, authctx.Session{UID: "u2"}, AddInput{Title: "B", Payload: "111", Symbology: SymbologyQR})
	assert.NoError(t, err)
}

func TestServiceAddRejectsInvalid(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	_, err := svc.Add(context.Background(), climber, AddInput{Title: "  ", Payload: "1", Symbology: SymbologyQR})
	assert.True(t, IsErrBadRequest(err))
	_, err = svc.Add(context.Background(), authctx.Session{}, AddInput{Title: "A", Payload: "1", Symbology: SymbologyQR})
	assert.True(t, IsErrUnauthorized(err))
	assert.Zero(t, repo.writes)
}

func TestServiceImportScanPermission(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.ImportScan(ctx, climber, ImportInput{
		AddInput:      AddInput{Title: "A", Payload: "1", Symbology: SymbologyQR},
		ScannerStatus: ScannerNoAccess,
	})
	pe, ok := AsPermissionError(err)
	require.True(t, ok)
	assert.Equal(t, ScannerNoAccess, pe.Status)
	assert.Zero(t, repo.writes)

	p, err := svc.ImportScan(ctx, climber, ImportInput{
		AddInput:      AddInput{Title: "A", Payload: "1", Symbology: SymbologyQR},
		ScannerStatus: ScannerAvailable,
	})
	require.NoError(t, err)
	assert.True(t, p.IsPrimary)
}

func TestServiceRemovePromotes(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	a, err := svc.Add(ctx, climber, AddInput{Title: "A", Payload: "1", Symbology: SymbologyQR})
	require.NoError(t, err)
	b, err := svc.Add(ctx, climber, AddInput{Title: "B", Payload: "2", Symbology: SymbologyQR})
	require.NoError(t, err)

	passes, err := svc.Remove(ctx, climber, a.ID)
	require.NoError(t, err)
	require.Len(t, passes, 1)
	assert.Equal(t, b.ID, passes[0].ID)
	assert.True(t, passes[0].IsPrimary)

	_, err = svc.Remove(ctx, climber, a.ID)
	assert.True(t, IsErrNotFound(err))
}

func TestServiceStoreFailure(t *testing.T) {
	repo := newMemRepo()
	repo.err = errors.New("unavailable")
	svc := newTestService(repo)

	_, err := svc.Add(context.Background(), climber, AddInput{Title: "A", Payload: "1", Symbology: SymbologyQR})
	assert.EqualError(t, err, "unavailable")
}
