package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cragline/backend/internal/authctx"
	"cragline/backend/internal/domain/user"
	"cragline/backend/internal/listen"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu       sync.Mutex
	convs    map[string]Conversation
	msgs     map[string][]Message
	seq      int
	appends  int
	marks    int
	writeErr error

	convWatch func([]Conversation)
	msgWatch  func([]Message)
}

func newMemRepo() *memRepo {
	return &memRepo{convs: map[string]Conversation{}, msgs: map[string][]Message{}}
}

func (r *memRepo) GetConversation(_ context.Context, id string) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return nil, fmt.Errorf("%w: conversation %s", ErrNotFound, id)
	}
	return &c, nil
}

func (r *memRepo) FindDirect(_ context.Context, pairKey string) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.convs {
		if c.PairKey == pairKey {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: no conversation", ErrNotFound)
}

func (r *memRepo) CreateConversation(_ context.Context, c Conversation) (Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.ID = fmt.Sprintf("c%d", r.seq)
	r.convs[c.ID] = c
	return c, nil
}

func (r *memRepo) ListConversations(_ context.Context, uid string, _ int) ([]Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Conversation{}
	for _, c := range r.convs {
		if c.HasParticipant(uid) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memRepo) ListMessages(_ context.Context, conversationID string, _ int) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message{}, r.msgs[conversationID]...), nil
}

func (r *memRepo) AppendMessage(_ context.Context, conv Conversation, msg Message) (Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return Message{}, r.writeErr
	}
	r.appends++
	r.seq++
	msg.ID = fmt.Sprintf("m%d", r.seq)
	r.msgs[conv.ID] = append(r.msgs[conv.ID], msg)
	r.convs[conv.ID] = r.convs[conv.ID].Apply(msg)
	return msg, nil
}

func (r *memRepo) MarkRead(_ context.Context, conversationID, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	r.marks++
	r.convs[conversationID] = r.convs[conversationID].MarkedRead(uid)
	for i, m := range r.msgs[conversationID] {
		if m.SenderID != uid {
			r.msgs[conversationID][i].ReadBy[uid] = true
		}
	}
	return nil
}

func (r *memRepo) WatchConversations(ctx context.Context, _ string, _ int, fn func([]Conversation), _ func(error)) *listen.Subscription {
	r.mu.Lock()
	r.convWatch = fn
	r.mu.Unlock()
	return listen.Start(ctx, func(ctx context.Context) { <-ctx.Done() })
}

func (r *memRepo) WatchMessages(ctx context.Context, _ string, _ int, fn func([]Message), _ func(error)) *listen.Subscription {
	r.mu.Lock()
	r.msgWatch = fn
	r.mu.Unlock()
	return listen.Start(ctx, func(ctx context.Context) { <-ctx.Done() })
}

type fakeUsers map[string]bool

func (f fakeUsers) Get(_ context.Context, uid string) (*user.User, error) {
	if !f[uid] {
		return nil, fmt.Errorf("%w: user %s", user.ErrNotFound, uid)
	}
	return &user.User{ID: uid}, nil
}

var (
	alice = authctx.Session{UID: "alice"}
	bob   = authctx.Session{UID: "bob"}
)

func newTestService(repo *memRepo) *Service {
	svc := NewService(repo, fakeUsers{"alice": true, "bob": true, "carol": true}, nil)
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return svc
}

func TestStartConversationReusesPair(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	c1, err := svc.StartConversation(ctx, alice, StartInput{ParticipantID: "bob"})
	require.NoError(t, err)
	c2, err := svc.StartConversation(ctx, bob, StartInput{ParticipantID: " alice "})
	require.NoError(t, err)

	assert.Equal(t, c1.ID, c2.ID)
	assert.Len(t, repo.convs, 1)
	assert.Equal(t, map[string]int{"alice": 0, "bob": 0}, c1.UnreadCounts)
}

func TestStartConversationRejects(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	_, err := svc.StartConversation(ctx, alice, StartInput{ParticipantID: "alice"})
	assert.True(t, IsErrBadRequest(err))

	_, err = svc.StartConversation(ctx, alice, StartInput{ParticipantID: "ghost"})
	assert.True(t, IsErrNotFound(err))

	_, err = svc.StartConversation(ctx, authctx.Session{}, StartInput{ParticipantID: "bob"})
	assert.True(t, IsErrUnauthorized(err))
}

func TestSendMessageBumpsOnlyRecipient(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	c, err := svc.StartConversation(ctx, alice, StartInput{ParticipantID: "bob"})
	require.NoError(t, err)

	msg, conv, err := svc.SendMessage(ctx, alice, c.ID, SendInput{Content: "  send it  "})
	require.NoError(t, err)

	assert.Equal(t, "send it", msg.Content)
	assert.True(t, msg.IsReadBy("alice"))
	assert.False(t, msg.IsReadBy("bob"))
	assert.Equal(t, 1, conv.UnreadFor("bob"))
	assert.Equal(t, 0, conv.UnreadFor("alice"))
	assert.Equal(t, "send it", conv.LastMessage)
	assert.Equal(t, "alice", conv.LastMessageSenderID)

	stored, err := repo.GetConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"alice": 0, "bob": 1}, stored.UnreadCounts)
}

func TestSendMessageValidation(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	c, err := svc.StartConversation(ctx, alice, StartInput{ParticipantID: "bob"})
	require.NoError(t, err)

	_, _, err = svc.SendMessage(ctx, alice, c.ID, SendInput{Content: "   "})
	assert.True(t, IsErrBadRequest(err))

	_, _, err = svc.SendMessage(ctx, alice, "missing", SendInput{Content: "hi"})
	assert.True(t, IsErrNotFound(err))

	_, _, err = svc.SendMessage(ctx, authctx.Session{UID: "carol"}, c.ID, SendInput{Content: "hi"})
	assert.True(t, IsErrUnauthorized(err))

	assert.Zero(t, repo.appends)
}

func TestMediaOnlyMessagePreview(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	c, err := svc.StartConversation(ctx, alice, StartInput{ParticipantID: "bob"})
	require.NoError(t, err)

	_, conv, err := svc.SendMessage(ctx, alice, c.ID, SendInput{MediaURL: "https://cdn.example/p.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "Sent a photo", conv.LastMessage)
}

func TestMarkConversationAsRead(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	c, err := svc.StartConversation(ctx, alice, StartInput{ParticipantID: "bob"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, _, err = svc.SendMessage(ctx, alice, c.ID, SendInput{Content: "hi"})
		require.NoError(t, err)
	}

	conv, err := svc.MarkConversationAsRead(ctx, bob, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, conv.UnreadFor("bob"))
	assert.Equal(t, 1, repo.marks)

	msgs, err := svc.Messages(ctx, bob, c.ID, 0)
	require.NoError(t, err)
	for _, m := range msgs {
		assert.True(t, m.IsReadBy("bob"))
	}

	// already zero: no second write
	_, err = svc.MarkConversationAsRead(ctx, bob, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.marks)
}

func TestConversationsNewestFirst(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	withBob, err := svc.StartConversation(ctx, alice, StartInput{ParticipantID: "bob"})
	require.NoError(t, err)
	withCarol, err := svc.StartConversation(ctx, alice, StartInput{ParticipantID: "carol"})
	require.NoError(t, err)
	_, _, err = svc.SendMessage(ctx, alice, withBob.ID, SendInput{Content: "later"})
	require.NoError(t, err)

	cs, err := svc.Conversations(ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, withBob.ID, cs[0].ID)
	assert.Equal(t, withCarol.ID, cs[1].ID)
}

func TestInboxWatchReplacesList(t *testing.T) {
	repo := newMemRepo()
	inbox := NewInbox(newTestService(repo), bob)
	inbox.Start(context.Background())
	defer inbox.Stop()

	t0 := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	repo.convWatch([]Conversation{
		{ID: "a", LastMessageTimestamp: t0, UnreadCounts: map[string]int{"bob": 2}},
		{ID: "b", LastMessageTimestamp: t0.Add(time.Hour), UnreadCounts: map[string]int{"bob": 1}},
	})
	st := inbox.State()
	require.Len(t, st.Conversations, 2)
	assert.Equal(t, "b", st.Conversations[0].ID)
	assert.Equal(t, 3, st.TotalUnread)

	repo.convWatch([]Conversation{{ID: "c", UnreadCounts: map[string]int{}}})
	st = inbox.State()
	require.Len(t, st.Conversations, 1)
	assert.Zero(t, st.TotalUnread)
}

func TestInboxSendAndMarkRead(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	c, err := svc.StartConversation(ctx, alice, StartInput{ParticipantID: "bob"})
	require.NoError(t, err)

	sender := NewInbox(svc, alice)
	sender.Load(ctx)
	sender.Open(ctx, c.ID)
	sender.Send(ctx, c.ID, SendInput{Content: "crimps at 6?"})
	sender.Send(ctx, c.ID, SendInput{Content: "  "})

	st := sender.State()
	require.Len(t, st.Messages, 1)
	assert.Equal(t, "crimps at 6?", st.Messages[0].Content)
	assert.Zero(t, st.TotalUnread)
	assert.Equal(t, 1, repo.appends)

	reader := NewInbox(svc, bob)
	reader.Load(ctx)
	assert.Equal(t, 1, reader.State().TotalUnread)
	reader.MarkRead(ctx, c.ID)
	assert.Zero(t, reader.State().TotalUnread)
	assert.False(t, reader.State().HasError)
}

func TestInboxKeepsStateWhenWriteFails(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	c, err := svc.StartConversation(ctx, alice, StartInput{ParticipantID: "bob"})
	require.NoError(t, err)
	_, _, err = svc.SendMessage(ctx, alice, c.ID, SendInput{Content: "hi"})
	require.NoError(t, err)

	inbox := NewInbox(svc, bob)
	inbox.Load(ctx)
	repo.writeErr = errors.New("unavailable")
	inbox.MarkRead(ctx, c.ID)

	st := inbox.State()
	assert.True(t, st.HasError)
	assert.Equal(t, 1, st.TotalUnread)
}

func TestInboxOpenFollowsThread(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	c, err := svc.StartConversation(ctx, alice, StartInput{ParticipantID: "bob"})
	require.NoError(t, err)

	inbox := NewInbox(svc, bob)
	inbox.Open(ctx, c.ID)
	defer inbox.Stop()

	repo.msgWatch([]Message{{ID: "m1"}, {ID: "m2"}})
	assert.Len(t, inbox.State().Messages, 2)

	inbox.Close()
	assert.Empty(t, inbox.State().OpenID)
	assert.Empty(t, inbox.State().Messages)

	outsider := NewInbox(svc, authctx.Session{UID: "carol"})
	outsider.Open(ctx, c.ID)
	assert.True(t, outsider.State().HasError)
	assert.Empty(t, outsider.State().OpenID)
}
