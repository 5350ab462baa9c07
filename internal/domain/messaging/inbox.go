package messaging

import (
	"context"
	"sync"

	"cragline/backend/internal/authctx"
	"cragline/backend/internal/listen"
	"cragline/backend/internal/state"
)

type InboxState struct {
	state.Status
	Conversations []Conversation `json:"conversations"`
	TotalUnread   int            `json:"totalUnread"`

	// Open conversation, if any.
	OpenID   string    `json:"openConversationId,omitempty"`
	Messages []Message `json:"messages"`
}

// Inbox is the conversation list of one signed-in user plus the message
// thread currently open. Every realtime push replaces the whole list.
type Inbox struct {
	svc     *Service
	session authctx.Session
	store   *state.Store[InboxState]

	mu      sync.Mutex
	convSub *listen.Subscription
	msgSub  *listen.Subscription
}

func NewInbox(svc *Service, session authctx.Session) *Inbox {
	return &Inbox{
		svc:     svc,
		session: session,
		store:   state.New(InboxState{Conversations: []Conversation{}, Messages: []Message{}}),
	}
}

func (in *Inbox) State() InboxState { return in.store.Get() }

func (in *Inbox) Subscribe(fn func(prev, next InboxState)) func() {
	return in.store.Subscribe(fn)
}

func (in *Inbox) setConversations(cs []Conversation) func(*InboxState) {
	return func(s *InboxState) {
		s.Conversations = cs
		s.TotalUnread = TotalUnread(cs, in.session.UID)
	}
}

func (in *Inbox) Load(ctx context.Context) {
	in.store.Update(func(s *InboxState) { s.Begin() })

	cs, err := in.svc.Conversations(ctx, in.session, 0)
	if err != nil {
		in.svc.log.Error(ctx, "load conversations", err)
		in.store.Update(func(s *InboxState) { s.Fail("Couldn't load conversations.") })
		return
	}
	in.store.Update(func(s *InboxState) {
		s.Done()
		in.setConversations(cs)(s)
	})
}

// Start follows the conversation list until Stop.
func (in *Inbox) Start(ctx context.Context) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.convSub != nil {
		return
	}
	sub, err := in.svc.WatchConversations(ctx, in.session,
		func(cs []Conversation) {
			in.store.Update(func(s *InboxState) {
				s.Done()
				s.HasError = false
				s.ErrorMessage = ""
				in.setConversations(cs)(s)
			})
		},
		func(err error) {
			in.svc.log.Error(ctx, "conversation listener stopped", err)
			in.store.Update(func(s *InboxState) { s.Fail("Live updates stopped.") })
		},
	)
	if err != nil {
		in.store.Update(func(s *InboxState) { s.Fail("Sign in to see your messages.") })
		return
	}
	in.convSub = sub
}

// Open follows the messages of one conversation, replacing any thread
// already open.
func (in *Inbox) Open(ctx context.Context, conversationID string) {
	in.Close()
	in.store.Update(func(s *InboxState) { s.OpenID = conversationID })

	sub, err := in.svc.WatchMessages(ctx, in.session, conversationID,
		func(ms []Message) {
			in.store.Update(func(s *InboxState) {
				if s.OpenID == conversationID {
					s.Messages = ms
				}
			})
		},
		func(err error) {
			in.svc.log.Error(in.svc.log.WithField(ctx, "conversation_id", conversationID), "message listener stopped", err)
			in.store.Update(func(s *InboxState) { s.Fail("Live updates stopped.") })
		},
	)
	if err != nil {
		in.svc.log.Warn(in.svc.log.WithField(ctx, "conversation_id", conversationID), "open conversation", err)
		in.store.Update(func(s *InboxState) {
			s.OpenID = ""
			s.Fail("Couldn't open conversation.")
		})
		return
	}

	in.mu.Lock()
	in.msgSub = sub
	in.mu.Unlock()
}

func (in *Inbox) Close() {
	in.mu.Lock()
	sub := in.msgSub
	in.msgSub = nil
	in.mu.Unlock()
	sub.Stop()
	in.store.Update(func(s *InboxState) {
		s.OpenID = ""
		s.Messages = []Message{}
	})
}

func (in *Inbox) Stop() {
	in.Close()
	in.mu.Lock()
	sub := in.convSub
	in.convSub = nil
	in.mu.Unlock()
	sub.Stop()
}

// Send posts a message. Empty input is ignored.
func (in *Inbox) Send(ctx context.Context, conversationID string, input SendInput) {
	input.Trim()
	if input.Empty() {
		return
	}
	msg, conv, err := in.svc.SendMessage(ctx, in.session, conversationID, input)
	if err != nil {
		in.svc.log.Error(in.svc.log.WithField(ctx, "conversation_id", conversationID), "send message", err)
		in.store.Update(func(s *InboxState) { s.Fail("Couldn't send message.") })
		return
	}
	in.store.Update(func(s *InboxState) {
		in.setConversations(replaceConversation(s.Conversations, *conv))(s)
		if s.OpenID == conversationID && !containsMessage(s.Messages, msg.ID) {
			next := make([]Message, len(s.Messages), len(s.Messages)+1)
			copy(next, s.Messages)
			s.Messages = append(next, *msg)
		}
	})
}

// MarkRead zeroes the caller's counter locally once the store accepted it.
func (in *Inbox) MarkRead(ctx context.Context, conversationID string) {
	conv, err := in.svc.MarkConversationAsRead(ctx, in.session, conversationID)
	if err != nil {
		in.svc.log.Error(in.svc.log.WithField(ctx, "conversation_id", conversationID), "mark conversation read", err)
		in.store.Update(func(s *InboxState) { s.Fail("Couldn't update conversation.") })
		return
	}
	in.store.Update(func(s *InboxState) {
		in.setConversations(replaceConversation(s.Conversations, *conv))(s)
	})
}

func replaceConversation(cs []Conversation, c Conversation) []Conversation {
	next := make([]Conversation, 0, len(cs)+1)
	found := false
	for _, x := range cs {
		if x.ID == c.ID {
			x = c
			found = true
		}
		next = append(next, x)
	}
	if !found {
		next = append(next, c)
	}
	SortByLastMessage(next)
	return next
}

func containsMessage(ms []Message, id string) bool {
	for _, m := range ms {
		if m.ID == id {
			return true
		}
	}
	return false
}
