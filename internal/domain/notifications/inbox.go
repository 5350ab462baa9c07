package notifications

import (
	"context"
	"sync"

	"cragline/backend/internal/authctx"
	"cragline/backend/internal/listen"
	"cragline/backend/internal/state"
)

type InboxState struct {
	state.Status
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
}

// Inbox is the notification list of one signed-in user. Local state changes
// only after the store accepted the write.
type Inbox struct {
	svc     *Service
	session authctx.Session
	store   *state.Store[InboxState]

	mu  sync.Mutex
	sub *listen.Subscription
}

func NewInbox(svc *Service, session authctx.Session) *Inbox {
	return &Inbox{
		svc:     svc,
		session: session,
		store:   state.New(InboxState{Notifications: []Notification{}}),
	}
}

func (in *Inbox) State() InboxState { return in.store.Get() }

func (in *Inbox) Subscribe(fn func(prev, next InboxState)) func() {
	return in.store.Subscribe(fn)
}

func (in *Inbox) Load(ctx context.Context) {
	in.store.Update(func(s *InboxState) { s.Begin() })

	res, err := in.svc.List(ctx, in.session.UID, false, 50)
	if err != nil {
		in.svc.log.Error(ctx, "load notifications", err)
		in.store.Update(func(s *InboxState) { s.Fail("Couldn't load notifications.") })
		return
	}
	in.store.Update(func(s *InboxState) {
		s.Done()
		s.Notifications = res.Notifications
		s.UnreadCount = CountUnread(res.Notifications)
	})
}

// Start replaces the list on every push until Stop.
func (in *Inbox) Start(ctx context.Context) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.sub != nil {
		return
	}
	in.sub = in.svc.Watch(ctx, in.session.UID, 50,
		func(items []Notification) {
			in.store.Update(func(s *InboxState) {
				s.Done()
				s.HasError = false
				s.ErrorMessage = ""
				s.Notifications = items
				s.UnreadCount = CountUnread(items)
			})
		},
		func(err error) {
			in.svc.log.Error(ctx, "notification listener stopped", err)
			in.store.Update(func(s *InboxState) { s.Fail("Live updates stopped.") })
		},
	)
}

func (in *Inbox) Stop() {
	in.mu.Lock()
	sub := in.sub
	in.sub = nil
	in.mu.Unlock()
	sub.Stop()
}

func (in *Inbox) MarkAsRead(ctx context.Context, id string) {
	if err := in.svc.MarkAsRead(ctx, in.session.UID, id); err != nil {
		in.svc.log.Error(in.svc.log.WithField(ctx, "notification_id", id), "mark notification read", err)
		in.store.Update(func(s *InboxState) { s.Fail("Couldn't update notification.") })
		return
	}
	in.store.Update(func(s *InboxState) {
		next := make([]Notification, len(s.Notifications))
		for i, n := range s.Notifications {
			if n.ID == id {
				n.IsRead = true
			}
			next[i] = n
		}
		s.Notifications = next
		s.UnreadCount = CountUnread(next)
	})
}

func (in *Inbox) MarkAllAsRead(ctx context.Context) {
	if _, err := in.svc.MarkAllAsRead(ctx, in.session.UID); err != nil {
		in.svc.log.Error(ctx, "mark all notifications read", err)
		in.store.Update(func(s *InboxState) { s.Fail("Couldn't update notifications.") })
		return
	}
	in.store.Update(func(s *InboxState) {
		next := make([]Notification, len(s.Notifications))
		for i, n := range s.Notifications {
			n.IsRead = true
			next[i] = n
		}
		s.Notifications = next
		s.UnreadCount = 0
	})
}

func (in *Inbox) Delete(ctx context.Context, id string) {
	if err := in.svc.Delete(ctx, in.session.UID, id); err != nil {
		in.svc.log.Error(in.svc.log.WithField(ctx, "notification_id", id), "delete notification", err)
		in.store.Update(func(s *InboxState) { s.Fail("Couldn't delete notification.") })
		return
	}
	in.store.Update(func(s *InboxState) {
		next := make([]Notification, 0, len(s.Notifications))
		for _, n := range s.Notifications {
			if n.ID != id {
				next = append(next, n)
			}
		}
		s.Notifications = next
		s.UnreadCount = CountUnread(next)
	})
}
