package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cragline/backend/internal/authctx"
	"cragline/backend/internal/domain/user"
	"cragline/backend/internal/listen"
	"cragline/backend/internal/logger"
	"cragline/backend/internal/metrics"
	"cragline/backend/internal/utils"
)

type Users interface {
	Get(ctx context.Context, uid string) (*user.User, error)
}

const (
	maxContentRunes      = 4000
	defaultConversations = 50
	defaultMessages      = 100
)

type Service struct {
	repo  Repo
	users Users
	log   *logger.Logger
	now   func() time.Time
}

func NewService(repo Repo, users Users, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, users: users, log: log, now: time.Now}
}

// StartConversation returns the direct conversation between the caller and
// otherUID, creating it on first contact.
func (s *Service) StartConversation(ctx context.Context, session authctx.Session, in StartInput) (*Conversation, error) {
	if !session.Authenticated() {
		return nil, fmt.Errorf("%w: sign-in required", ErrUnauthorized)
	}
	in.Trim()
	if in.ParticipantID == "" {
		return nil, fmt.Errorf("%w: participantId is required", ErrBadRequest)
	}
	if in.ParticipantID == session.UID {
		return nil, fmt.Errorf("%w: cannot message yourself", ErrBadRequest)
	}
	if s.users != nil {
		if _, err := s.users.Get(ctx, in.ParticipantID); err != nil {
			if user.IsErrNotFound(err) {
				return nil, fmt.Errorf("%w: user %s", ErrNotFound, in.ParticipantID)
			}
			return nil, err
		}
	}

	key := PairKey(session.UID, in.ParticipantID)
	existing, err := s.repo.FindDirect(ctx, key)
	if err == nil {
		return existing, nil
	}
	if !IsErrNotFound(err) {
		return nil, err
	}

	now := s.now().UTC()
	c, err := s.repo.CreateConversation(ctx, Conversation{
		Participants:         []string{session.UID, in.ParticipantID},
		PairKey:              key,
		LastMessageTimestamp: now,
		UnreadCounts:         map[string]int{session.UID: 0, in.ParticipantID: 0},
		CreatedAt:            now,
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Conversations lists the caller's conversations, newest message first.
func (s *Service) Conversations(ctx context.Context, session authctx.Session, limit int) ([]Conversation, error) {
	if !session.Authenticated() {
		return nil, fmt.Errorf("%w: sign-in required", ErrUnauthorized)
	}
	cs, err := s.repo.ListConversations(ctx, session.UID, clamp(limit, defaultConversations))
	if err != nil {
		return nil, err
	}
	SortByLastMessage(cs)
	return cs, nil
}

// conversationFor loads a conversation the caller takes part in.
func (s *Service) conversationFor(ctx context.Context, session authctx.Session, conversationID string) (*Conversation, error) {
	if !session.Authenticated() {
		return nil, fmt.Errorf("%w: sign-in required", ErrUnauthorized)
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversationId is required", ErrBadRequest)
	}
	c, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !c.HasParticipant(session.UID) {
		return nil, fmt.Errorf("%w: not a participant", ErrUnauthorized)
	}
	return c, nil
}

func (s *Service) Messages(ctx context.Context, session authctx.Session, conversationID string, limit int) ([]Message, error) {
	c, err := s.conversationFor(ctx, session, conversationID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, c.ID, clamp(limit, defaultMessages))
}

// SendMessage appends a message read by its sender only and bumps every
// other participant's unread counter by one.
func (s *Service) SendMessage(ctx context.Context, session authctx.Session, conversationID string, in SendInput) (*Message, *Conversation, error) {
	in.Trim()
	if in.Empty() {
		return nil, nil, fmt.Errorf("%w: message is empty", ErrBadRequest)
	}
	c, err := s.conversationFor(ctx, session, conversationID)
	if err != nil {
		return nil, nil, err
	}

	msg := Message{
		ConversationID: c.ID,
		SenderID:       session.UID,
		Content:        utils.TrimMax(in.Content, maxContentRunes),
		Timestamp:      s.now().UTC(),
		ReadBy:         map[string]bool{session.UID: true},
		MediaURL:       in.MediaURL,
	}
	saved, err := s.repo.AppendMessage(ctx, *c, msg)
	if err != nil {
		return nil, nil, err
	}
	metrics.MessagesSent.Inc()

	next := c.Apply(saved)
	return &saved, &next, nil
}

// MarkConversationAsRead zeroes the caller's unread counter. It writes
// nothing when the counter is already zero.
func (s *Service) MarkConversationAsRead(ctx context.Context, session authctx.Session, conversationID string) (*Conversation, error) {
	c, err := s.conversationFor(ctx, session, conversationID)
	if err != nil {
		return nil, err
	}
	if c.UnreadFor(session.UID) == 0 {
		return c, nil
	}
	if err := s.repo.MarkRead(ctx, c.ID, session.UID); err != nil {
		return nil, err
	}
	next := c.MarkedRead(session.UID)
	return &next, nil
}

// WatchConversations delivers the caller's full, sorted conversation list on
// every change.
func (s *Service) WatchConversations(ctx context.Context, session authctx.Session, fn func([]Conversation), onErr func(error)) (*listen.Subscription, error) {
	if !session.Authenticated() {
		return nil, fmt.Errorf("%w: sign-in required", ErrUnauthorized)
	}
	return s.repo.WatchConversations(ctx, session.UID, defaultConversations, func(cs []Conversation) {
		SortByLastMessage(cs)
		fn(cs)
	}, onErr), nil
}

func (s *Service) WatchMessages(ctx context.Context, session authctx.Session, conversationID string, fn func([]Message), onErr func(error)) (*listen.Subscription, error) {
	c, err := s.conversationFor(ctx, session, conversationID)
	if err != nil {
		return nil, err
	}
	return s.repo.WatchMessages(ctx, c.ID, defaultMessages, fn, onErr), nil
}

func clamp(limit, def int) int {
	if limit <= 0 || limit > 200 {
		return def
	}
	return limit
}
