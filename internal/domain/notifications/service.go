package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cragline/backend/internal/listen"
	"cragline/backend/internal/logger"
	"cragline/backend/internal/metrics"

	"firebase.google.com/go/v4/messaging"
)

// Pusher delivers a device push. *messaging.Client satisfies it.
type Pusher interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type Service struct {
	repo   Repo
	log    *logger.Logger
	pusher Pusher
	now    func() time.Time
}

func NewService(repo Repo, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log, now: time.Now}
}

// SetPusher enables FCM delivery for newly created notifications.
func (s *Service) SetPusher(p Pusher) {
	s.pusher = p
}

// UserTopic is the FCM topic a device subscribes to for one user's alerts.
func UserTopic(uid string) string {
	return "user-" + uid
}

// Create stores a notification for input.TargetUID. Notifying yourself is a
// no-op and returns an empty id.
func (s *Service) Create(ctx context.Context, input CreateInput) (string, error) {
	input.Trim()
	if input.TargetUID == "" || input.Title == "" {
		return "", fmt.Errorf("%w: targetUid and title are required", ErrBadRequest)
	}
	if input.Type == "" {
		input.Type = TypeSystem
	}
	if !input.Type.Valid() {
		return "", fmt.Errorf("%w: unknown notification type %q", ErrBadRequest, input.Type)
	}
	if input.SenderUID != "" && input.SenderUID == input.TargetUID {
		return "", nil
	}

	n, err := s.repo.Create(ctx, Notification{
		UserID:        input.TargetUID,
		Title:         input.Title,
		Message:       input.Message,
		Timestamp:     s.now().UTC(),
		IsRead:        false,
		Type:          input.Type,
		RelatedItemID: input.RelatedItemID,
		SenderID:      input.SenderUID,
	})
	if err != nil {
		return "", err
	}
	metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()

	if s.pusher != nil {
		s.push(ctx, n)
	}
	return n.ID, nil
}

// Notify is Create for callers that treat delivery as best effort.
func (s *Service) Notify(ctx context.Context, input CreateInput) {
	if _, err := s.Create(ctx, input); err != nil {
		ctx = s.log.WithFields(ctx, map[string]any{
			"target_uid": input.TargetUID,
			"type":       string(input.Type),
		})
		s.log.Warn(ctx, "notification not delivered", err)
	}
}

func (s *Service) push(ctx context.Context, n Notification) {
	data := map[string]string{
		"notificationId": n.ID,
		"type":           string(n.Type),
	}
	if n.RelatedItemID != "" {
		data["relatedItemId"] = n.RelatedItemID
	}
	_, err := s.pusher.Send(ctx, &messaging.Message{
		Topic: UserTopic(n.UserID),
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Data: data,
	})
	if err != nil {
		s.log.Warn(s.log.WithField(ctx, "notification_id", n.ID), "push failed", err)
	}
}

func (s *Service) List(ctx context.Context, uid string, unreadOnly bool, limit int) (*ListResult, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrBadRequest)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	items, err := s.repo.List(ctx, uid, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.UnreadCount(ctx, uid)
	if err != nil {
		s.log.Warn(ctx, "unread count failed, using page count", err)
		unread = CountUnread(items)
	}
	return &ListResult{Notifications: items, UnreadCount: unread}, nil
}

func (s *Service) MarkAsRead(ctx context.Context, uid, id string) error {
	uid = strings.TrimSpace(uid)
	id = strings.TrimSpace(id)
	if uid == "" || id == "" {
		return fmt.Errorf("%w: uid and notificationId are required", ErrBadRequest)
	}
	return s.repo.MarkRead(ctx, uid, id)
}

// MarkAllAsRead returns how many notifications were flipped.
func (s *Service) MarkAllAsRead(ctx context.Context, uid string) (int, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return 0, fmt.Errorf("%w: uid is required", ErrBadRequest)
	}
	return s.repo.MarkAllRead(ctx, uid)
}

func (s *Service) Delete(ctx context.Context, uid, id string) error {
	uid = strings.TrimSpace(uid)
	id = strings.TrimSpace(id)
	if uid == "" || id == "" {
		return fmt.Errorf("%w: uid and notificationId are required", ErrBadRequest)
	}
	return s.repo.Delete(ctx, uid, id)
}

// Watch streams the newest notifications for uid. Each call to fn carries the
// full list.
func (s *Service) Watch(ctx context.Context, uid string, limit int, fn func([]Notification), onErr func(error)) *listen.Subscription {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.Watch(ctx, uid, limit, fn, onErr)
}
