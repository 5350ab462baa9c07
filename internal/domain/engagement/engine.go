package engagement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cragline/backend/internal/authctx"
	"cragline/backend/internal/domain/activity"
	"cragline/backend/internal/domain/notifications"
	"cragline/backend/internal/domain/user"
	"cragline/backend/internal/logger"
	"cragline/backend/internal/metrics"
	"cragline/backend/internal/utils"
)

type Notifier interface {
	Notify(ctx context.Context, input notifications.CreateInput)
}

type Profiles interface {
	Get(ctx context.Context, uid string) (*user.User, error)
}

// Engine applies likes and comments on behalf of one signed-in user.
//
// Every operation writes to the Store first. The liked-set cache and the
// caller's item copy change only after that write succeeded, so a failed
// call leaves both exactly as they were.
type Engine struct {
	session  authctx.Session
	store    Store
	cache    LikedSet
	notifier Notifier
	profiles Profiles
	log      *logger.Logger
	now      func() time.Time
}

func NewEngine(session authctx.Session, store Store, cache LikedSet, log *logger.Logger) *Engine {
	if cache == nil {
		cache = NewMemoryLikedSet()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{session: session, store: store, cache: cache, log: log, now: time.Now}
}

func (e *Engine) SetNotifier(n Notifier) { e.notifier = n }

func (e *Engine) SetProfiles(p Profiles) { e.profiles = p }

func (e *Engine) uid() (string, error) {
	if !e.session.Authenticated() {
		return "", fmt.Errorf("%w: sign-in required", ErrUnauthorized)
	}
	return e.session.UID, nil
}

// IsLiked consults the cache only. A cache error reads as not liked.
func (e *Engine) IsLiked(ctx context.Context, itemID string) bool {
	ok, err := e.cache.Has(ctx, e.session.UID, itemID)
	if err != nil {
		e.log.Warn(ctx, "liked set lookup failed", err)
		return false
	}
	return ok
}

// Hydrate loads the durable liked state of items into the cache and returns
// it keyed by item id. Cached ids the store no longer reports are dropped.
func (e *Engine) Hydrate(ctx context.Context, items []activity.Item) (map[string]bool, error) {
	uid, err := e.uid()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	liked, err := e.store.Liked(ctx, uid, ids)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Add(ctx, uid, liked...); err != nil {
		e.log.Warn(ctx, "liked set hydrate failed", err)
	}
	out := make(map[string]bool, len(liked))
	for _, id := range liked {
		out[id] = true
	}
	for _, id := range ids {
		if out[id] {
			continue
		}
		if err := e.cache.Remove(ctx, uid, id); err != nil {
			e.log.Warn(ctx, "liked set hydrate failed", err)
		}
	}
	return out, nil
}

// Like records a like on item. The store decides whether the like is new;
// LikeCount grows by one only for a net new like.
func (e *Engine) Like(ctx context.Context, item *activity.Item) error {
	uid, err := e.uid()
	if err != nil {
		return err
	}
	if item == nil || item.ID == "" {
		return fmt.Errorf("%w: item is required", ErrBadRequest)
	}
	created, err := e.store.Like(ctx, uid, item.ID)
	if err != nil {
		return err
	}
	if err := e.cache.Add(ctx, uid, item.ID); err != nil {
		e.log.Warn(ctx, "liked set add failed", err)
	}
	if !created {
		return nil
	}
	item.AddLikes(1)
	metrics.Engagement.WithLabelValues("like").Inc()

	e.notify(ctx, item, notifications.TypeLike, "liked your post", "")
	return nil
}

// Unlike removes uid's like. LikeCount never drops below zero.
func (e *Engine) Unlike(ctx context.Context, item *activity.Item) error {
	uid, err := e.uid()
	if err != nil {
		return err
	}
	if item == nil || item.ID == "" {
		return fmt.Errorf("%w: item is required", ErrBadRequest)
	}

	removed, err := e.store.Unlike(ctx, uid, item.ID)
	if err != nil {
		return err
	}
	if err := e.cache.Remove(ctx, uid, item.ID); err != nil {
		e.log.Warn(ctx, "liked set remove failed", err)
	}
	if removed {
		item.AddLikes(-1)
		metrics.Engagement.WithLabelValues("unlike").Inc()
	}
	return nil
}

func (e *Engine) Comment(ctx context.Context, item *activity.Item, text string) (*Comment, error) {
	uid, err := e.uid()
	if err != nil {
		return nil, err
	}
	if item == nil || item.ID == "" {
		return nil, fmt.Errorf("%w: item is required", ErrBadRequest)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is required", ErrBadRequest)
	}

	c, err := e.store.AddComment(ctx, Comment{
		ItemID:    item.ID,
		Author:    e.author(ctx, uid),
		Text:      utils.TrimMax(text, maxCommentRunes),
		CreatedAt: e.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	item.AddComments(1)
	metrics.Engagement.WithLabelValues("comment").Inc()

	e.notify(ctx, item, notifications.TypeComment, "commented on your post", c.Text)
	return &c, nil
}

// DeleteComment removes one of the caller's comments.
func (e *Engine) DeleteComment(ctx context.Context, item *activity.Item, commentID string) error {
	uid, err := e.uid()
	if err != nil {
		return err
	}
	if item == nil || item.ID == "" {
		return fmt.Errorf("%w: item is required", ErrBadRequest)
	}
	c, err := e.store.GetComment(ctx, item.ID, commentID)
	if err != nil {
		return err
	}
	if c.Author.ID != uid && !e.session.IsAdmin() {
		return fmt.Errorf("%w: only the author can delete this comment", ErrUnauthorized)
	}
	if err := e.store.DeleteComment(ctx, item.ID, commentID); err != nil {
		return err
	}
	item.AddComments(-1)
	return nil
}

func (e *Engine) Comments(ctx context.Context, itemID string, limit int) ([]Comment, error) {
	if itemID == "" {
		return nil, fmt.Errorf("%w: item is required", ErrBadRequest)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return e.store.Comments(ctx, itemID, limit)
}

func (e *Engine) author(ctx context.Context, uid string) activity.Author {
	if e.profiles != nil {
		if u, err := e.profiles.Get(ctx, uid); err == nil {
			return activity.AuthorFrom(*u)
		}
	}
	return activity.Author{ID: uid, Name: e.session.Email}
}

func (e *Engine) notify(ctx context.Context, item *activity.Item, typ notifications.Type, verb, message string) {
	if e.notifier == nil || item.Author.ID == "" || item.Author.ID == e.session.UID {
		return
	}
	actor := e.author(ctx, e.session.UID)
	name := actor.Name
	if name == "" {
		name = "Someone"
	}
	e.notifier.Notify(ctx, notifications.CreateInput{
		TargetUID:     item.Author.ID,
		SenderUID:     e.session.UID,
		Title:         name + " " + verb,
		Message:       utils.TrimMax(message, 140),
		Type:          typ,
		RelatedItemID: item.ID,
	})
}
