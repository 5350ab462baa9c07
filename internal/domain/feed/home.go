package feed

import (
	"context"
	"time"

	"cragline/backend/internal/domain/activity"
	"cragline/backend/internal/logger"
	"cragline/backend/internal/state"
)

type Source interface {
	Recent(ctx context.Context, limit int) ([]activity.Item, error)
	ByKind(ctx context.Context, kind activity.Kind, limit int) ([]activity.Item, error)
	Featured(ctx context.Context, kind activity.Kind, now time.Time, limit int) ([]activity.Item, error)
}

type Engagement interface {
	Like(ctx context.Context, item *activity.Item) error
	Unlike(ctx context.Context, item *activity.Item) error
	Hydrate(ctx context.Context, items []activity.Item) (map[string]bool, error)
}

type HomeState struct {
	state.Status
	FeaturedEvents []activity.Item `json:"featuredEvents"`
	FeaturedBeta   []activity.Item `json:"featuredBeta"`
	Feed           []activity.Item `json:"feed"`
	Liked          map[string]bool `json:"liked"`
}

type HomeOptions struct {
	PoolSize      int
	FeaturedLimit int
}

// Home is the home screen model of one signed-in user.
type Home struct {
	source     Source
	engagement Engagement
	log        *logger.Logger
	opts       HomeOptions
	now        func() time.Time
	store      *state.Store[HomeState]
}

func NewHome(source Source, engagement Engagement, log *logger.Logger, opts HomeOptions) *Home {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 50
	}
	if opts.FeaturedLimit <= 0 {
		opts.FeaturedLimit = DefaultFeaturedLimit
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Home{
		source:     source,
		engagement: engagement,
		log:        log,
		opts:       opts,
		now:        time.Now,
		store: state.New(HomeState{
			FeaturedEvents: []activity.Item{},
			FeaturedBeta:   []activity.Item{},
			Feed:           []activity.Item{},
			Liked:          map[string]bool{},
		}),
	}
}

func (h *Home) State() HomeState { return h.store.Get() }

func (h *Home) Subscribe(fn func(prev, next HomeState)) func() {
	return h.store.Subscribe(fn)
}

func (h *Home) LoadFeaturedContent(ctx context.Context) {
	h.store.Update(func(s *HomeState) { s.Begin() })

	now := h.now()
	featuredEvents, err := h.featured(ctx, activity.KindEvent, now)
	if err != nil {
		h.fail(ctx, "load featured events", "Couldn't load events.", err)
		return
	}
	featuredBeta, err := h.featured(ctx, activity.KindBeta, now)
	if err != nil {
		h.fail(ctx, "load featured beta", "Couldn't load beta.", err)
		return
	}
	liked := h.hydrate(ctx, append(append([]activity.Item{}, featuredEvents...), featuredBeta...))

	h.store.Update(func(s *HomeState) {
		s.Done()
		s.FeaturedEvents = featuredEvents
		s.FeaturedBeta = featuredBeta
		s.Liked = mergeLiked(s.Liked, liked)
	})
}

// featured asks the store for curated items first and only falls back to the
// newest pool of kind when nothing is curated.
func (h *Home) featured(ctx context.Context, kind activity.Kind, now time.Time) ([]activity.Item, error) {
	curated, err := h.source.Featured(ctx, kind, now, h.opts.FeaturedLimit)
	if err != nil {
		return nil, err
	}
	if out := ComposeFeatured(curated, kind, now, h.opts.FeaturedLimit); len(out) > 0 {
		return out, nil
	}
	pool, err := h.source.ByKind(ctx, kind, h.opts.PoolSize)
	if err != nil {
		return nil, err
	}
	return ComposeFeatured(pool, kind, now, h.opts.FeaturedLimit), nil
}

func (h *Home) LoadFeed(ctx context.Context) {
	h.store.Update(func(s *HomeState) { s.Begin() })

	items, err := h.source.Recent(ctx, h.opts.PoolSize)
	if err != nil {
		h.fail(ctx, "load feed", "Couldn't load your feed.", err)
		return
	}
	items = Newest(items)
	liked := h.hydrate(ctx, items)

	h.store.Update(func(s *HomeState) {
		s.Done()
		s.Feed = items
		s.Liked = mergeLiked(s.Liked, liked)
	})
}

func (h *Home) hydrate(ctx context.Context, items []activity.Item) map[string]bool {
	if h.engagement == nil || len(items) == 0 {
		return nil
	}
	liked, err := h.engagement.Hydrate(ctx, items)
	if err != nil {
		h.log.Warn(ctx, "liked state unavailable", err)
		return nil
	}
	return liked
}

func (h *Home) Like(ctx context.Context, itemID string) {
	h.engage(ctx, itemID, true)
}

func (h *Home) Unlike(ctx context.Context, itemID string) {
	h.engage(ctx, itemID, false)
}

func (h *Home) engage(ctx context.Context, itemID string, like bool) {
	item, ok := h.find(itemID)
	if !ok {
		h.store.Update(func(s *HomeState) { s.Fail("That post is no longer available.") })
		return
	}

	var err error
	if like {
		err = h.engagement.Like(ctx, &item)
	} else {
		err = h.engagement.Unlike(ctx, &item)
	}
	if err != nil {
		h.fail(h.log.WithField(ctx, "activity_id", itemID), "update like", "Couldn't update like.", err)
		return
	}

	h.store.Update(func(s *HomeState) {
		s.FeaturedEvents = replace(s.FeaturedEvents, item)
		s.FeaturedBeta = replace(s.FeaturedBeta, item)
		s.Feed = replace(s.Feed, item)
		liked := mergeLiked(s.Liked, nil)
		if like {
			liked[itemID] = true
		} else {
			delete(liked, itemID)
		}
		s.Liked = liked
	})
}

func (h *Home) find(itemID string) (activity.Item, bool) {
	s := h.store.Get()
	for _, list := range [][]activity.Item{s.Feed, s.FeaturedEvents, s.FeaturedBeta} {
		for _, it := range list {
			if it.ID == itemID {
				return it.Clone(), true
			}
		}
	}
	return activity.Item{}, false
}

func (h *Home) fail(ctx context.Context, op, msg string, err error) {
	h.log.Error(ctx, op, err)
	h.store.Update(func(s *HomeState) { s.Fail(msg) })
}

// replace swaps the item with the same id, returning a new slice.
func replace(items []activity.Item, item activity.Item) []activity.Item {
	out := make([]activity.Item, len(items))
	for i, it := range items {
		if it.ID == item.ID {
			out[i] = item
		} else {
			out[i] = it
		}
	}
	return out
}

func mergeLiked(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a)+len(b))
	for k, v := range a {
		if v {
			out[k] = true
		}
	}
	for k, v := range b {
		if v {
			out[k] = true
		}
	}
	return out
}
