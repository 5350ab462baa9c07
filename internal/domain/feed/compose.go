// Package feed selects and orders activity items for the home screen.
package feed

import (
	"sort"
	"time"

	"cragline/backend/internal/domain/activity"
)

// DefaultFeaturedLimit caps every featured section.
const DefaultFeaturedLimit = 10

// ComposeFeatured picks up to limit items of kind from pool.
//
// Featured items win. When none of the requested kind are featured the whole
// pool is used with the same rules, so a section is never empty just because
// nothing was curated. Events must start after now and come soonest first;
// beta posts come newest first. Other kinds keep newest first.
func ComposeFeatured(pool []activity.Item, kind activity.Kind, now time.Time, limit int) []activity.Item {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	out := selectKind(pool, kind, now, true)
	if len(out) == 0 {
		out = selectKind(pool, kind, now, false)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func selectKind(pool []activity.Item, kind activity.Kind, now time.Time, featuredOnly bool) []activity.Item {
	out := []activity.Item{}
	for _, it := range pool {
		if it.Kind != kind {
			continue
		}
		if featuredOnly && !it.IsFeatured {
			continue
		}
		if kind == activity.KindEvent && (it.Event == nil || !it.Event.EventDate.After(now)) {
			continue
		}
		out = append(out, it)
	}

	if kind == activity.KindEvent {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Event.EventDate.Before(out[j].Event.EventDate)
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}

// Newest orders items by createdAt, newest first, without touching pool.
func Newest(pool []activity.Item) []activity.Item {
	out := append([]activity.Item(nil), pool...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
