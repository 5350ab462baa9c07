package feed

import (
	"fmt"
	"testing"
	"time"

	"cragline/backend/internal/domain/activity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func event(id string, at time.Time, featured bool) activity.Item {
	return activity.Item{
		ID:         id,
		Kind:       activity.KindEvent,
		CreatedAt:  now.Add(-time.Hour),
		IsFeatured: featured,
		Event:      &activity.EventPost{Title: id, EventDate: at, Location: "Gym"},
	}
}

func beta(id string, created time.Time, featured bool) activity.Item {
	return activity.Item{
		ID:         id,
		Kind:       activity.KindBeta,
		CreatedAt:  created,
		IsFeatured: featured,
		Beta:       &activity.BetaPost{Content: id},
	}
}

func ids(items []activity.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestFeaturedEventsFutureOnlySoonestFirst(t *testing.T) {
	day := 24 * time.Hour
	pool := []activity.Item{
		event("past", now.Add(-day), false),
		event("in5d", now.Add(5*day), true),
		event("in2d", now.Add(2*day), true),
	}

	got := ComposeFeatured(pool, activity.KindEvent, now, 10)
	assert.Equal(t, []string{"in2d", "in5d"}, ids(got))
}

func TestFeaturedPastEventsFallBack(t *testing.T) {
	day := 24 * time.Hour
	pool := []activity.Item{
		event("featured-past", now.Add(-day), true),
		event("soon", now.Add(day), false),
	}

	got := ComposeFeatured(pool, activity.KindEvent, now, 10)
	assert.Equal(t, []string{"soon"}, ids(got))
}

func TestBetaFallbackNewestFirst(t *testing.T) {
	pool := []activity.Item{
		beta("t-2h", now.Add(-2*time.Hour), false),
		beta("t-1h", now.Add(-time.Hour), false),
		beta("t-3h", now.Add(-3*time.Hour), false),
		event("noise", now.Add(time.Hour), true),
	}

	got := ComposeFeatured(pool, activity.KindBeta, now, 10)
	assert.Equal(t, []string{"t-1h", "t-2h", "t-3h"}, ids(got))
}

func TestFeaturedTierWinsOverNewer(t *testing.T) {
	pool := []activity.Item{
		beta("new", now, false),
		beta("curated", now.Add(-48*time.Hour), true),
	}

	got := ComposeFeatured(pool, activity.KindBeta, now, 10)
	assert.Equal(t, []string{"curated"}, ids(got))
}

func TestComposeCapsAtLimit(t *testing.T) {
	pool := []activity.Item{}
	for i := 0; i < 15; i++ {
		pool = append(pool, beta(fmt.Sprintf("b%02d", i), now.Add(-time.Duration(i)*time.Minute), false))
	}

	got := ComposeFeatured(pool, activity.KindBeta, now, 0)
	require.Len(t, got, DefaultFeaturedLimit)
	assert.Equal(t, "b00", got[0].ID)
	assert.Equal(t, "b09", got[9].ID)
}

func TestComposeEmptyPool(t *testing.T) {
	assert.Empty(t, ComposeFeatured(nil, activity.KindEvent, now, 10))
}
