package search

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"cragline/backend/internal/domain/activity"
	"cragline/backend/internal/domain/user"
	"cragline/backend/internal/logger"
	"cragline/backend/internal/metrics"
	"cragline/backend/internal/utils"
)

type UserSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]user.User, error)
}

type ActivitySource interface {
	Recent(ctx context.Context, limit int) ([]activity.Item, error)
}

type Service struct {
	users      UserSearcher
	activities ActivitySource
	poolSize   int
	userLimit  int
	log        *logger.Logger
}

// DefaultPoolSize is how many of the newest activities a search scans.
// Firestore has no substring index, so older items are out of reach.
const DefaultPoolSize = 100

func NewService(users UserSearcher, activities ActivitySource, poolSize int, log *logger.Logger) *Service {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{users: users, activities: activities, poolSize: poolSize, userLimit: 20, log: log}
}

// Search returns users first, then matching activities, each in the order
// the collaborators produced them. Queries shorter than MinQueryLength
// return nothing without touching either collaborator.
func (s *Service) Search(ctx context.Context, query string, filter Filter) ([]Result, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []Result{}, nil
	}
	if _, ok := ParseFilter(string(filter)); !ok {
		return nil, fmt.Errorf("%w: unknown filter %q", ErrBadRequest, filter)
	}
	if filter == "" {
		filter = FilterAll
	}
	metrics.Searches.WithLabelValues(string(filter)).Inc()

	out := []Result{}
	if filter == FilterAll || filter == FilterUsers {
		users, err := s.users.Search(ctx, query, s.userLimit)
		if err != nil {
			return nil, err
		}
		for i := range users {
			u := users[i]
			out = append(out, Result{Kind: ResultUser, User: &u})
		}
	}

	if filter != FilterUsers {
		pool, err := s.activities.Recent(ctx, s.poolSize)
		if err != nil {
			return nil, err
		}
		out = append(out, MatchActivities(pool, query, filter)...)
	}
	return out, nil
}

// MatchActivities keeps pool order. Basic posts and group visits never
// match, whatever the filter.
func MatchActivities(pool []activity.Item, query string, filter Filter) []Result {
	out := []Result{}
	for i := range pool {
		it := pool[i]
		switch it.Kind {
		case activity.KindBeta:
			if filter != FilterAll && filter != FilterBeta {
				continue
			}
			if matchBeta(it, query) {
				out = append(out, Result{Kind: ResultBeta, Item: &it})
			}
		case activity.KindEvent:
			if filter != FilterAll && filter != FilterEvents {
				continue
			}
			if matchEvent(it, query) {
				out = append(out, Result{Kind: ResultEvent, Item: &it})
			}
		}
	}
	return out
}

func matchBeta(it activity.Item, q string) bool {
	if it.Beta == nil {
		return false
	}
	return utils.FoldContains(it.Beta.Content, q) || utils.FoldContains(it.Beta.Gym.Name, q)
}

func matchEvent(it activity.Item, q string) bool {
	e := it.Event
	if e == nil {
		return false
	}
	if utils.FoldContains(e.Title, q) || utils.FoldContains(e.Description, q) || utils.FoldContains(e.Location, q) {
		return true
	}
	return e.Gym != nil && utils.FoldContains(e.Gym.Name, q)
}
