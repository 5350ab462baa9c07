package search

import (
	"context"

	"cragline/backend/internal/state"
)

type State struct {
	state.Status
	Query   string   `json:"query"`
	Filter  Filter   `json:"filter"`
	Results []Result `json:"results"`
}

// Model is the search screen state of one user.
type Model struct {
	svc   *Service
	store *state.Store[State]
}

func NewModel(svc *Service) *Model {
	return &Model{
		svc:   svc,
		store: state.New(State{Filter: FilterAll, Results: []Result{}}),
	}
}

func (m *Model) State() State { return m.store.Get() }

func (m *Model) Subscribe(fn func(prev, next State)) func() {
	return m.store.Subscribe(fn)
}

func (m *Model) Search(ctx context.Context, query string, filter Filter) {
	if filter == "" {
		filter = FilterAll
	}
	m.store.Update(func(s *State) {
		s.Query = query
		s.Filter = filter
		s.Begin()
	})

	results, err := m.svc.Search(ctx, query, filter)
	if err != nil {
		m.svc.log.Error(ctx, "search", err)
		m.store.Update(func(s *State) { s.Fail("Search failed. Try again.") })
		return
	}
	m.store.Update(func(s *State) {
		s.Done()
		s.Results = results
	})
}

func (m *Model) Clear() {
	m.store.Update(func(s *State) {
		s.Query = ""
		s.Results = []Result{}
		s.Status = state.Status{}
	})
}
