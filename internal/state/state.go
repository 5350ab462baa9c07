// Package state holds observable view-model state.
//
// A Store publishes every Update to its subscribers as a (prev, next) pair so
// the presentation side can diff instead of polling. Values are treated as
// immutable snapshots: an Update must build new slices and maps rather than
// mutate the ones reachable from the previous value.
package state

import "sync"

type Store[T any] struct {
	mu    sync.Mutex
	emit  sync.Mutex
	value T
	subs  map[int]func(prev, next T)
	seq   int
}

func New[T any](initial T) *Store[T] {
	return &Store[T]{value: initial, subs: map[int]func(prev, next T){}}
}

func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Update applies fn to a copy of the current value and publishes the result.
// Subscribers run on the caller's goroutine, in update order, and must not
// call Update themselves.
func (s *Store[T]) Update(fn func(*T)) T {
	s.emit.Lock()
	defer s.emit.Unlock()

	s.mu.Lock()
	prev := s.value
	next := prev
	fn(&next)
	s.value = next
	subs := make([]func(prev, next T), 0, len(s.subs))
	for _, f := range s.subs {
		subs = append(subs, f)
	}
	s.mu.Unlock()

	for _, f := range subs {
		f(prev, next)
	}
	return next
}

// Subscribe registers fn and returns a func that removes it.
func (s *Store[T]) Subscribe(fn func(prev, next T)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.seq
	s.seq++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Status is the loading/error triple every view-model carries.
type Status struct {
	IsLoading    bool   `json:"isLoading"`
	HasError     bool   `json:"hasError"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

func (s *Status) Begin() {
	s.IsLoading = true
	s.HasError = false
	s.ErrorMessage = ""
}

func (s *Status) Done() {
	s.IsLoading = false
}

func (s *Status) Fail(msg string) {
	s.IsLoading = false
	s.HasError = true
	s.ErrorMessage = msg
}
