package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type counter struct {
	N     int
	Items []string
}

func TestUpdatePublishesDiff(t *testing.T) {
	s := New(counter{N: 1})

	var got [][2]int
	unsub := s.Subscribe(func(prev, next counter) {
		got = append(got, [2]int{prev.N, next.N})
	})

	s.Update(func(c *counter) { c.N++ })
	s.Update(func(c *counter) { c.N += 10 })
	unsub()
	s.Update(func(c *counter) { c.N = 0 })

	assert.Equal(t, [][2]int{{1, 2}, {2, 12}}, got)
	assert.Equal(t, 0, s.Get().N)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	s := New(counter{})
	calls := 0
	unsub := s.Subscribe(func(_, _ counter) { calls++ })
	unsub()
	unsub()
	s.Update(func(c *counter) { c.N = 3 })
	assert.Zero(t, calls)
}

func TestPreviousSnapshotUntouched(t *testing.T) {
	s := New(counter{Items: []string{"a"}})
	var prevItems []string
	s.Subscribe(func(prev, _ counter) { prevItems = prev.Items })

	s.Update(func(c *counter) {
		c.Items = append([]string{}, c.Items...)
		c.Items = append(c.Items, "b")
	})

	assert.Equal(t, []string{"a"}, prevItems)
	assert.Equal(t, []string{"a", "b"}, s.Get().Items)
}

func TestStatusTransitions(t *testing.T) {
	var st Status
	st.Begin()
	assert.True(t, st.IsLoading)

	st.Fail("Could not load feed")
	assert.False(t, st.IsLoading)
	assert.True(t, st.HasError)
	assert.Equal(t, "Could not load feed", st.ErrorMessage)

	st.Begin()
	assert.False(t, st.HasError)
	assert.Empty(t, st.ErrorMessage)
}
