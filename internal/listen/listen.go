// Package listen turns Firestore snapshot listeners into cancellable
// subscriptions. Every delivery is the full result set of the query, never a
// delta.
package listen

import (
	"context"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Subscription is the handle a caller keeps for a running listener.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start runs fn on its own goroutine with a context that Stop cancels.
func Start(ctx context.Context, fn func(ctx context.Context)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		fn(ctx)
	}()
	return s
}

// Stop cancels the listener and waits for its goroutine to exit. Safe to call
// more than once and on a nil handle.
func (s *Subscription) Stop() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the listener has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Query subscribes to q, decoding every document with decode. Documents that
// fail to decode are skipped. onErr is called once with the terminal error
// unless the subscription was stopped.
func Query[T any](
	ctx context.Context,
	q firestore.Query,
	decode func(*firestore.DocumentSnapshot) (T, error),
	onSnapshot func([]T),
	onErr func(error),
) *Subscription {
	return Start(ctx, func(ctx context.Context) {
		it := q.Snapshots(ctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled && onErr != nil {
					onErr(err)
				}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				if ctx.Err() == nil && onErr != nil {
					onErr(err)
				}
				return
			}
			out := make([]T, 0, len(docs))
			for _, d := range docs {
				v, err := decode(d)
				if err != nil {
					continue
				}
				out = append(out, v)
			}
			onSnapshot(out)
		}
	})
}
