package notification

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Subscription is a live feed registered by Subscribe.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	closed atomic.Bool
}

// Unsubscribe stops the feed and waits for its listener goroutine to exit.
// No callback runs after it returns. It must not be called from inside the
// listener.
func (s *Subscription) Unsubscribe() {
	if s.closed.Swap(true) {
		<-s.done
		return
	}
	s.cancel()
	<-s.done
}

// Done is closed when the feed has stopped, either through Unsubscribe, the
// parent context, or a store failure.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) deliver(listener func([]View), views []View) {
	if s.closed.Load() {
		return
	}
	listener(views)
}

// Subscribe registers listener for the live relevant set of user. Each store
// change delivers the complete set, not a diff. When the store fails past the
// retry policy the listener receives one empty set and the feed stops.
//
// The live window is the newest subscribeLimit raw documents, filtered after
// the read; relevant documents behind that window are reached through
// FetchPage only. A limit of zero or less watches the whole collection.
func (s *NotificationService) Subscribe(ctx context.Context, user *UserProfile, listener func([]View)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	if user == nil || listener == nil {
		sub.closed.Store(true)
		cancel()
		close(sub.done)
		return sub
	}

	go func() {
		defer close(sub.done)
		defer cancel()
		s.watch(ctx, user, sub, listener)
	}()
	return sub
}

func (s *NotificationService) watch(ctx context.Context, user *UserProfile, sub *Subscription, listener func([]View)) {
	for attempt := 0; ; attempt++ {
		err := s.store.Watch(ctx, ListQuery{Now: s.now(), Limit: s.subscribeLimit}, func(docs []*Notification) {
			attempt = 0
			sub.deliver(listener, s.views(docs, user))
		})
		if ctx.Err() != nil || err == nil {
			return
		}

		slog.Error("notification subscription failed", "uid", user.UID, "attempt", attempt+1, "error", err)
		if !isTransient(err) || attempt+1 >= s.retry.Attempts {
			sub.deliver(listener, []View{})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retry.delay(attempt)):
		}
	}
}
