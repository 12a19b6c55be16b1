// Package feed turns "something changed" signals into full collection snapshots.
// Every store backend uses it to implement watchlist.Store.Subscribe.
package feed

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
)

// Loader reads the current state of the whole collection
type Loader func(ctx context.Context) ([]watchlist.Stock, error)

// Feed fans change notifications out to subscribers.
// Notifications coalesce: a subscriber that is still handling a snapshot
// receives one more snapshot afterwards, not one per change.
type Feed struct {
	load Loader

	mu     sync.Mutex
	subs   map[*subscription]struct{}
	closed bool
}

// New creates a feed that reads snapshots with load
func New(load Loader) *Feed {
	return &Feed{
		load: load,
		subs: make(map[*subscription]struct{}),
	}
}

type subscription struct {
	feed       *Feed
	onSnapshot func([]watchlist.Stock)
	onError    func(error)
	wake       chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	once       sync.Once
}

// Subscribe registers handlers until ctx is done or Unsubscribe is called.
// No snapshot is delivered until the first Notify.
func (f *Feed) Subscribe(ctx context.Context, onSnapshot func([]watchlist.Stock), onError func(error)) (watchlist.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, watchlist.ErrStoreFailure
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		feed:       f,
		onSnapshot: onSnapshot,
		onError:    onError,
		wake:       make(chan struct{}, 1),
		ctx:        subCtx,
		cancel:     cancel,
	}
	f.subs[sub] = struct{}{}
	go sub.run()

	log.Debug().Int("subscribers", len(f.subs)).Msg("Feed: new subscription")
	return sub, nil
}

// Notify wakes every subscriber
func (f *Feed) Notify() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for sub := range f.subs {
		select {
		case sub.wake <- struct{}{}:
		default:
			// already pending
		}
	}
}

// NotifyError reports err to every subscriber
func (f *Feed) NotifyError(err error) {
	f.mu.Lock()
	subs := make([]*subscription, 0, len(f.subs))
	for sub := range f.subs {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		if sub.onError != nil {
			sub.onError(err)
		}
	}
}

// Len returns the number of open subscriptions
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close ends every subscription; later Subscribe calls fail
func (f *Feed) Close() {
	f.mu.Lock()
	subs := f.subs
	f.subs = make(map[*subscription]struct{})
	f.closed = true
	f.mu.Unlock()

	for sub := range subs {
		sub.cancel()
	}
}

func (s *subscription) run() {
	defer s.Unsubscribe()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}

		stocks, err := s.feed.load(s.ctx)
		if s.ctx.Err() != nil {
			return
		}
		if err != nil {
			if s.onError != nil {
				s.onError(err)
			}
			continue
		}
		s.onSnapshot(stocks)
	}
}

// Unsubscribe stops delivery; it is safe to call more than once
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		s.feed.mu.Lock()
		delete(s.feed.subs, s)
		s.feed.mu.Unlock()
	})
}
