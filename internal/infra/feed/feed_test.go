package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
)

type collector struct {
	mu        sync.Mutex
	snapshots [][]watchlist.Stock
	errs      []error
}

func (c *collector) onSnapshot(stocks []watchlist.Stock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = append(c.snapshots, stocks)
}

func (c *collector) onError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func (c *collector) count() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snapshots), len(c.errs)
}

func TestFeed_NotifyDeliversSnapshot(t *testing.T) {
	f := New(func(ctx context.Context) ([]watchlist.Stock, error) {
		return []watchlist.Stock{{ID: "1", Symbol: "AAPL"}}, nil
	})
	defer f.Close()

	c := &collector{}
	_, err := f.Subscribe(context.Background(), c.onSnapshot, c.onError)
	require.NoError(t, err)

	// nothing before the first notify
	time.Sleep(20 * time.Millisecond)
	n, _ := c.count()
	assert.Zero(t, n)

	f.Notify()
	require.Eventually(t, func() bool {
		n, _ := c.count()
		return n == 1
	}, time.Second, 5*time.Millisecond)
}

func TestFeed_LoaderError(t *testing.T) {
	f := New(func(ctx context.Context) ([]watchlist.Stock, error) {
		return nil, errors.New("connection reset")
	})
	defer f.Close()

	c := &collector{}
	_, err := f.Subscribe(context.Background(), c.onSnapshot, c.onError)
	require.NoError(t, err)

	f.Notify()
	require.Eventually(t, func() bool {
		_, e := c.count()
		return e == 1
	}, time.Second, 5*time.Millisecond)
}

func TestFeed_Unsubscribe(t *testing.T) {
	f := New(func(ctx context.Context) ([]watchlist.Stock, error) { return nil, nil })
	defer f.Close()

	c := &collector{}
	sub, err := f.Subscribe(context.Background(), c.onSnapshot, c.onError)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len())

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, f.Len())
}

func TestFeed_ContextCancelEndsSubscription(t *testing.T) {
	f := New(func(ctx context.Context) ([]watchlist.Stock, error) { return nil, nil })
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.Subscribe(ctx, func([]watchlist.Stock) {}, nil)
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool { return f.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestFeed_Closed(t *testing.T) {
	f := New(func(ctx context.Context) ([]watchlist.Stock, error) { return nil, nil })
	f.Close()

	_, err := f.Subscribe(context.Background(), func([]watchlist.Stock) {}, nil)
	assert.ErrorIs(t, err, watchlist.ErrStoreFailure)
}
