package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
	watchlistsvc "github.com/wonny/stockwatch/internal/service/watchlist"
)

type fakePublisher struct {
	mu       sync.Mutex
	keys     []string
	payloads [][]byte
	err      error
	block    chan struct{}
	closed   bool
}

func (f *fakePublisher) Publish(ctx context.Context, key string, payload []byte) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func testAlert(symbol string) watchlistsvc.Alert {
	return watchlistsvc.Alert{
		Stock: watchlist.Stock{
			ID:            "1",
			Symbol:        symbol,
			Name:          "Apple",
			OwnerUserID:   "u1",
			CurrentPrice:  watchlist.StringPtr("110"),
			PreviousPrice: watchlist.StringPtr("100"),
		},
		Change: decimal.NewFromInt(10),
		Title:  "Apple Price Change",
		Body:   "The price of AAPL has changed by 10.00%.",
		At:     time.Date(2024, 12, 12, 10, 0, 0, 0, time.UTC),
	}
}

func TestNotifier_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNotifier(pub, NotifierConfig{})

	n.OnSignificantPriceChange(testAlert("AAPL"))
	require.NoError(t, n.Close())

	require.Len(t, pub.payloads, 1)
	assert.Equal(t, []string{"AAPL"}, pub.keys)
	assert.True(t, pub.closed)

	var msg Message
	require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
	assert.Equal(t, "u1", msg.UserID)
	assert.Equal(t, "10.00", msg.ChangePercent)
	assert.Equal(t, "110", msg.Price)
	assert.Equal(t, "100", msg.PreviousPrice)
	assert.Equal(t, "Apple Price Change", msg.Title)

	assert.Equal(t, int64(1), n.GetStats().Published)
}

func TestNotifier_CountsFailures(t *testing.T) {
	pub := &fakePublisher{err: errors.New("no route")}
	n := NewNotifier(pub, NotifierConfig{})

	n.OnSignificantPriceChange(testAlert("AAPL"))
	require.NoError(t, n.Close())

	assert.Equal(t, int64(1), n.GetStats().Failed)
}

func TestNotifier_DropsWhenQueueFull(t *testing.T) {
	pub := &fakePublisher{block: make(chan struct{})}
	n := NewNotifier(pub, NotifierConfig{QueueSize: 1})

	// the worker takes the first one and blocks, the second fills the queue
	n.OnSignificantPriceChange(testAlert("A"))
	require.Eventually(t, func() bool { return len(n.queue) == 0 }, time.Second, 5*time.Millisecond)
	n.OnSignificantPriceChange(testAlert("B"))
	n.OnSignificantPriceChange(testAlert("C"))

	assert.Equal(t, int64(1), n.GetStats().Dropped)

	close(pub.block)
	require.NoError(t, n.Close())
	assert.Equal(t, int64(2), n.GetStats().Published)
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(zerologNop())
	assert.NoError(t, p.Publish(context.Background(), "AAPL", []byte(`{"symbol":"AAPL"}`)))
	assert.NoError(t, p.Close())
}
