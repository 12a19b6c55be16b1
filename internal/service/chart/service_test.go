package chart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/stockwatch/internal/domain/quote"
)

type fakeOptions struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeOptions) GetHistoricalOptions(ctx context.Context, symbol string, r quote.ChartRange) ([]quote.OptionContract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []quote.OptionContract{{Symbol: symbol, Strike: "100.00"}}, nil
}

func newTestService(provider *fakeOptions) (*Service, *time.Time) {
	now := time.Date(2024, 12, 12, 10, 0, 0, 0, time.UTC)
	s := NewService(provider, Config{})
	s.now = func() time.Time { return now }
	return s, &now
}

func TestHistory_CachesPerRange(t *testing.T) {
	provider := &fakeOptions{}
	s, _ := newTestService(provider)
	ctx := context.Background()

	h, err := s.History(ctx, " ibm ", quote.RangeOneMonth)
	require.NoError(t, err)
	assert.Equal(t, "IBM", h.Symbol)
	assert.Equal(t, "1M", h.Title)
	assert.Equal(t, "2024-11-12", h.StartDate)
	assert.False(t, h.Cached)

	h, err = s.History(ctx, "IBM", quote.RangeOneMonth)
	require.NoError(t, err)
	assert.True(t, h.Cached)

	_, err = s.History(ctx, "IBM", quote.RangeOneYear)
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls)
	assert.Equal(t, 2, s.Cache().GetStats().Entries)
}

func TestHistory_ExpiredReloads(t *testing.T) {
	provider := &fakeOptions{}
	s, now := newTestService(provider)
	ctx := context.Background()

	_, err := s.History(ctx, "IBM", quote.RangeOneDay)
	require.NoError(t, err)

	*now = now.Add(6 * time.Minute)
	h, err := s.History(ctx, "IBM", quote.RangeOneDay)
	require.NoError(t, err)
	assert.False(t, h.Cached)
	assert.Equal(t, 2, provider.calls)
}

func TestHistory_StaleOnProviderError(t *testing.T) {
	provider := &fakeOptions{}
	s, now := newTestService(provider)
	ctx := context.Background()

	_, err := s.History(ctx, "IBM", quote.RangeOneDay)
	require.NoError(t, err)

	*now = now.Add(time.Hour)
	provider.err = quote.ErrRateLimited

	h, err := s.History(ctx, "IBM", quote.RangeOneDay)
	require.NoError(t, err)
	assert.True(t, h.Cached)
	require.Len(t, h.Contracts, 1)
}

func TestHistory_Errors(t *testing.T) {
	provider := &fakeOptions{err: quote.ErrTransport}
	s, _ := newTestService(provider)
	ctx := context.Background()

	_, err := s.History(ctx, "IBM", quote.ChartRange("3w"))
	assert.ErrorIs(t, err, quote.ErrInvalidRange)

	_, err = s.History(ctx, "", quote.RangeMax)
	assert.ErrorIs(t, err, quote.ErrSymbolNotFound)

	_, err = s.History(ctx, "IBM", quote.RangeMax)
	assert.ErrorIs(t, err, quote.ErrTransport)
}

func TestCache_Invalidate(t *testing.T) {
	c := NewCache()
	at := time.Now()
	c.Put("IBM", quote.RangeOneDay, nil, at)
	c.Put("IBM", quote.RangeMax, nil, at)
	c.Put("AAPL", quote.RangeMax, nil, at)

	c.Invalidate("IBM")

	assert.Nil(t, c.Get("IBM", quote.RangeOneDay))
	assert.NotNil(t, c.Get("AAPL", quote.RangeMax))

	stats := c.GetStats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 50.0, stats.HitRate, 0.001)
}
