// Package chart serves historical option chains for the stock detail chart.
package chart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wonny/stockwatch/internal/domain/quote"
	"golang.org/x/sync/singleflight"
)

// History is what the chart view shows for one symbol and range
type History struct {
	Symbol    string                 `json:"symbol"`
	Range     quote.ChartRange       `json:"range"`
	Title     string                 `json:"title"`
	StartDate string                 `json:"start_date"`
	Contracts []quote.OptionContract `json:"contracts"`
	Cached    bool                   `json:"cached"`
	LoadedAt  time.Time              `json:"loaded_at"`
}

// Config holds service configuration
type Config struct {
	IntradayTTL time.Duration // TTL for the 1d range (default: 5m)
	TTL         time.Duration // TTL for every other range (default: 1h)
}

// Service loads option chains through a cache
type Service struct {
	provider quote.OptionsClient
	cache    *Cache
	cfg      Config
	sf       singleflight.Group
	now      func() time.Time
}

// NewService creates a chart service
func NewService(provider quote.OptionsClient, cfg Config) *Service {
	if cfg.IntradayTTL <= 0 {
		cfg.IntradayTTL = 5 * time.Minute
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &Service{
		provider: provider,
		cache:    NewCache(),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Cache exposes the underlying cache for stats
func (s *Service) Cache() *Cache {
	return s.cache
}

func (s *Service) ttl(r quote.ChartRange) time.Duration {
	if r == quote.RangeOneDay {
		return s.cfg.IntradayTTL
	}
	return s.cfg.TTL
}

// History returns the option chain for symbol over r.
// A fresh cached chain is returned without calling the provider; a stale one
// is served when the provider fails.
func (s *Service) History(ctx context.Context, symbol string, r quote.ChartRange) (*History, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, quote.ErrSymbolNotFound
	}
	r, err := quote.ParseChartRange(string(r))
	if err != nil {
		return nil, err
	}

	now := s.now()
	cached := s.cache.Get(symbol, r)
	if cached != nil && now.Sub(cached.LoadedAt) < s.ttl(r) {
		return s.history(cached, now, true), nil
	}

	v, err, _ := s.sf.Do(cacheKey(symbol, r), func() (interface{}, error) {
		contracts, err := s.provider.GetHistoricalOptions(ctx, symbol, r)
		if err != nil {
			return nil, err
		}
		s.cache.Put(symbol, r, contracts, now)
		return &CachedChain{Symbol: symbol, Range: r, Contracts: contracts, LoadedAt: now}, nil
	})
	if err != nil {
		if cached != nil {
			log.Warn().Err(err).Str("symbol", symbol).Str("range", string(r)).Msg("Serving stale chart data")
			return s.history(cached, now, true), nil
		}
		return nil, fmt.Errorf("history %s %s: %w", symbol, r, err)
	}

	return s.history(v.(*CachedChain), now, false), nil
}

func (s *Service) history(c *CachedChain, now time.Time, cached bool) *History {
	return &History{
		Symbol:    c.Symbol,
		Range:     c.Range,
		Title:     c.Range.Title(),
		StartDate: c.Range.StartDate(now),
		Contracts: c.Contracts,
		Cached:    cached,
		LoadedAt:  c.LoadedAt,
	}
}
