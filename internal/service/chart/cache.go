package chart

import (
	"sync"
	"time"

	"github.com/wonny/stockwatch/internal/domain/quote"
)

// ==============================================================================
// Cache - option chains per (symbol, range)
// ==============================================================================

// Cache keeps the last chain loaded for each symbol and range.
// Entries older than their TTL are reported as stale, not evicted.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*CachedChain

	// Metrics
	hits   int64
	misses int64
}

// CachedChain is one cached option chain
type CachedChain struct {
	Symbol    string
	Range     quote.ChartRange
	Contracts []quote.OptionContract
	LoadedAt  time.Time
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*CachedChain)}
}

func cacheKey(symbol string, r quote.ChartRange) string {
	return symbol + "|" + string(r)
}

// Get returns a copy of the cached chain, or nil on a miss
func (c *Cache) Get(symbol string, r quote.ChartRange) *CachedChain {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.entries[cacheKey(symbol, r)]
	if !ok {
		c.misses++
		return nil
	}
	c.hits++

	out := *cached
	out.Contracts = append([]quote.OptionContract(nil), cached.Contracts...)
	return &out
}

// Put stores contracts for symbol and r
func (c *Cache) Put(symbol string, r quote.ChartRange, contracts []quote.OptionContract, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(symbol, r)] = &CachedChain{
		Symbol:    symbol,
		Range:     r,
		Contracts: append([]quote.OptionContract(nil), contracts...),
		LoadedAt:  at,
	}
}

// Invalidate drops every range cached for symbol
func (c *Cache) Invalidate(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range quote.AllRanges {
		delete(c.entries, cacheKey(symbol, r))
	}
}

// CacheStats holds cache statistics
type CacheStats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// GetStats returns cache statistics
func (c *Cache) GetStats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}

	return CacheStats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: hitRate,
	}
}
