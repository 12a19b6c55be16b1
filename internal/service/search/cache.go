package search

import (
	"sync"

	"github.com/wonny/stockwatch/internal/domain/quote"
)

// ==============================================================================
// Cache - bounded search result cache, oldest inserted key evicted first
// ==============================================================================

// DefaultCacheSize is the number of distinct queries kept
const DefaultCacheSize = 100

// Cache maps a trimmed query to its results.
// Reads never change eviction order.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string][]quote.SymbolMatch
	order    []string // insertion order, oldest first

	// Metrics
	hits      int64
	misses    int64
	evictions int64
}

// NewCache creates a cache holding at most capacity queries
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string][]quote.SymbolMatch, capacity),
		order:    make([]string, 0, capacity),
	}
}

// Lookup returns a copy of the cached results for query
func (c *Cache) Lookup(query string) ([]quote.SymbolMatch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	matches, ok := c.entries[query]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return copyMatches(matches), true
}

// Insert stores results for query.
// A new key at capacity evicts exactly one entry, the oldest inserted.
// Re-inserting an existing key overwrites it in place.
func (c *Cache) Insert(query string, matches []quote.SymbolMatch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[query]; exists {
		c.entries[query] = copyMatches(matches)
		return
	}

	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		c.evictions++
	}

	c.entries[query] = copyMatches(matches)
	c.order = append(c.order, query)
}

// Len returns the number of cached queries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns cached queries, oldest first
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, len(c.order))
	copy(keys, c.order)
	return keys
}

// ==============================================================================
// Stats
// ==============================================================================

// CacheStats holds cache statistics
type CacheStats struct {
	Size      int     `json:"size"`
	Capacity  int     `json:"capacity"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"` // percentage
}

// GetStats returns cache statistics
func (c *Cache) GetStats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hitRate := float64(0)
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}

	return CacheStats{
		Size:      len(c.entries),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		HitRate:   hitRate,
	}
}

func copyMatches(in []quote.SymbolMatch) []quote.SymbolMatch {
	if in == nil {
		return []quote.SymbolMatch{}
	}
	out := make([]quote.SymbolMatch, len(in))
	copy(out, in)
	return out
}
