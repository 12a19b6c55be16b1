package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wonny/stockwatch/internal/domain/quote"
	"golang.org/x/sync/singleflight"
)

// sharedSearchTimeout bounds a provider request shared by several callers
const sharedSearchTimeout = 15 * time.Second

// Service answers symbol searches from the cache, falling back to the provider
type Service struct {
	provider quote.SymbolSearcher
	cache    *Cache
	sf       singleflight.Group
}

// NewService creates a search service
func NewService(provider quote.SymbolSearcher, cache *Cache) *Service {
	if cache == nil {
		cache = NewCache(DefaultCacheSize)
	}
	return &Service{
		provider: provider,
		cache:    cache,
	}
}

// Search trims query and returns matching symbols.
// An empty query yields no results and no provider call.
// Concurrent identical queries share one provider request.
func (s *Service) Search(ctx context.Context, query string) ([]quote.SymbolMatch, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []quote.SymbolMatch{}, nil
	}

	if matches, ok := s.cache.Lookup(q); ok {
		log.Debug().Str("query", q).Int("results", len(matches)).Msg("Search cache hit")
		return matches, nil
	}

	// the shared request must outlive any single caller giving up
	v, err, shared := s.sf.Do(q, func() (interface{}, error) {
		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedSearchTimeout)
		defer cancel()

		matches, err := s.provider.SearchSymbols(reqCtx, q)
		if err != nil {
			return nil, err
		}
		s.cache.Insert(q, matches)
		return matches, nil
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}

	log.Debug().
		Str("query", q).
		Bool("shared", shared).
		Msg("Search provider call")

	return copyMatches(v.([]quote.SymbolMatch)), nil
}

// Cache exposes the underlying cache for stats
func (s *Service) Cache() *Cache {
	return s.cache
}
