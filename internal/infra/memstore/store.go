// Package memstore is an in-process watchlist.Store for development and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
	"github.com/wonny/stockwatch/internal/infra/feed"
)

// Store keeps every entry in memory
type Store struct {
	mu   sync.RWMutex
	docs map[string]watchlist.Stock

	feed *feed.Feed
}

// New creates an empty store
func New() *Store {
	s := &Store{docs: make(map[string]watchlist.Stock)}
	s.feed = feed.New(func(ctx context.Context) ([]watchlist.Stock, error) {
		return s.all(), nil
	})
	return s
}

// FetchAll returns the entries owned by ownerUserID
func (s *Store) FetchAll(ctx context.Context, ownerUserID string) ([]watchlist.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []watchlist.Stock{}
	for _, d := range s.docs {
		if d.OwnerUserID == ownerUserID {
			out = append(out, d.Clone())
		}
	}
	sortByID(out)
	return out, nil
}

// Save inserts or updates an entry.
// Without an id, an existing entry for the same owner and symbol is updated.
func (s *Store) Save(ctx context.Context, stock watchlist.Stock, ownerUserID string) (watchlist.Stock, error) {
	if strings.TrimSpace(stock.Symbol) == "" {
		return watchlist.Stock{}, watchlist.ErrInvalidSymbol
	}

	s.mu.Lock()
	stock = stock.Clone()
	stock.OwnerUserID = ownerUserID
	if stock.ID == "" {
		for id, d := range s.docs {
			if d.OwnerUserID == ownerUserID && d.Symbol == stock.Symbol {
				stock.ID = id
				break
			}
		}
	}
	if stock.ID == "" {
		stock.ID = uuid.NewString()
	}
	s.docs[stock.ID] = stock
	s.mu.Unlock()

	s.feed.Notify()
	return stock.Clone(), nil
}

// Delete removes an entry; deleting an unknown id is not an error
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete: %w", watchlist.ErrMissingID)
	}

	s.mu.Lock()
	_, existed := s.docs[id]
	delete(s.docs, id)
	s.mu.Unlock()

	if existed {
		s.feed.Notify()
	}
	return nil
}

// Subscribe delivers the whole collection after every write
func (s *Store) Subscribe(ctx context.Context, onSnapshot func([]watchlist.Stock), onError func(error)) (watchlist.Subscription, error) {
	return s.feed.Subscribe(ctx, onSnapshot, onError)
}

// Close ends all subscriptions
func (s *Store) Close() {
	s.feed.Close()
}

func (s *Store) all() []watchlist.Stock {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]watchlist.Stock, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d.Clone())
	}
	sortByID(out)
	return out
}

func sortByID(stocks []watchlist.Stock) {
	sort.Slice(stocks, func(i, j int) bool { return stocks[i].ID < stocks[j].ID })
}
