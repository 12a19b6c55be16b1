// Package redisstore implements watchlist.Store on Redis hashes with pub/sub change signals.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
	"github.com/wonny/stockwatch/internal/infra/feed"
)

const defaultPrefix = "stockwatch:watchlist:"

// Store keeps entries in one hash keyed by id, plus an (owner, symbol) → id index.
// Every write publishes on the change channel.
type Store struct {
	client redis.UniversalClient
	prefix string
	feed   *feed.Feed

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

// New creates a store using client; keys are namespaced under prefix (default "stockwatch:watchlist:")
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	s := &Store{client: client, prefix: prefix}
	s.feed = feed.New(s.fetchEverything)
	return s
}

func (s *Store) stocksKey() string { return s.prefix + "stocks" }
func (s *Store) indexKey() string  { return s.prefix + "index" }
func (s *Store) channel() string   { return s.prefix + "changed" }

func indexField(owner, symbol string) string {
	return owner + "|" + symbol
}

// FetchAll returns every entry owned by ownerUserID
func (s *Store) FetchAll(ctx context.Context, ownerUserID string) ([]watchlist.Stock, error) {
	all, err := s.fetchEverything(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]watchlist.Stock, 0, len(all))
	for _, st := range all {
		if st.OwnerUserID == ownerUserID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *Store) fetchEverything(ctx context.Context) ([]watchlist.Stock, error) {
	raw, err := s.client.HGetAll(ctx, s.stocksKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: hgetall: %v", watchlist.ErrStoreFailure, err)
	}

	out := make([]watchlist.Stock, 0, len(raw))
	for id, data := range raw {
		var st watchlist.Stock
		if err := json.Unmarshal([]byte(data), &st); err != nil {
			log.Warn().Err(err).Str("id", id).Msg("Skipping undecodable watchlist entry")
			continue
		}
		st.ID = id
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Save upserts stock. Without an id, the entry for (owner, symbol) is reused.
func (s *Store) Save(ctx context.Context, stock watchlist.Stock, ownerUserID string) (watchlist.Stock, error) {
	stock = stock.Clone()
	stock.Symbol = strings.TrimSpace(stock.Symbol)
	if stock.Symbol == "" {
		return watchlist.Stock{}, watchlist.ErrInvalidSymbol
	}
	stock.OwnerUserID = ownerUserID

	if stock.ID == "" {
		id, err := s.client.HGet(ctx, s.indexKey(), indexField(ownerUserID, stock.Symbol)).Result()
		switch {
		case errors.Is(err, redis.Nil):
			stock.ID = uuid.NewString()
		case err != nil:
			return watchlist.Stock{}, fmt.Errorf("%w: hget index: %v", watchlist.ErrStoreFailure, err)
		default:
			stock.ID = id
		}
	}

	data, err := json.Marshal(stock)
	if err != nil {
		return watchlist.Stock{}, fmt.Errorf("marshal %s: %w", stock.Symbol, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.stocksKey(), stock.ID, data)
		pipe.HSet(ctx, s.indexKey(), indexField(ownerUserID, stock.Symbol), stock.ID)
		pipe.Publish(ctx, s.channel(), stock.ID)
		return nil
	})
	if err != nil {
		return watchlist.Stock{}, fmt.Errorf("%w: save %s: %v", watchlist.ErrStoreFailure, stock.Symbol, err)
	}

	return stock, nil
}

// Delete removes the entry with id; a missing entry is not an error
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete: %w", watchlist.ErrMissingID)
	}

	data, err := s.client.HGet(ctx, s.stocksKey(), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: hget %s: %v", watchlist.ErrStoreFailure, id, err)
	}

	var st watchlist.Stock
	_ = json.Unmarshal([]byte(data), &st)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.stocksKey(), id)
		if st.Symbol != "" {
			pipe.HDel(ctx, s.indexKey(), indexField(st.OwnerUserID, st.Symbol))
		}
		pipe.Publish(ctx, s.channel(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", watchlist.ErrStoreFailure, id, err)
	}
	return nil
}

// Subscribe delivers the whole collection after every published change
func (s *Store) Subscribe(ctx context.Context, onSnapshot func([]watchlist.Stock), onError func(error)) (watchlist.Subscription, error) {
	return s.feed.Subscribe(ctx, onSnapshot, onError)
}

// Listen subscribes to the change channel; call once before relying on Subscribe
func (s *Store) Listen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pubsub != nil {
		return nil
	}

	ps := s.client.Subscribe(ctx, s.channel())
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return fmt.Errorf("%w: subscribe %s: %v", watchlist.ErrStoreFailure, s.channel(), err)
	}

	s.pubsub = ps
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		for msg := range ps.Channel() {
			log.Debug().Str("channel", msg.Channel).Str("id", msg.Payload).Msg("Watchlist change message")
			s.feed.Notify()
		}
	}()

	log.Info().Str("channel", s.channel()).Msg("✅ Listening for watchlist changes")
	return nil
}

// Close stops listening and ends every subscription
func (s *Store) Close() error {
	s.mu.Lock()
	ps, done := s.pubsub, s.done
	s.pubsub = nil
	s.mu.Unlock()

	var err error
	if ps != nil {
		err = ps.Close()
		<-done
	}
	s.feed.Close()
	return err
}
