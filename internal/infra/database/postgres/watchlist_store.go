package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
	"github.com/wonny/stockwatch/internal/infra/feed"
)

// ChangeChannel is the NOTIFY channel raised by the watchlist.stocks trigger
const ChangeChannel = "watchlist_stocks_changed"

const stockColumns = `
	id::text, owner_user_id, symbol, name,
	current_price, previous_price, daily_change, weekly_change, monthly_change,
	change_computed_at`

// WatchlistStore implements watchlist.Store on PostgreSQL.
// Live snapshots are driven by LISTEN on ChangeChannel over one dedicated connection.
type WatchlistStore struct {
	pool *Pool
	feed *feed.Feed

	retryDelay time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatchlistStore creates a store; call Listen to enable live snapshots
func NewWatchlistStore(pool *Pool) *WatchlistStore {
	s := &WatchlistStore{pool: pool, retryDelay: 2 * time.Second}
	s.feed = feed.New(s.fetchEverything)
	return s
}

// FetchAll returns every entry owned by ownerUserID
func (s *WatchlistStore) FetchAll(ctx context.Context, ownerUserID string) ([]watchlist.Stock, error) {
	query := `SELECT ` + stockColumns + `
		FROM watchlist.stocks
		WHERE owner_user_id = $1
		ORDER BY created_ts`

	rows, err := s.pool.Query(withOperation(ctx, "fetch_all"), query, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: query stocks: %v", watchlist.ErrStoreFailure, err)
	}
	return scanStocks(rows)
}

func (s *WatchlistStore) fetchEverything(ctx context.Context) ([]watchlist.Stock, error) {
	rows, err := s.pool.Query(withOperation(ctx, "snapshot"), `SELECT `+stockColumns+` FROM watchlist.stocks ORDER BY created_ts`)
	if err != nil {
		return nil, fmt.Errorf("%w: query stocks: %v", watchlist.ErrStoreFailure, err)
	}
	return scanStocks(rows)
}

func scanStocks(rows pgx.Rows) ([]watchlist.Stock, error) {
	defer rows.Close()

	stocks := []watchlist.Stock{}
	for rows.Next() {
		var st watchlist.Stock
		err := rows.Scan(
			&st.ID, &st.OwnerUserID, &st.Symbol, &st.Name,
			&st.CurrentPrice, &st.PreviousPrice, &st.DailyChange, &st.WeeklyChange, &st.MonthlyChange,
			&st.ChangeComputedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan stock: %v", watchlist.ErrStoreFailure, err)
		}
		stocks = append(stocks, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate stocks: %v", watchlist.ErrStoreFailure, err)
	}
	return stocks, nil
}

// Save upserts stock. Without an id, the row for (owner, symbol) is reused.
func (s *WatchlistStore) Save(ctx context.Context, stock watchlist.Stock, ownerUserID string) (watchlist.Stock, error) {
	stock.Symbol = strings.TrimSpace(stock.Symbol)
	if stock.Symbol == "" {
		return watchlist.Stock{}, watchlist.ErrInvalidSymbol
	}

	id := stock.ID
	conflict := "(id)"
	if id == "" {
		id = uuid.NewString()
		conflict = "(owner_user_id, symbol)"
	} else if _, err := uuid.Parse(id); err != nil {
		return watchlist.Stock{}, fmt.Errorf("%w: %q", watchlist.ErrMissingID, id)
	}

	query := `
		INSERT INTO watchlist.stocks (
			id, owner_user_id, symbol, name,
			current_price, previous_price, daily_change, weekly_change, monthly_change,
			change_computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT ` + conflict + ` DO UPDATE SET
			name               = EXCLUDED.name,
			current_price      = EXCLUDED.current_price,
			previous_price     = EXCLUDED.previous_price,
			daily_change       = EXCLUDED.daily_change,
			weekly_change      = EXCLUDED.weekly_change,
			monthly_change     = EXCLUDED.monthly_change,
			change_computed_at = EXCLUDED.change_computed_at,
			updated_ts         = NOW()
		RETURNING id::text`

	var savedID string
	err := s.pool.QueryRow(withOperation(ctx, "save"), query,
		id, ownerUserID, stock.Symbol, stock.Name,
		stock.CurrentPrice, stock.PreviousPrice, stock.DailyChange, stock.WeeklyChange, stock.MonthlyChange,
		stock.ChangeComputedAt,
	).Scan(&savedID)
	if err != nil {
		return watchlist.Stock{}, fmt.Errorf("%w: save %s: %v", watchlist.ErrStoreFailure, stock.Symbol, err)
	}

	out := stock.Clone()
	out.ID = savedID
	out.OwnerUserID = ownerUserID
	return out, nil
}

// Delete removes the row with id; a missing row is not an error
func (s *WatchlistStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("delete: %w", watchlist.ErrMissingID)
	}

	if _, err := s.pool.Exec(withOperation(ctx, "delete"), `DELETE FROM watchlist.stocks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%w: delete %s: %v", watchlist.ErrStoreFailure, id, err)
	}
	return nil
}

// Subscribe delivers the whole table after every committed change
func (s *WatchlistStore) Subscribe(ctx context.Context, onSnapshot func([]watchlist.Stock), onError func(error)) (watchlist.Subscription, error) {
	return s.feed.Subscribe(ctx, onSnapshot, onError)
}

// ==============================================================================
// LISTEN loop
// ==============================================================================

// Listen starts the notification loop; it reconnects until Close
func (s *WatchlistStore) Listen(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.listenLoop(ctx)
}

func (s *WatchlistStore) listenLoop(ctx context.Context) {
	defer close(s.done)

	for {
		err := s.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		log.Warn().Err(err).Dur("retry_in", s.retryDelay).Msg("Watchlist LISTEN connection lost")
		s.feed.NotifyError(fmt.Errorf("%w: %v", watchlist.ErrStoreFailure, err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryDelay):
		}
	}
}

func (s *WatchlistStore) listenOnce(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	log.Info().Str("channel", ChangeChannel).Msg("✅ Listening for watchlist changes")

	// changes may have been missed while disconnected
	s.feed.Notify()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			// drop the connection rather than return it to the pool mid-LISTEN
			conn.Conn().Close(context.Background())
			return err
		}
		log.Debug().Str("channel", n.Channel).Str("id", n.Payload).Msg("Watchlist change notification")
		s.feed.Notify()
	}
}

// Close stops the LISTEN loop and ends every subscription
func (s *WatchlistStore) Close() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.feed.Close()
}
