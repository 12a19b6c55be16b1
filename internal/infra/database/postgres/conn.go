package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wonny/stockwatch/internal/pkg/config"
)

// Pool wraps pgxpool.Pool
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to cfg.Database.URL and verifies the connection.
// A missing watchlist schema is logged, not returned: `stockwatch migrate` creates it.
func NewPool(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime
	if tracer := queryTracer(cfg); tracer != nil {
		poolConfig.ConnConfig.Tracer = tracer
	}

	log.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Str("database", poolConfig.ConnConfig.Database).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("Connecting watchlist store to PostgreSQL")

	pgPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	pool := &Pool{Pool: pgPool}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ready, err := schemaReady(pingCtx, pool)
	if err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	if !ready {
		log.Warn().Msg("watchlist.stocks does not exist yet, run `stockwatch migrate`")
	}

	return pool, nil
}

// Close closes the connection pool
func (p *Pool) Close() {
	log.Info().Msg("Closing PostgreSQL connection pool")
	p.Pool.Close()
}
