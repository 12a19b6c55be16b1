package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/wonny/stockwatch/internal/api/handlers"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
	"github.com/wonny/stockwatch/internal/infra/alerts"
	"github.com/wonny/stockwatch/internal/infra/alphavantage"
	"github.com/wonny/stockwatch/internal/infra/database/postgres"
	"github.com/wonny/stockwatch/internal/infra/memstore"
	"github.com/wonny/stockwatch/internal/infra/redisstore"
	"github.com/wonny/stockwatch/internal/pkg/config"
	"github.com/wonny/stockwatch/internal/pkg/logger"
	"github.com/wonny/stockwatch/internal/service/chart"
	"github.com/wonny/stockwatch/internal/service/search"
	"github.com/wonny/stockwatch/internal/service/session"
	watchlistsvc "github.com/wonny/stockwatch/internal/service/watchlist"
)

// app holds every long-lived component of the server
type app struct {
	quotes   *alphavantage.Client
	store    watchlist.Store
	manager  *watchlistsvc.Manager
	broker   *watchlistsvc.Broker
	notifier *alerts.Notifier
	sessions *session.Provider
	search   *search.Service
	chart    *chart.Service
	checks   []handlers.HealthCheck

	closers []func()
}

func newQuoteClient(cfg *config.Config) *alphavantage.Client {
	return alphavantage.NewClient(alphavantage.Config{
		BaseURL:        cfg.AlphaVantage.BaseURL,
		APIKey:         cfg.AlphaVantage.APIKey,
		Timeout:        cfg.AlphaVantage.Timeout,
		RequestsPerMin: cfg.AlphaVantage.RequestsPerMin,
	})
}

// buildApp wires components in dependency order; close releases them in reverse
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{quotes: newQuoteClient(cfg)}

	if err := a.openStore(ctx, cfg); err != nil {
		a.close()
		return nil, err
	}

	pub, err := newPublisher(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.notifier = alerts.NewNotifier(pub, alerts.NotifierConfig{})
	a.closers = append(a.closers, func() {
		if err := a.notifier.Close(); err != nil {
			log.Warn().Err(err).Msg("Alert publisher close failed")
		}
	})

	a.broker = watchlistsvc.NewBroker(watchlistsvc.BrokerConfig{})
	a.closers = append(a.closers, a.broker.Close)

	a.sessions = session.NewProvider(session.Config{
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowDevSignIn: cfg.Auth.AllowDevSignIn,
	})

	a.manager = watchlistsvc.NewManager(watchlistsvc.Dependencies{
		Store:    a.store,
		Quotes:   a.quotes,
		History:  a.quotes,
		Auth:     a.sessions,
		Listener: watchlistsvc.Listeners{a.broker, a.notifier},
	}, watchlistsvc.Config{
		RefreshInterval:    cfg.Watchlist.RefreshInterval,
		SignificantPercent: cfg.Watchlist.SignificantPercent,
		RefreshConcurrency: cfg.Watchlist.RefreshConcurrency,
	})

	a.search = search.NewService(a.quotes, search.NewCache(cfg.Watchlist.SearchCacheSize))
	a.chart = chart.NewService(a.quotes, chart.Config{})
	a.checks = append(a.checks, handlers.ManagerCheck(a.manager.IsRunning))

	return a, nil
}

// openStore selects the watchlist store named by WATCHLIST_STORE
func (a *app) openStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.Watchlist.Store {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		store := postgres.NewWatchlistStore(pool)
		store.Listen(ctx)

		a.store = store
		a.checks = append(a.checks, handlers.PostgresCheck(pool))
		a.closers = append(a.closers, pool.Close, store.Close)

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func() { client.Close() })

		store := redisstore.New(client, "")
		if err := store.Listen(ctx); err != nil {
			return err
		}

		a.store = store
		a.checks = append(a.checks, handlers.RedisCheck(client))
		a.closers = append(a.closers, func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("Redis store close failed")
			}
		})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("✅ Redis watchlist store ready")

	default:
		store := memstore.New()
		a.store = store
		a.closers = append(a.closers, store.Close)
		log.Warn().Msg("Using in-memory watchlist store; data is lost on exit")
	}

	return nil
}

// newPublisher selects the alert transport named by ALERTS_DRIVER
func newPublisher(cfg *config.Config) (alerts.Publisher, error) {
	switch cfg.Alerts.Driver {
	case "nats":
		pub, err := alerts.NewNATSPublisher(cfg.Alerts.NATSURL, cfg.Alerts.NATSSubject)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		return pub, nil
	case "kafka":
		return alerts.NewKafkaPublisher(cfg.Alerts.KafkaBrokers, cfg.Alerts.KafkaTopic), nil
	default:
		return alerts.NewLogPublisher(logger.Component("alerts")), nil
	}
}

// close releases components in reverse order of creation
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
