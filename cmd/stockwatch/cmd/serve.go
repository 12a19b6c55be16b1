package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/wonny/stockwatch/internal/api"
	"github.com/wonny/stockwatch/internal/api/handlers"
)

var servePort string

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the watchlist API server",
	Long: `Runs the watchlist manager and its HTTP API until interrupted.

Examples:
  stockwatch serve
  stockwatch serve --port 9000
  WATCHLIST_STORE=memory AUTH_ALLOW_DEV_SIGN_IN=true stockwatch serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "override PORT")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Server.Port = servePort
	}

	log.Info().
		Str("version", serviceVersion).
		Str("store", cfg.Watchlist.Store).
		Str("alerts", cfg.Alerts.Driver).
		Msg("🚀 Starting stockwatch API server...")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.manager.Start(ctx); err != nil {
		return fmt.Errorf("start watchlist manager: %w", err)
	}
	defer a.manager.Stop()

	health := handlers.NewHealthHandler(serviceVersion, a.checks...)
	health.AddStats("broker", func() interface{} { return a.broker.GetStats() })
	health.AddStats("alerts", func() interface{} { return a.notifier.GetStats() })
	health.AddStats("search_cache", func() interface{} { return a.search.Cache().GetStats() })
	health.AddStats("chart_cache", func() interface{} { return a.chart.Cache().GetStats() })

	router := api.NewRouter(cfg, api.Dependencies{
		Watchlist: a.manager,
		Broker:    a.broker,
		Search:    a.search,
		History:   a.chart,
		Sessions:  a.sessions,
		Health:    health,
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	// WriteTimeout 0 keeps SSE streams open; they end when streamCtx is cancelled
	streamCtx, stopStreams := context.WithCancel(ctx)
	defer stopStreams()

	server := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return streamCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", addr).Msg("🎯 API server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("🛑 Shutdown signal received, stopping server...")
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	stopStreams()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("👋 stockwatch API server stopped")
	return nil
}
