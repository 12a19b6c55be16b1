package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"
	"github.com/wonny/stockwatch/internal/api/handlers"
	"github.com/wonny/stockwatch/internal/api/middleware"
	"github.com/wonny/stockwatch/internal/api/routes"
	"github.com/wonny/stockwatch/internal/pkg/config"
	"github.com/wonny/stockwatch/internal/pkg/logger"
	watchlistsvc "github.com/wonny/stockwatch/internal/service/watchlist"
)

// Dependencies are the services exposed over HTTP
type Dependencies struct {
	Watchlist handlers.WatchlistService
	Broker    *watchlistsvc.Broker
	Search    handlers.Searcher
	History   handlers.HistoryService
	Sessions  handlers.SessionService
	Health    *handlers.HealthHandler
}

// Router holds all dependencies for API routing.
// REST routes live on a gin engine; streams are served by gorilla/mux in front of it.
type Router struct {
	engine *gin.Engine
	mux    *mux.Router
	config *config.Config

	healthHandler    *handlers.HealthHandler
	watchlistHandler *handlers.WatchlistHandler
	searchHandler    *handlers.SearchHandler
	sessionHandler   *handlers.SessionHandler
	historyHandler   *handlers.HistoryHandler
	streamHandler    *handlers.WatchlistStreamHandler
	searchWSHandler  *handlers.SearchStreamHandler
}

// NewRouter creates a new API router with all dependencies
func NewRouter(cfg *config.Config, deps Dependencies) *Router {
	gin.SetMode(cfg.Server.Mode)

	r := &Router{
		engine:           gin.New(),
		mux:              mux.NewRouter(),
		config:           cfg,
		healthHandler:    deps.Health,
		watchlistHandler: handlers.NewWatchlistHandler(deps.Watchlist),
		searchHandler:    handlers.NewSearchHandler(deps.Search),
		sessionHandler:   handlers.NewSessionHandler(deps.Sessions),
		historyHandler:   handlers.NewHistoryHandler(deps.History),
		streamHandler:    handlers.NewWatchlistStreamHandler(deps.Broker, deps.Watchlist.View),
		searchWSHandler:  handlers.NewSearchStreamHandler(deps.Search, cfg.Watchlist.SearchDebounce, originChecker(cfg)),
	}
	if r.healthHandler == nil {
		r.healthHandler = handlers.NewHealthHandler("dev")
	}

	r.setupMiddlewares()
	r.setupRoutes()

	return r
}

// setupMiddlewares configures all global gin middlewares
func (r *Router) setupMiddlewares() {
	// Recovery middleware (must be first)
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	accessLogger := logger.NewAccessLogger(
		r.accessLogPath(),
		r.config.Logging.RotationSize,
		r.config.Logging.RetentionDays,
	)
	r.engine.Use(middleware.Logging(middleware.LoggingConfig{
		AccessLogger: &accessLogger,
		SkipPaths:    []string{"/health", "/health/ready"},
	}))
}

func (r *Router) accessLogPath() string {
	if !r.config.Logging.FileEnabled {
		return ""
	}
	return r.config.Logging.FilePath
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Health checks (no /api prefix)
	r.engine.GET("/health", r.healthHandler.Health)
	r.engine.GET("/health/ready", r.healthHandler.Ready)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health/detailed", r.healthHandler.Detailed)

		session := v1.Group("/session")
		{
			session.GET("", r.sessionHandler.Get)
			session.POST("", r.sessionHandler.SignIn)
			session.DELETE("", r.sessionHandler.SignOut)
		}

		wl := v1.Group("/watchlist")
		{
			wl.GET("", r.watchlistHandler.Get)
			wl.POST("", r.watchlistHandler.Add)
			wl.POST("/toggle", r.watchlistHandler.Toggle)
			wl.POST("/remove", r.watchlistHandler.RemovePositions)
			wl.POST("/refresh", r.watchlistHandler.Refresh)
			wl.PUT("/sort", r.watchlistHandler.Sort)
			wl.PUT("/filter", r.watchlistHandler.Filter)
			wl.GET("/saved/:symbol", r.watchlistHandler.IsSaved)
			wl.DELETE("/:id", r.watchlistHandler.Delete)
			wl.POST("/:id/changes", r.watchlistHandler.RefreshChanges)
		}

		v1.GET("/search", r.searchHandler.Search)

		history := v1.Group("/history")
		{
			history.GET("/ranges", r.historyHandler.Ranges)
			history.GET("/:symbol", r.historyHandler.Get)
		}
	}

	// Streams first, everything else falls through to gin
	routes.RegisterStreamRoutes(r.mux, r.streamHandler, r.searchWSHandler)
	r.mux.PathPrefix("/").Handler(r.engine)
}

// Engine returns the underlying Gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Handler returns the root handler with CORS applied
func (r *Router) Handler() http.Handler {
	cors := middleware.DefaultCORSConfig(r.config.Server.AllowedOrigins)
	if r.config.Server.Mode == gin.DebugMode {
		cors = middleware.DevelopmentCORSConfig()
	}
	return middleware.CORS(cors)(r.mux)
}

// originChecker applies the CORS allow list to websocket upgrades
func originChecker(cfg *config.Config) func(r *http.Request) bool {
	if cfg.Server.Mode == gin.DebugMode {
		return func(*http.Request) bool { return true }
	}

	allowed := make(map[string]struct{}, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed["*"]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := allowed[u.Scheme+"://"+u.Host]
		return ok
	}
}
