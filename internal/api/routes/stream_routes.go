package routes

import (
	"github.com/gorilla/mux"
	"github.com/wonny/stockwatch/internal/api/handlers"
	"github.com/wonny/stockwatch/internal/api/middleware"
)

// RegisterStreamRoutes registers the long-lived routes served outside gin
func RegisterStreamRoutes(router *mux.Router, streamHandler *handlers.WatchlistStreamHandler, searchHandler *handlers.SearchStreamHandler) {
	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.Use(middleware.RequestIDHandler)

	// SSE: watchlist, alert and error events
	v1.HandleFunc("/watchlist/events", streamHandler.Stream).Methods("GET")
	v1.HandleFunc("/watchlist/events/stats", streamHandler.Stats).Methods("GET")

	// Websocket: search as you type
	v1.HandleFunc("/search/ws", searchHandler.Serve).Methods("GET")
}
