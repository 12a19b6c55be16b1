package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	applogger "github.com/wonny/stockwatch/internal/pkg/logger"
	watchlistsvc "github.com/wonny/stockwatch/internal/service/watchlist"
)

const streamKeepAlive = 30 * time.Second

// ==============================================================================
// WatchlistStreamHandler - SSE endpoint for live watchlist events
// ==============================================================================

// WatchlistStreamHandler streams manager events to browsers
type WatchlistStreamHandler struct {
	broker    *watchlistsvc.Broker
	view      func() *watchlistsvc.View
	keepAlive time.Duration
}

// NewWatchlistStreamHandler creates a new stream handler
func NewWatchlistStreamHandler(broker *watchlistsvc.Broker, view func() *watchlistsvc.View) *WatchlistStreamHandler {
	return &WatchlistStreamHandler{
		broker:    broker,
		view:      view,
		keepAlive: streamKeepAlive,
	}
}

// Stream sends the current view, then every watchlist, alert and error event
// GET /api/v1/watchlist/events
func (h *WatchlistStreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// subscribe before the initial view so no change is missed in between
	sub := h.broker.Subscribe()
	defer h.broker.Unsubscribe(sub)

	h.sendEvent(w, watchlistsvc.Event{
		Type:      watchlistsvc.EventWatchlist,
		Data:      h.view(),
		Timestamp: time.Now(),
	})
	flusher.Flush()

	logger := log.With().
		Str("request_id", applogger.RequestID(r.Context())).
		Str("remote", r.RemoteAddr).
		Logger()
	logger.Info().Msg("SSE: client connected")

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Info().Msg("SSE: client disconnected")
			return

		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			h.sendEvent(w, ev)
			flusher.Flush()

		case <-keepAlive.C:
			fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

// Stats reports broker statistics
// GET /api/v1/watchlist/events/stats
func (h *WatchlistStreamHandler) Stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": h.broker.GetStats()}); err != nil {
		log.Error().Err(err).Msg("SSE: failed to write stats")
	}
}

func (h *WatchlistStreamHandler) sendEvent(w http.ResponseWriter, ev watchlistsvc.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", ev.Type).Msg("SSE: failed to marshal event")
		return
	}

	fmt.Fprintf(w, "event: %s\n", ev.Type)
	fmt.Fprintf(w, "data: %s\n\n", data)
}
