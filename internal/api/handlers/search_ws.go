package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/wonny/stockwatch/internal/domain/quote"
	"github.com/wonny/stockwatch/internal/service/search"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// searchMessage is what a client types
type searchMessage struct {
	Query string `json:"query"`
}

// searchResult answers the last query typed
type searchResult struct {
	Query   string              `json:"query"`
	Results []quote.SymbolMatch `json:"results"`
	Error   string              `json:"error,omitempty"`
}

// SearchStreamHandler serves search-as-you-type over a websocket.
// Each typed query restarts the quiet period; only the last one is searched.
type SearchStreamHandler struct {
	searcher Searcher
	upgrader websocket.Upgrader
	debounce time.Duration
}

// NewSearchStreamHandler creates a websocket search handler
func NewSearchStreamHandler(searcher Searcher, debounce time.Duration, checkOrigin func(r *http.Request) bool) *SearchStreamHandler {
	return &SearchStreamHandler{
		searcher: searcher,
		debounce: debounce,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Serve handles GET /api/v1/search/ws
func (h *SearchStreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("Search websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var writeMu sync.Mutex
	write := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v)
	}

	debouncer := search.NewDebouncer(h.debounce)
	defer debouncer.Stop()

	go h.ping(ctx, conn, &writeMu)

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg searchMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("Search websocket closed")
			}
			return
		}

		query := msg.Query
		debouncer.Submit(ctx, func(ctx context.Context) {
			matches, err := h.searcher.Search(ctx, query)
			if ctx.Err() != nil {
				return // superseded by a newer query
			}

			res := searchResult{Query: query, Results: matches}
			if err != nil {
				res.Results = []quote.SymbolMatch{}
				res.Error = err.Error()
			}
			if err := write(res); err != nil {
				log.Debug().Err(err).Msg("Search websocket write failed")
			}
		})
	}
}

func (h *SearchStreamHandler) ping(ctx context.Context, conn *websocket.Conn, mu *sync.Mutex) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
			mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
