// Package alerts forwards significant price changes to a message bus.
package alerts

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
	watchlistsvc "github.com/wonny/stockwatch/internal/service/watchlist"
)

// Publisher delivers one encoded alert. key groups alerts of the same symbol.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
	Close() error
}

// Message is the wire form of an alert
type Message struct {
	UserID        string    `json:"user_id"`
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	ChangePercent string    `json:"change_percent"`
	Price         string    `json:"price,omitempty"`
	PreviousPrice string    `json:"previous_price,omitempty"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	At            time.Time `json:"at"`
}

// NewMessage converts a manager alert
func NewMessage(a watchlistsvc.Alert) Message {
	return Message{
		UserID:        a.Stock.OwnerUserID,
		Symbol:        a.Stock.Symbol,
		Name:          a.Stock.Name,
		ChangePercent: a.Change.StringFixed(2),
		Price:         watchlist.Value(a.Stock.CurrentPrice),
		PreviousPrice: watchlist.Value(a.Stock.PreviousPrice),
		Title:         a.Title,
		Body:          a.Body,
		At:            a.At,
	}
}

// NotifierConfig holds notifier configuration
type NotifierConfig struct {
	QueueSize      int           // pending alerts before new ones are dropped (default: 256)
	PublishTimeout time.Duration // per publish (default: 5s)
}

// Notifier is a watchlist listener that publishes alerts from a background worker,
// so a slow bus never holds up the manager's callers.
type Notifier struct {
	pub     Publisher
	timeout time.Duration
	queue   chan Message

	published atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

// NewNotifier starts the publishing worker
func NewNotifier(pub Publisher, cfg NotifierConfig) *Notifier {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}

	n := &Notifier{
		pub:     pub,
		timeout: cfg.PublishTimeout,
		queue:   make(chan Message, cfg.QueueSize),
		done:    make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *Notifier) run() {
	defer close(n.done)

	for msg := range n.queue {
		payload, err := json.Marshal(msg)
		if err != nil {
			n.failed.Add(1)
			log.Error().Err(err).Str("symbol", msg.Symbol).Msg("Failed to encode alert")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		err = n.pub.Publish(ctx, msg.Symbol, payload)
		cancel()
		if err != nil {
			n.failed.Add(1)
			log.Error().Err(err).Str("symbol", msg.Symbol).Msg("Failed to publish alert")
			continue
		}
		n.published.Add(1)
	}
}

// OnSignificantPriceChange queues the alert for publishing
func (n *Notifier) OnSignificantPriceChange(alert watchlistsvc.Alert) {
	select {
	case n.queue <- NewMessage(alert):
	default:
		n.dropped.Add(1)
		log.Warn().Str("symbol", alert.Stock.Symbol).Msg("Alert queue full, dropping alert")
	}
}

// OnWatchlistChanged implements watchlist.Listener
func (n *Notifier) OnWatchlistChanged(*watchlistsvc.View) {}

// OnError implements watchlist.Listener
func (n *Notifier) OnError(watchlistsvc.Toast) {}

// NotifierStats holds delivery counters
type NotifierStats struct {
	Published int64 `json:"published"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// GetStats returns delivery counters
func (n *Notifier) GetStats() NotifierStats {
	return NotifierStats{
		Published: n.published.Load(),
		Failed:    n.failed.Load(),
		Dropped:   n.dropped.Load(),
	}
}

// Close publishes what is queued, then closes the publisher.
// OnSignificantPriceChange must not be called afterwards.
func (n *Notifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		close(n.queue)
		<-n.done
		err = n.pub.Close()
	})
	return err
}
