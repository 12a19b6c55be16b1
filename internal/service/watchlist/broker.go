package watchlist

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ==============================================================================
// Broker - in-memory pub/sub of manager events for streaming clients
// ==============================================================================

// Event types
const (
	EventWatchlist = "watchlist"
	EventAlert     = "alert"
	EventError     = "error"
)

// Event is one message delivered to stream subscribers
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Broker distributes events to subscribers without blocking the publisher.
// A subscriber whose buffer is full misses the event.
type Broker struct {
	mu sync.RWMutex

	subs        map[*Subscription]struct{}
	channelSize int
	closed      bool

	// Metrics
	published int64
	delivered int64
	dropped   int64
}

// Subscription receives events on C until Unsubscribe or Close
type Subscription struct {
	C chan Event
}

// BrokerConfig holds broker configuration
type BrokerConfig struct {
	ChannelSize int // per-subscriber buffer (default: 64)
}

// NewBroker creates a new broker
func NewBroker(config BrokerConfig) *Broker {
	if config.ChannelSize <= 0 {
		config.ChannelSize = 64
	}
	return &Broker{
		subs:        make(map[*Subscription]struct{}),
		channelSize: config.ChannelSize,
	}
}

// Subscribe registers a new subscriber
func (b *Broker) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{C: make(chan Event, b.channelSize)}
	if b.closed {
		close(sub.C)
		return sub
	}
	b.subs[sub] = struct{}{}

	log.Debug().Int("total_subs", len(b.subs)).Msg("Broker: new subscription")
	return sub
}

// Unsubscribe removes a subscriber and closes its channel
func (b *Broker) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.C)

	log.Debug().Int("total_subs", len(b.subs)).Msg("Broker: unsubscribed")
}

// Publish sends an event to every subscriber
func (b *Broker) Publish(eventType string, data interface{}) {
	ev := Event{Type: eventType, Data: data, Timestamp: time.Now()}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.published++
	for sub := range b.subs {
		select {
		case sub.C <- ev:
			b.delivered++
		default:
			b.dropped++
		}
	}
}

// OnWatchlistChanged implements Listener
func (b *Broker) OnWatchlistChanged(view *View) {
	b.Publish(EventWatchlist, view)
}

// OnSignificantPriceChange implements Listener
func (b *Broker) OnSignificantPriceChange(alert Alert) {
	b.Publish(EventAlert, alert)
}

// OnError implements Listener
func (b *Broker) OnError(toast Toast) {
	b.Publish(EventError, toast)
}

// BrokerStats holds broker statistics
type BrokerStats struct {
	ActiveSubscribers int     `json:"active_subscribers"`
	TotalPublished    int64   `json:"total_published"`
	TotalDelivered    int64   `json:"total_delivered"`
	TotalDropped      int64   `json:"total_dropped"`
	DropRate          float64 `json:"drop_rate"` // percentage of deliveries
}

// GetStats returns broker statistics
func (b *Broker) GetStats() BrokerStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	dropRate := float64(0)
	if attempts := b.delivered + b.dropped; attempts > 0 {
		dropRate = float64(b.dropped) / float64(attempts) * 100
	}

	return BrokerStats{
		ActiveSubscribers: len(b.subs),
		TotalPublished:    b.published,
		TotalDelivered:    b.delivered,
		TotalDropped:      b.dropped,
		DropRate:          dropRate,
	}
}

// Close closes all subscriptions; later subscribers get a closed channel
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		close(sub.C)
	}
	b.subs = make(map[*Subscription]struct{})
	b.closed = true

	log.Info().Msg("Broker closed")
}
