package search

import (
	"context"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a typed query is searched
const DefaultDebounce = 500 * time.Millisecond

// Debouncer runs only the last query submitted within a quiet period
type Debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	timer  *time.Timer
	cancel context.CancelFunc
}

// NewDebouncer creates a debouncer with the given quiet period
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Submit schedules fn after the quiet period, replacing any pending call.
// The context passed to fn is cancelled when a newer call is submitted.
func (d *Debouncer) Submit(parent context.Context, fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()

	ctx, cancel := context.WithCancel(parent)
	d.cancel = cancel
	d.timer = time.AfterFunc(d.delay, func() {
		fn(ctx)
	})
}

// Stop drops any pending call
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
