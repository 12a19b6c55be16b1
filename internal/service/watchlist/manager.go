package watchlist

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/wonny/stockwatch/internal/domain/auth"
	"github.com/wonny/stockwatch/internal/domain/quote"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
	"github.com/wonny/stockwatch/internal/service/pricechange"
	"golang.org/x/sync/singleflight"
)

// Config tunes the manager
type Config struct {
	RefreshInterval    time.Duration // periodic price refresh (default: 30m)
	SignificantPercent float64       // alert threshold in percent (default: 5.0)
	RefreshConcurrency int           // parallel quote fetches per refresh (default: 4)
	StoreTimeout       time.Duration // per store write (default: 10s)
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		RefreshInterval:    30 * time.Minute,
		SignificantPercent: 5.0,
		RefreshConcurrency: 4,
		StoreTimeout:       10 * time.Second,
	}
}

// Dependencies are the collaborators the manager is built on
type Dependencies struct {
	Store    watchlist.Store
	Quotes   quote.Client
	History  quote.HistoryClient // optional, needed by RefreshChanges
	Auth     auth.Provider       // optional, Start follows its state when set
	Listener Listener            // optional
	Clock    func() time.Time    // optional, defaults to time.Now
}

// state is owned by the loop goroutine
type state struct {
	user      *auth.User
	phase     Phase
	epoch     uint64 // bumped on every session change
	canonical []watchlist.Stock
	displayed []watchlist.Stock
	sort      watchlist.SortCriterion
	filter    watchlist.FilterCriterion
	sub       watchlist.Subscription

	// symbols removed locally while their first save was still in flight
	unsavedRemoved map[string]bool
}

// reset clears the session and invalidates in-flight work
func (s *state) reset() {
	s.user = nil
	s.phase = PhaseSignedOut
	s.epoch++
	s.canonical = nil
	s.displayed = nil
	s.sort = watchlist.SortReset
	s.filter = watchlist.FilterAll
	s.sub = nil
	s.unsavedRemoved = nil
}

// markUnsavedRemoved records removed entries that have no id yet, so the
// save still in flight for them is undone when it lands
func (s *state) markUnsavedRemoved(removed []watchlist.Stock) {
	for _, st := range removed {
		if st.ID != "" {
			continue
		}
		if s.unsavedRemoved == nil {
			s.unsavedRemoved = make(map[string]bool)
		}
		s.unsavedRemoved[st.Symbol] = true
	}
}

// effects collects what an operation produced, dispatched after it leaves the loop
type effects struct {
	changed  bool
	alerts   []Alert
	errs     []error
	closeSub watchlist.Subscription
}

type op func(s *state, ev *effects)

// Manager is the single owner of the signed-in user's watchlist.
// All mutations run one at a time on an internal loop goroutine; reads use View.
type Manager struct {
	deps      Dependencies
	cfg       Config
	threshold decimal.Decimal
	now       func() time.Time

	ops      chan func(*state)
	loopDone chan struct{}
	view     atomic.Pointer[View]
	st       state

	sf   singleflight.Group
	cron *cron.Cron

	// Lifecycle
	running    atomic.Bool
	started    bool
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	removeAuth func()
}

// NewManager creates a manager; call Start before using it
func NewManager(deps Dependencies, cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = def.RefreshInterval
	}
	if cfg.SignificantPercent <= 0 {
		cfg.SignificantPercent = def.SignificantPercent
	}
	if cfg.RefreshConcurrency <= 0 {
		cfg.RefreshConcurrency = def.RefreshConcurrency
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = def.StoreTimeout
	}
	if deps.Listener == nil {
		deps.Listener = Listeners(nil)
	}

	m := &Manager{
		deps:      deps,
		cfg:       cfg,
		threshold: decimal.NewFromFloat(cfg.SignificantPercent),
		now:       deps.Clock,
		ops:       make(chan func(*state)),
		loopDone:  make(chan struct{}),
	}
	if m.now == nil {
		m.now = time.Now
	}

	m.st.reset()
	m.view.Store(m.snapshot(&m.st))

	return m
}

// Start runs the loop, the refresh schedule and, when configured, follows the auth provider
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()

	if m.started {
		m.mu.Unlock()
		log.Warn().Msg("Watchlist manager already started")
		return ErrAlreadyRunning
	}
	m.started = true

	log.Info().
		Dur("refresh_interval", m.cfg.RefreshInterval).
		Float64("significant_percent", m.cfg.SignificantPercent).
		Msg("Starting watchlist manager...")

	m.ctx, m.cancel = context.WithCancel(ctx)
	go m.loop()
	m.running.Store(true)

	m.cron = cron.New()
	if _, err := m.cron.AddFunc(fmt.Sprintf("@every %s", m.cfg.RefreshInterval), m.scheduledRefresh); err != nil {
		m.mu.Unlock()
		m.Stop()
		return fmt.Errorf("schedule price refresh: %w", err)
	}
	m.cron.Start()
	m.mu.Unlock()

	// The provider reports the current user right away
	if m.deps.Auth != nil {
		remove := m.deps.Auth.OnAuthStateChanged(func(u *auth.User) {
			m.OnAuthStateChanged(m.ctx, u)
		})
		m.mu.Lock()
		m.removeAuth = remove
		m.mu.Unlock()
	}

	log.Info().Msg("✅ Watchlist manager started")
	return nil
}

// Stop tears down the schedule and the subscription, then stops the loop.
// Store writes already started are allowed to finish; results of fetches still in flight are discarded.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running.Load() {
		return
	}

	log.Info().Msg("Stopping watchlist manager...")

	if m.removeAuth != nil {
		m.removeAuth()
		m.removeAuth = nil
	}

	if m.cron != nil {
		// wait for a refresh already running
		<-m.cron.Stop().Done()
	}

	// store writes already started finish and record their ids
	m.wg.Wait()

	ev, err := m.do(func(s *state, ev *effects) {
		ev.closeSub = s.sub
		s.sub = nil
		s.epoch++
	})
	if err == nil && ev.closeSub != nil {
		ev.closeSub.Unsubscribe()
	}

	m.running.Store(false)
	m.cancel()
	<-m.loopDone

	m.wg.Wait()

	log.Info().Msg("✅ Watchlist manager stopped")
}

// View returns the latest published watchlist
func (m *Manager) View() *View {
	return m.view.Load()
}

// IsRunning reports whether Start has been called and Stop has not
func (m *Manager) IsRunning() bool {
	return m.running.Load()
}

// IsSaved reports whether stock is in the watchlist
func (m *Manager) IsSaved(stock watchlist.Stock) bool {
	_, ok := m.View().Find(stock)
	return ok
}

// ==============================================================================
// Loop
// ==============================================================================

func (m *Manager) loop() {
	defer close(m.loopDone)

	for {
		select {
		case fn := <-m.ops:
			fn(&m.st)
		case <-m.ctx.Done():
			return
		}
	}
}

// do runs fn on the loop and waits for it.
// The view is republished when fn reports a change.
func (m *Manager) do(fn op) (effects, error) {
	var ev effects

	if !m.running.Load() {
		select {
		case <-m.loopDone:
			return ev, ErrStopped
		default:
			return ev, ErrNotRunning
		}
	}

	done := make(chan struct{})
	wrapped := func(s *state) {
		defer close(done)
		fn(s, &ev)
		if ev.changed {
			m.view.Store(m.snapshot(s))
		}
	}

	select {
	case m.ops <- wrapped:
	case <-m.loopDone:
		return ev, ErrStopped
	}

	<-done
	return ev, nil
}

func (m *Manager) snapshot(s *state) *View {
	v := &View{
		Phase:     s.phase,
		Displayed: cloneAll(s.displayed),
		Canonical: cloneAll(s.canonical),
		Total:     len(s.canonical),
		Sort:      s.sort,
		Filter:    s.filter,
		UpdatedAt: m.now(),
		epoch:     s.epoch,
	}
	if s.user != nil {
		v.UserID = s.user.ID
	}
	return v
}

// dispatch delivers effects to the listener on the calling goroutine
func (m *Manager) dispatch(ev effects) {
	if ev.changed {
		m.deps.Listener.OnWatchlistChanged(m.View())
	}
	for _, a := range ev.alerts {
		log.Info().
			Str("symbol", a.Stock.Symbol).
			Str("change", a.Change.StringFixed(2)).
			Msg("🔔 Significant price change")
		m.deps.Listener.OnSignificantPriceChange(a)
	}
	for _, err := range ev.errs {
		m.emitError(err)
	}
}

// emitError converts err into a toast; nothing propagates further
func (m *Manager) emitError(err error) {
	if err == nil {
		return
	}
	toast := NewToast(err, m.now())
	log.Warn().Err(err).Str("kind", string(toast.Kind)).Msg("Watchlist error")
	m.deps.Listener.OnError(toast)
}

// checkSignificant returns an alert when previous→current moved at least the threshold
func (m *Manager) checkSignificant(stock watchlist.Stock) (Alert, bool) {
	if stock.PreviousPrice == nil || stock.CurrentPrice == nil {
		return Alert{}, false
	}
	change, ok := pricechange.BetweenPrices(*stock.PreviousPrice, *stock.CurrentPrice)
	if !ok || change.Abs().LessThan(m.threshold) {
		return Alert{}, false
	}
	return newAlert(stock, change, m.now()), true
}
