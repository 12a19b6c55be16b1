package watchlist

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wonny/stockwatch/internal/domain/auth"
	"github.com/wonny/stockwatch/internal/domain/quote"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
)

// ==============================================================================
// fakeStore
// ==============================================================================

type fakeStore struct {
	mu        sync.Mutex
	docs      map[string]watchlist.Stock
	nextID    int
	saveErr   error
	deleteErr error
	saves     []watchlist.Stock
	deletes   []string
	handlers  map[int]func([]watchlist.Stock)
	nextSub   int

	// beforeSave runs at the start of Save, outside the lock
	beforeSave func(watchlist.Stock)
}

func newFakeStore(initial ...watchlist.Stock) *fakeStore {
	s := &fakeStore{
		docs:     make(map[string]watchlist.Stock),
		handlers: make(map[int]func([]watchlist.Stock)),
	}
	for _, st := range initial {
		s.docs[st.ID] = st
	}
	return s
}

func (f *fakeStore) FetchAll(ctx context.Context, owner string) ([]watchlist.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []watchlist.Stock
	for _, s := range f.docs {
		if s.OwnerUserID == owner {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (f *fakeStore) Save(ctx context.Context, stock watchlist.Stock, owner string) (watchlist.Stock, error) {
	if f.beforeSave != nil {
		f.beforeSave(stock)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return watchlist.Stock{}, f.saveErr
	}
	stock = stock.Clone()
	stock.OwnerUserID = owner
	if stock.ID == "" {
		for id, d := range f.docs {
			if d.OwnerUserID == owner && d.Symbol == stock.Symbol {
				stock.ID = id
			}
		}
	}
	if stock.ID == "" {
		f.nextID++
		stock.ID = fmt.Sprintf("id-%d", f.nextID)
	}
	f.docs[stock.ID] = stock
	f.saves = append(f.saves, stock)
	return stock.Clone(), nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.docs, id)
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeStore) Subscribe(ctx context.Context, onSnapshot func([]watchlist.Stock), onError func(error)) (watchlist.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextSub++
	id := f.nextSub
	f.handlers[id] = onSnapshot
	return &fakeSub{store: f, id: id}, nil
}

// push delivers a snapshot to every open subscription
func (f *fakeStore) push(stocks []watchlist.Stock) {
	f.mu.Lock()
	handlers := make([]func([]watchlist.Stock), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(stocks)
	}
}

func (f *fakeStore) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func (f *fakeStore) savedSymbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.saves))
	for _, s := range f.saves {
		out = append(out, s.Symbol)
	}
	return out
}

func (f *fakeStore) docSymbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, d.Symbol)
	}
	return out
}

func (f *fakeStore) deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletes...)
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeStore) setDeleteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteErr = err
}

type fakeSub struct {
	store *fakeStore
	id    int
}

func (s *fakeSub) Unsubscribe() {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	delete(s.store.handlers, s.id)
}

// ==============================================================================
// fakeQuotes
// ==============================================================================

type fakeQuotes struct {
	mu     sync.Mutex
	prices map[string]string
	change map[string]string
	errs   map[string]error
	block  chan struct{} // when set, GetQuote waits on it
	calls  int
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{
		prices: make(map[string]string),
		change: make(map[string]string),
		errs:   make(map[string]error),
	}
}

func (f *fakeQuotes) set(symbol, price, change string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = price
	f.change[symbol] = change
	delete(f.errs, symbol)
}

func (f *fakeQuotes) fail(symbol string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[symbol] = err
}

func (f *fakeQuotes) GetQuote(ctx context.Context, symbol string) (*quote.Quote, error) {
	f.mu.Lock()
	block := f.block
	f.calls++
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	price, ok := f.prices[symbol]
	if !ok {
		return nil, quote.ErrSymbolNotFound
	}
	return &quote.Quote{Symbol: symbol, Price: price, ChangePercent: f.change[symbol], AsOf: time.Now()}, nil
}

type fakeHistory struct {
	mu     sync.Mutex
	series map[quote.Granularity]quote.TimeSeries
	err    error
	calls  int
	delay  time.Duration
}

func (f *fakeHistory) GetTimeSeries(ctx context.Context, symbol string, g quote.Granularity) (quote.TimeSeries, error) {
	f.mu.Lock()
	f.calls++
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.series[g], nil
}

// ==============================================================================
// recorder
// ==============================================================================

type recorder struct {
	mu     sync.Mutex
	views  int
	alerts []Alert
	toasts []Toast
}

func (r *recorder) OnWatchlistChanged(view *View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views++
}

func (r *recorder) OnSignificantPriceChange(alert Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
}

func (r *recorder) OnError(toast Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, toast)
}

func (r *recorder) toastKinds() []ErrorKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ErrorKind, 0, len(r.toasts))
	for _, t := range r.toasts {
		out = append(out, t.Kind)
	}
	return out
}

func (r *recorder) alertCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

func (r *recorder) toastCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.toasts)
}

// ==============================================================================
// helpers
// ==============================================================================

type harness struct {
	m       *Manager
	store   *fakeStore
	quotes  *fakeQuotes
	history *fakeHistory
	rec     *recorder
}

func newHarness(t *testing.T, initial ...watchlist.Stock) *harness {
	t.Helper()

	h := &harness{
		store:   newFakeStore(initial...),
		quotes:  newFakeQuotes(),
		history: &fakeHistory{series: map[quote.Granularity]quote.TimeSeries{}},
		rec:     &recorder{},
	}
	h.m = NewManager(Dependencies{
		Store:    h.store,
		Quotes:   h.quotes,
		History:  h.history,
		Listener: h.rec,
	}, Config{RefreshInterval: time.Hour, StoreTimeout: time.Second})

	require.NoError(t, h.m.Start(context.Background()))
	t.Cleanup(h.m.Stop)
	return h
}

func (h *harness) signIn(t *testing.T, userID string) {
	t.Helper()
	h.m.OnAuthStateChanged(context.Background(), &auth.User{ID: userID})
	require.Eventually(t, func() bool { return h.store.subscribers() == 1 }, time.Second, 5*time.Millisecond)
}

func stock(id, symbol, name, owner string) watchlist.Stock {
	return watchlist.Stock{ID: id, Symbol: symbol, Name: name, OwnerUserID: owner}
}

func withDaily(s watchlist.Stock, price, change string) watchlist.Stock {
	s.CurrentPrice = watchlist.StringPtr(price)
	s.DailyChange = watchlist.StringPtr(change)
	return s
}

func symbols(stocks []watchlist.Stock) []string {
	out := make([]string, 0, len(stocks))
	for _, s := range stocks {
		out = append(out, s.Symbol)
	}
	return out
}
