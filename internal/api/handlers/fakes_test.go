package handlers

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/wonny/stockwatch/internal/domain/auth"
	"github.com/wonny/stockwatch/internal/domain/quote"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
	"github.com/wonny/stockwatch/internal/service/chart"
	watchlistsvc "github.com/wonny/stockwatch/internal/service/watchlist"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeWatchlist records calls and returns canned results
type fakeWatchlist struct {
	mu   sync.Mutex
	view *watchlistsvc.View
	err  error

	added     []watchlist.Stock
	removed   []watchlist.Stock
	positions []int
	sortedBy  watchlist.SortCriterion
	filterBy  watchlist.FilterCriterion
	refreshed []watchlist.Stock
	result    watchlistsvc.RefreshResult
}

func newFakeWatchlist(stocks ...watchlist.Stock) *fakeWatchlist {
	return &fakeWatchlist{view: &watchlistsvc.View{
		Phase:     watchlistsvc.PhaseSynced,
		UserID:    "u1",
		Displayed: stocks,
		Canonical: stocks,
		Total:     len(stocks),
		Sort:      watchlist.SortReset,
		Filter:    watchlist.FilterAll,
	}}
}

func (f *fakeWatchlist) View() *watchlistsvc.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeWatchlist) IsSaved(stock watchlist.Stock) bool {
	_, ok := f.View().Find(stock)
	return ok
}

func (f *fakeWatchlist) AddStock(ctx context.Context, stock watchlist.Stock) (watchlist.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return watchlist.Stock{}, f.err
	}
	f.added = append(f.added, stock)
	stock.OwnerUserID = "u1"
	stock.CurrentPrice = watchlist.StringPtr("100.00")
	return stock, nil
}

func (f *fakeWatchlist) RemoveStock(ctx context.Context, stock watchlist.Stock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, stock)
	return nil
}

func (f *fakeWatchlist) RemoveAt(ctx context.Context, positions []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.positions = positions
	return nil
}

func (f *fakeWatchlist) ToggleSaved(ctx context.Context, stock watchlist.Stock) (bool, error) {
	if f.IsSaved(stock) {
		return false, f.RemoveStock(ctx, stock)
	}
	if _, err := f.AddStock(ctx, stock); err != nil {
		return false, err
	}
	return true, nil
}

func (f *fakeWatchlist) Sort(ctx context.Context, by watchlist.SortCriterion) (*watchlistsvc.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sortedBy = by
	v := *f.view
	v.Sort = by
	v.Filter = watchlist.FilterAll
	f.view = &v
	return f.view, nil
}

func (f *fakeWatchlist) Filter(ctx context.Context, by watchlist.FilterCriterion) (*watchlistsvc.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.filterBy = by
	v := *f.view
	v.Filter = by
	v.Sort = watchlist.SortReset
	f.view = &v
	return f.view, nil
}

func (f *fakeWatchlist) RefreshAllPrices(ctx context.Context) (watchlistsvc.RefreshResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeWatchlist) RefreshChanges(ctx context.Context, stock watchlist.Stock) (watchlist.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return stock, f.err
	}
	f.refreshed = append(f.refreshed, stock)
	stock.WeeklyChange = watchlist.StringPtr("10%")
	return stock, nil
}

// fakeSearcher answers from a fixed table
type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]quote.SymbolMatch
	queries []string
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]quote.SymbolMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if m, ok := f.results[query]; ok {
		return m, nil
	}
	return []quote.SymbolMatch{}, nil
}

func (f *fakeSearcher) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// fakeSessions signs in whatever it is given unless err is set
type fakeSessions struct {
	user *auth.User
	err  error
}

func (f *fakeSessions) CurrentUser() (*auth.User, bool) {
	return f.user, f.user != nil
}

func (f *fakeSessions) SignInWithToken(ctx context.Context, token string) (*auth.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.user = &auth.User{ID: "token:" + token}
	return f.user, nil
}

func (f *fakeSessions) SignInAsUser(ctx context.Context, userID string) (*auth.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.user = &auth.User{ID: userID}
	return f.user, nil
}

func (f *fakeSessions) SignOut(ctx context.Context) error {
	f.user = nil
	return nil
}

type fakeHistory struct {
	err error
}

func (f *fakeHistory) History(ctx context.Context, symbol string, r quote.ChartRange) (*chart.History, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &chart.History{
		Symbol:    symbol,
		Range:     r,
		Title:     r.Title(),
		Contracts: []quote.OptionContract{{ContractID: "C1", Symbol: symbol}},
	}, nil
}
