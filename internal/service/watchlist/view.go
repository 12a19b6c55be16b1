package watchlist

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
	"github.com/wonny/stockwatch/internal/service/pricechange"
)

// Phase is the lifecycle state of the watchlist
type Phase string

const (
	PhaseSignedOut Phase = "signed_out"
	PhaseLoading   Phase = "loading" // signed in, first snapshot not applied yet
	PhaseSynced    Phase = "synced"
)

// View is an immutable copy of the watchlist published after every change.
// Nothing in a View is shared with the manager's working state.
type View struct {
	Phase     Phase                     `json:"phase"`
	UserID    string                    `json:"user_id,omitempty"`
	Displayed []watchlist.Stock         `json:"stocks"`
	Canonical []watchlist.Stock         `json:"-"`
	Total     int                       `json:"total"`
	Sort      watchlist.SortCriterion   `json:"sort"`
	Filter    watchlist.FilterCriterion `json:"filter"`
	UpdatedAt time.Time                 `json:"updated_at"`

	epoch uint64
}

// Find returns the saved entry matching stock
func (v *View) Find(stock watchlist.Stock) (watchlist.Stock, bool) {
	for _, s := range v.Canonical {
		if s.Matches(stock) {
			return s, true
		}
	}
	return watchlist.Stock{}, false
}

// FindByID returns the saved entry with the given id
func (v *View) FindByID(id string) (watchlist.Stock, bool) {
	for _, s := range v.Canonical {
		if s.ID == id {
			return s, true
		}
	}
	return watchlist.Stock{}, false
}

// GetDisplayPrice returns the price and daily change shown for stock.
// ok is false when either value is missing.
func GetDisplayPrice(stock watchlist.Stock) (price, change string, ok bool) {
	if stock.CurrentPrice == nil || stock.DailyChange == nil {
		return "", "", false
	}
	return *stock.CurrentPrice, *stock.DailyChange, true
}

// Subtitle is the short date shown above the list, e.g. "12 Dec"
func Subtitle(now time.Time) string {
	return now.Format("2 Jan")
}

// ==============================================================================
// Sorting and filtering (pure, operate on copies)
// ==============================================================================

func cloneAll(stocks []watchlist.Stock) []watchlist.Stock {
	out := make([]watchlist.Stock, len(stocks))
	for i, s := range stocks {
		out[i] = s.Clone()
	}
	return out
}

func sortByName(stocks []watchlist.Stock) []watchlist.Stock {
	out := cloneAll(stocks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func ownedBy(stocks []watchlist.Stock, ownerUserID string) []watchlist.Stock {
	out := make([]watchlist.Stock, 0, len(stocks))
	for _, s := range stocks {
		if s.OwnerUserID == ownerUserID {
			out = append(out, s)
		}
	}
	return out
}

// applySort rebuilds the displayed list from canonical.
// price and change columns compare as raw strings, not numbers: "10" sorts
// before "9" and "-1%" before "0.5%". Kept for compatibility with existing clients.
func applySort(canonical []watchlist.Stock, by watchlist.SortCriterion) []watchlist.Stock {
	out := sortByName(canonical)

	var key func(watchlist.Stock) string
	switch by {
	case watchlist.SortPrice:
		key = func(s watchlist.Stock) string { return watchlist.Value(s.CurrentPrice) }
	case watchlist.SortDailyChange:
		key = func(s watchlist.Stock) string { return watchlist.Value(s.DailyChange) }
	case watchlist.SortWeeklyChange:
		key = func(s watchlist.Stock) string { return watchlist.Value(s.WeeklyChange) }
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		return key(out[i]) < key(out[j])
	})
	return out
}

// applyFilter rebuilds the displayed list from canonical, name sorted.
// Entries whose daily change is missing or unparseable only pass FilterAll.
func applyFilter(canonical []watchlist.Stock, by watchlist.FilterCriterion, threshold decimal.Decimal) []watchlist.Stock {
	if by == watchlist.FilterAll {
		return sortByName(canonical)
	}

	kept := make([]watchlist.Stock, 0, len(canonical))
	for _, s := range canonical {
		if s.DailyChange == nil {
			continue
		}
		change, err := pricechange.ParsePercent(*s.DailyChange)
		if err != nil {
			continue
		}

		var match bool
		switch by {
		case watchlist.FilterPriceIncrease:
			match = change.IsPositive()
		case watchlist.FilterPriceDecrease:
			match = change.IsNegative()
		case watchlist.FilterSignificantChange:
			match = pricechange.IsSignificant(change, threshold)
		}
		if match {
			kept = append(kept, s)
		}
	}
	return sortByName(kept)
}

func indexOf(stocks []watchlist.Stock, target watchlist.Stock) int {
	for i, s := range stocks {
		if s.Matches(target) {
			return i
		}
	}
	return -1
}

// removeMatching returns stocks without entries matching target, plus the removed entries
func removeMatching(stocks []watchlist.Stock, target watchlist.Stock) (kept, removed []watchlist.Stock) {
	kept = make([]watchlist.Stock, 0, len(stocks))
	for _, s := range stocks {
		if s.Matches(target) {
			removed = append(removed, s)
			continue
		}
		kept = append(kept, s)
	}
	return kept, removed
}
