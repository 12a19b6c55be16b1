package watchlist

import (
	"time"
)

// Stock is one saved entry of a user's watchlist
// Prices and changes are kept as the strings the quote provider returns
type Stock struct {
	ID               string     `json:"id"`                           // store assigned, empty before first save
	Symbol           string     `json:"symbol"`                       // ticker, e.g. AAPL
	Name             string     `json:"name"`                         // display name
	OwnerUserID      string     `json:"user_id"`                      // owning user
	CurrentPrice     *string    `json:"current_price,omitempty"`      // latest quote price
	PreviousPrice    *string    `json:"previous_price,omitempty"`     // price before the last refresh
	DailyChange      *string    `json:"daily_change,omitempty"`       // e.g. "1.2345%"
	WeeklyChange     *string    `json:"weekly_change,omitempty"`      // computed locally
	MonthlyChange    *string    `json:"monthly_change,omitempty"`     // computed locally
	ChangeComputedAt *time.Time `json:"change_computed_at,omitempty"` // when weekly/monthly were computed
}

// Clone returns a deep copy so callers never share pointer fields
func (s Stock) Clone() Stock {
	out := s
	out.CurrentPrice = cloneString(s.CurrentPrice)
	out.PreviousPrice = cloneString(s.PreviousPrice)
	out.DailyChange = cloneString(s.DailyChange)
	out.WeeklyChange = cloneString(s.WeeklyChange)
	out.MonthlyChange = cloneString(s.MonthlyChange)
	if s.ChangeComputedAt != nil {
		t := *s.ChangeComputedAt
		out.ChangeComputedAt = &t
	}
	return out
}

// Matches reports whether two values describe the same watchlist entry.
// Entries are matched by id once both have one, by symbol otherwise.
func (s Stock) Matches(other Stock) bool {
	if s.ID != "" && other.ID != "" {
		return s.ID == other.ID
	}
	return s.Symbol == other.Symbol
}

// NeedsChangeRecompute reports whether weekly/monthly changes must be recomputed
func (s Stock) NeedsChangeRecompute(now time.Time) bool {
	if s.WeeklyChange == nil || s.MonthlyChange == nil || s.ChangeComputedAt == nil {
		return true
	}
	return !sameDay(*s.ChangeComputedAt, now)
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// StringPtr is a small helper for building optional fields
func StringPtr(s string) *string {
	return &s
}

// Value dereferences an optional field, returning "" when unset
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
