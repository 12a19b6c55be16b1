// Package pricechange computes percentage moves between price observations.
package pricechange

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wonny/stockwatch/internal/domain/quote"
)

// Places is the number of decimal places every change is rounded to
const Places = 4

var hundred = decimal.NewFromInt(100)

// FromSeries returns the change between the two most recent closes of a series.
// Dates sort descending as strings, which is chronological for YYYY-MM-DD keys.
// ok is false when fewer than two entries exist or either close is unusable.
func FromSeries(series quote.TimeSeries) (change decimal.Decimal, ok bool) {
	if len(series) < 2 {
		return decimal.Zero, false
	}

	dates := make([]string, 0, len(series))
	for d := range series {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	latest, err := decimal.NewFromString(strings.TrimSpace(series[dates[0]].Close))
	if err != nil {
		return decimal.Zero, false
	}
	previous, err := decimal.NewFromString(strings.TrimSpace(series[dates[1]].Close))
	if err != nil {
		return decimal.Zero, false
	}

	return Between(previous, latest)
}

// Between returns ((current - previous) / previous) * 100 rounded half away from zero
func Between(previous, current decimal.Decimal) (decimal.Decimal, bool) {
	if previous.IsZero() {
		return decimal.Zero, false
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(Places), true
}

// BetweenPrices is Between for the string prices stored on a watchlist entry
func BetweenPrices(previous, current string) (decimal.Decimal, bool) {
	p, err := decimal.NewFromString(strings.TrimSpace(previous))
	if err != nil {
		return decimal.Zero, false
	}
	c, err := decimal.NewFromString(strings.TrimSpace(current))
	if err != nil {
		return decimal.Zero, false
	}
	return Between(p, c)
}

// ParsePercent parses values such as "1.2345%" or "-0.5"
func ParsePercent(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse percent %q: %w", s, err)
	}
	return d, nil
}

// FormatPercent renders a change the way it is stored, e.g. "10%" or "-2.5%"
func FormatPercent(d decimal.Decimal) string {
	return d.String() + "%"
}

// IsSignificant reports whether |change| reaches threshold
func IsSignificant(change decimal.Decimal, threshold decimal.Decimal) bool {
	return change.Abs().GreaterThanOrEqual(threshold)
}
