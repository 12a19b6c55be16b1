package watchlist

import "strings"

// SortCriterion selects how the displayed list is ordered
type SortCriterion string

const (
	SortReset        SortCriterion = "reset"
	SortPrice        SortCriterion = "price"
	SortDailyChange  SortCriterion = "daily_change"
	SortWeeklyChange SortCriterion = "weekly_change"
)

// FilterCriterion selects which entries are displayed
type FilterCriterion string

const (
	FilterAll               FilterCriterion = "all"
	FilterPriceIncrease     FilterCriterion = "increase"
	FilterPriceDecrease     FilterCriterion = "decrease"
	FilterSignificantChange FilterCriterion = "significant"
)

// ParseSortCriterion accepts snake_case and camelCase spellings
func ParseSortCriterion(s string) (SortCriterion, error) {
	switch normalize(s) {
	case "reset", "":
		return SortReset, nil
	case "price":
		return SortPrice, nil
	case "dailychange":
		return SortDailyChange, nil
	case "weeklychange":
		return SortWeeklyChange, nil
	}
	return "", ErrInvalidCriterion
}

// ParseFilterCriterion accepts short and long spellings
func ParseFilterCriterion(s string) (FilterCriterion, error) {
	switch normalize(s) {
	case "all", "":
		return FilterAll, nil
	case "increase", "priceincrease":
		return FilterPriceIncrease, nil
	case "decrease", "pricedecrease":
		return FilterPriceDecrease, nil
	case "significant", "significantchange":
		return FilterSignificantChange, nil
	}
	return "", ErrInvalidCriterion
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, " ", "")
}
