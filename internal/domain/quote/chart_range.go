package quote

import (
	"strings"
	"time"
)

// ChartRange is a history window selectable by the chart view
type ChartRange string

const (
	RangeOneDay     ChartRange = "1d"
	RangeOneWeek    ChartRange = "5d"
	RangeOneMonth   ChartRange = "1mo"
	RangeThreeMonth ChartRange = "3mo"
	RangeSixMonth   ChartRange = "6mo"
	RangeYTD        ChartRange = "ytd"
	RangeOneYear    ChartRange = "1y"
	RangeTwoYear    ChartRange = "2y"
	RangeFiveYear   ChartRange = "5y"
	RangeTenYear    ChartRange = "10y"
	RangeMax        ChartRange = "max"
)

// AllRanges lists ranges in display order
var AllRanges = []ChartRange{
	RangeOneDay, RangeOneWeek, RangeOneMonth, RangeThreeMonth, RangeSixMonth,
	RangeYTD, RangeOneYear, RangeTwoYear, RangeFiveYear, RangeTenYear, RangeMax,
}

var rangeTitles = map[ChartRange]string{
	RangeOneDay:     "1D",
	RangeOneWeek:    "1W",
	RangeOneMonth:   "1M",
	RangeThreeMonth: "3M",
	RangeSixMonth:   "6M",
	RangeYTD:        "YTD",
	RangeOneYear:    "1Y",
	RangeTwoYear:    "2Y",
	RangeFiveYear:   "5Y",
	RangeTenYear:    "10Y",
	RangeMax:        "ALL",
}

// ParseChartRange accepts either the code ("5d") or the title ("1W")
func ParseChartRange(s string) (ChartRange, error) {
	s = strings.TrimSpace(s)
	for _, r := range AllRanges {
		if strings.EqualFold(s, string(r)) || strings.EqualFold(s, rangeTitles[r]) {
			return r, nil
		}
	}
	return "", ErrInvalidRange
}

// Title is the short label shown in a range picker
func (r ChartRange) Title() string {
	return rangeTitles[r]
}

// StartDate returns the first day of the window ending at now, as YYYY-MM-DD
func (r ChartRange) StartDate(now time.Time) string {
	var start time.Time
	switch r {
	case RangeOneDay:
		start = now
	case RangeOneWeek:
		start = now.AddDate(0, 0, -7)
	case RangeOneMonth:
		start = now.AddDate(0, -1, 0)
	case RangeThreeMonth:
		start = now.AddDate(0, -3, 0)
	case RangeSixMonth:
		start = now.AddDate(0, -6, 0)
	case RangeYTD, RangeOneYear:
		start = now.AddDate(-1, 0, 0)
	case RangeTwoYear:
		start = now.AddDate(-2, 0, 0)
	case RangeFiveYear:
		start = now.AddDate(-5, 0, 0)
	case RangeTenYear:
		start = now.AddDate(-10, 0, 0)
	default:
		start = now.AddDate(-15, 0, 0)
	}
	return start.Format("2006-01-02")
}
