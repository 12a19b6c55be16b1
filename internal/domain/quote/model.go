package quote

import (
	"time"
)

// Quote is a point-in-time price for a symbol
type Quote struct {
	Symbol           string    `json:"symbol"`
	Price            string    `json:"price"`
	ChangePercent    string    `json:"change_percent"` // e.g. "1.2345%"
	PreviousClose    string    `json:"previous_close,omitempty"`
	LatestTradingDay string    `json:"latest_trading_day,omitempty"`
	AsOf             time.Time `json:"as_of"`
}

// Granularity selects the time series interval
type Granularity string

const (
	GranularityDaily   Granularity = "DAILY"
	GranularityWeekly  Granularity = "WEEKLY"
	GranularityMonthly Granularity = "MONTHLY"
)

// TimeSeriesEntry is one OHLC observation
type TimeSeriesEntry struct {
	Open  string `json:"open"`
	High  string `json:"high"`
	Low   string `json:"low"`
	Close string `json:"close"`
}

// TimeSeries maps an observation date (YYYY-MM-DD) to its entry
type TimeSeries map[string]TimeSeriesEntry

// SymbolMatch is one search hit
type SymbolMatch struct {
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	Region     string `json:"region,omitempty"`
	Currency   string `json:"currency,omitempty"`
	MatchScore string `json:"match_score,omitempty"`
}

// OptionContract is one row of a historical options chain
type OptionContract struct {
	ContractID        string `json:"contract_id"`
	Symbol            string `json:"symbol"`
	Expiration        string `json:"expiration"`
	Strike            string `json:"strike"`
	Type              string `json:"type"`
	Last              string `json:"last"`
	Mark              string `json:"mark"`
	Bid               string `json:"bid"`
	BidSize           string `json:"bid_size"`
	Ask               string `json:"ask"`
	AskSize           string `json:"ask_size"`
	Volume            string `json:"volume"`
	OpenInterest      string `json:"open_interest"`
	Date              string `json:"date"`
	ImpliedVolatility string `json:"implied_volatility"`
	Delta             string `json:"delta"`
	Gamma             string `json:"gamma"`
	Theta             string `json:"theta"`
	Vega              string `json:"vega"`
	Rho               string `json:"rho"`
}
