package quote

import "context"

// Client fetches point-in-time quotes
type Client interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
}

// HistoryClient fetches OHLC time series
type HistoryClient interface {
	GetTimeSeries(ctx context.Context, symbol string, granularity Granularity) (TimeSeries, error)
}

// SymbolSearcher resolves free-text keywords to ticker symbols
type SymbolSearcher interface {
	SearchSymbols(ctx context.Context, keywords string) ([]SymbolMatch, error)
}

// OptionsClient fetches historical option chains for the chart view
type OptionsClient interface {
	GetHistoricalOptions(ctx context.Context, symbol string, r ChartRange) ([]OptionContract, error)
}
