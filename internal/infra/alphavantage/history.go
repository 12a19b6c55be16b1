package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/wonny/stockwatch/internal/domain/quote"
)

type seriesEntryDTO struct {
	Open  string `json:"1. open"`
	High  string `json:"2. high"`
	Low   string `json:"3. low"`
	Close string `json:"4. close"`
}

// seriesKey is the payload key holding the observations for each granularity
var seriesKey = map[quote.Granularity]string{
	quote.GranularityDaily:   "Time Series (Daily)",
	quote.GranularityWeekly:  "Weekly Time Series",
	quote.GranularityMonthly: "Monthly Time Series",
}

// GetTimeSeries fetches TIME_SERIES_<granularity> for symbol
func (c *Client) GetTimeSeries(ctx context.Context, symbol string, granularity quote.Granularity) (quote.TimeSeries, error) {
	key, ok := seriesKey[granularity]
	if !ok {
		return nil, fmt.Errorf("unsupported granularity %q", granularity)
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_"+string(granularity))
	params.Set("symbol", symbol)

	var raw map[string]json.RawMessage
	if err := c.query(ctx, params, &raw); err != nil {
		return nil, err
	}

	body, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", quote.ErrSymbolNotFound, symbol)
	}

	var entries map[string]seriesEntryDTO
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", quote.ErrDecoding, err)
	}

	series := make(quote.TimeSeries, len(entries))
	for date, e := range entries {
		series[date] = quote.TimeSeriesEntry{
			Open:  e.Open,
			High:  e.High,
			Low:   e.Low,
			Close: e.Close,
		}
	}
	return series, nil
}
