package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/stockwatch/internal/domain/quote"
)

// newTestClient serves body for every request and records the last request URL
func newTestClient(t *testing.T, status int, body string) (*Client, *url.URL) {
	t.Helper()

	last := &url.URL{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*last = *r.URL
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "demo"})
	c.now = func() time.Time { return time.Date(2024, 12, 12, 10, 0, 0, 0, time.UTC) }
	return c, last
}

func TestGetQuote(t *testing.T) {
	c, last := newTestClient(t, http.StatusOK, `{
		"Global Quote": {
			"01. symbol": "IBM",
			"02. open": "231.0000",
			"05. price": "232.5200",
			"07. latest trading day": "2024-12-11",
			"08. previous close": "230.1200",
			"09. change": "2.4000",
			"10. change percent": "1.0429%"
		}
	}`)

	q, err := c.GetQuote(context.Background(), "IBM")
	require.NoError(t, err)

	assert.Equal(t, "IBM", q.Symbol)
	assert.Equal(t, "232.5200", q.Price)
	assert.Equal(t, "1.0429%", q.ChangePercent)
	assert.Equal(t, "230.1200", q.PreviousClose)
	assert.Equal(t, "2024-12-11", q.LatestTradingDay)

	assert.Equal(t, "/query", last.Path)
	assert.Equal(t, "GLOBAL_QUOTE", last.Query().Get("function"))
	assert.Equal(t, "IBM", last.Query().Get("symbol"))
	assert.Equal(t, "demo", last.Query().Get("apikey"))
}

func TestGetQuote_UnknownSymbol(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{"Global Quote": {}}`)

	_, err := c.GetQuote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, quote.ErrSymbolNotFound)
}

func TestQuery_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limit note", http.StatusOK, `{"Note": "Thank you for using Alpha Vantage!"}`, quote.ErrRateLimited},
		{"rate limit information", http.StatusOK, `{"Information": "API rate limit"}`, quote.ErrRateLimited},
		{"too many requests", http.StatusTooManyRequests, `{}`, quote.ErrRateLimited},
		{"server error", http.StatusBadGateway, `bad gateway`, quote.ErrTransport},
		{"malformed body", http.StatusOK, `{"Global Quote": [`, quote.ErrDecoding},
		{"error message", http.StatusOK, `{"Error Message": "Invalid API call"}`, quote.ErrSymbolNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.status, tt.body)
			_, err := c.GetQuote(context.Background(), "IBM")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestQuery_Unreachable(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

	_, err := c.GetQuote(context.Background(), "IBM")
	assert.ErrorIs(t, err, quote.ErrTransport)
}

func TestGetTimeSeries(t *testing.T) {
	c, last := newTestClient(t, http.StatusOK, `{
		"Meta Data": {"2. Symbol": "IBM"},
		"Weekly Time Series": {
			"2024-12-06": {"1. open": "227.5", "2. high": "238.3", "3. low": "226.9", "4. close": "238.04"},
			"2024-11-29": {"1. open": "223.3", "2. high": "230.3", "3. low": "222.7", "4. close": "227.41"}
		}
	}`)

	series, err := c.GetTimeSeries(context.Background(), "IBM", quote.GranularityWeekly)
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, "238.04", series["2024-12-06"].Close)
	assert.Equal(t, "TIME_SERIES_WEEKLY", last.Query().Get("function"))
}

func TestGetTimeSeries_MissingSeries(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{"Meta Data": {}}`)

	_, err := c.GetTimeSeries(context.Background(), "IBM", quote.GranularityMonthly)
	assert.ErrorIs(t, err, quote.ErrSymbolNotFound)
}

func TestSearchSymbols(t *testing.T) {
	c, last := newTestClient(t, http.StatusOK, `{
		"bestMatches": [
			{"1. symbol": "TSCO.LON", "2. name": "Tesco PLC", "3. type": "Equity", "4. region": "United Kingdom", "8. currency": "GBX", "9. matchScore": "0.7273"},
			{"1. symbol": "TSCDF", "2. name": "Tesco plc", "3. type": "Equity", "4. region": "United States", "8. currency": "USD", "9. matchScore": "0.7143"}
		]
	}`)

	matches, err := c.SearchSymbols(context.Background(), "tesco")
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, "TSCO.LON", matches[0].Symbol)
	assert.Equal(t, "Tesco PLC", matches[0].Name)
	assert.Equal(t, "GBX", matches[0].Currency)
	assert.Equal(t, "tesco", last.Query().Get("keywords"))
}

func TestGetHistoricalOptions(t *testing.T) {
	c, last := newTestClient(t, http.StatusOK, `{
		"endpoint": "Historical Options",
		"message": "success",
		"data": [
			{"contractID": "IBM241213C00100000", "symbol": "IBM", "expiration": "2024-12-13", "strike": "100.00", "type": "call", "last": "130.00"}
		]
	}`)

	contracts, err := c.GetHistoricalOptions(context.Background(), "IBM", quote.RangeOneMonth)
	require.NoError(t, err)

	require.Len(t, contracts, 1)
	assert.Equal(t, "IBM241213C00100000", contracts[0].ContractID)
	assert.Equal(t, "IBM", contracts[0].Symbol)
	assert.Equal(t, "100.00", contracts[0].Strike)
	assert.Equal(t, "2024-11-12", last.Query().Get("date"))
}

func TestGetHistoricalOptions_InvalidRange(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{}`)

	_, err := c.GetHistoricalOptions(context.Background(), "IBM", quote.ChartRange("3w"))
	assert.ErrorIs(t, err, quote.ErrInvalidRange)
}
