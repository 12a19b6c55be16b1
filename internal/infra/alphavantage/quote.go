package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/stockwatch/internal/domain/quote"
)

// globalQuoteResponse is the GLOBAL_QUOTE payload
type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol           string `json:"01. symbol"`
		Open             string `json:"02. open"`
		High             string `json:"03. high"`
		Low              string `json:"04. low"`
		Price            string `json:"05. price"`
		Volume           string `json:"06. volume"`
		LatestTradingDay string `json:"07. latest trading day"`
		PreviousClose    string `json:"08. previous close"`
		Change           string `json:"09. change"`
		ChangePercent    string `json:"10. change percent"`
	} `json:"Global Quote"`
}

// GetQuote fetches the latest price and daily change for symbol
func (c *Client) GetQuote(ctx context.Context, symbol string) (*quote.Quote, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, quote.ErrSymbolNotFound
	}

	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)

	var resp globalQuoteResponse
	if err := c.query(ctx, params, &resp); err != nil {
		return nil, err
	}

	gq := resp.GlobalQuote
	if gq.Price == "" {
		// unknown symbols come back as an empty object
		return nil, fmt.Errorf("%w: %s", quote.ErrSymbolNotFound, symbol)
	}

	return &quote.Quote{
		Symbol:           gq.Symbol,
		Price:            gq.Price,
		ChangePercent:    gq.ChangePercent,
		PreviousClose:    gq.PreviousClose,
		LatestTradingDay: gq.LatestTradingDay,
		AsOf:             c.now(),
	}, nil
}
