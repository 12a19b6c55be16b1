package alphavantage

import (
	"context"
	"net/url"

	"github.com/wonny/stockwatch/internal/domain/quote"
)

type optionContractDTO struct {
	ContractID        string `json:"contractID"`
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

type historicalOptionsResponse struct {
	Endpoint string              `json:"endpoint"`
	Message  string              `json:"message"`
	Data     []optionContractDTO `json:"data"`
}

// GetHistoricalOptions fetches HISTORICAL_OPTIONS for symbol as of the start of r
func (c *Client) GetHistoricalOptions(ctx context.Context, symbol string, r quote.ChartRange) ([]quote.OptionContract, error) {
	if _, err := quote.ParseChartRange(string(r)); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("function", "HISTORICAL_OPTIONS")
	params.Set("symbol", symbol)
	params.Set("date", r.StartDate(c.now()))

	var resp historicalOptionsResponse
	if err := c.query(ctx, params, &resp); err != nil {
		return nil, err
	}

	contracts := make([]quote.OptionContract, 0, len(resp.Data))
	for _, d := range resp.Data {
		contracts = append(contracts, quote.OptionContract(d))
	}
	return contracts, nil
}
