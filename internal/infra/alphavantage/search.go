package alphavantage

import (
	"context"
	"net/url"

	"github.com/wonny/stockwatch/internal/domain/quote"
)

type symbolSearchResponse struct {
	BestMatches []struct {
		Symbol      string `json:"1. symbol"`
		Name        string `json:"2. name"`
		Type        string `json:"3. type"`
		Region      string `json:"4. region"`
		MarketOpen  string `json:"5. marketOpen"`
		MarketClose string `json:"6. marketClose"`
		Timezone    string `json:"7. timezone"`
		Currency    string `json:"8. currency"`
		MatchScore  string `json:"9. matchScore"`
	} `json:"bestMatches"`
}

// SearchSymbols resolves keywords with SYMBOL_SEARCH
func (c *Client) SearchSymbols(ctx context.Context, keywords string) ([]quote.SymbolMatch, error) {
	params := url.Values{}
	params.Set("function", "SYMBOL_SEARCH")
	params.Set("keywords", keywords)

	var resp symbolSearchResponse
	if err := c.query(ctx, params, &resp); err != nil {
		return nil, err
	}

	matches := make([]quote.SymbolMatch, 0, len(resp.BestMatches))
	for _, m := range resp.BestMatches {
		matches = append(matches, quote.SymbolMatch{
			Symbol:     m.Symbol,
			Name:       m.Name,
			Type:       m.Type,
			Region:     m.Region,
			Currency:   m.Currency,
			MatchScore: m.MatchScore,
		})
	}
	return matches, nil
}
