package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wonny/stockwatch/internal/domain/quote"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://www.alphavantage.co"
	defaultTimeout = 10 * time.Second
)

// Config holds Alpha Vantage client settings
type Config struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	RequestsPerMin int // 0 disables client-side rate limiting
}

// Client talks to the Alpha Vantage /query endpoint.
// It implements quote.Client, quote.HistoryClient, quote.SymbolSearcher and quote.OptionsClient.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewClient creates a new Alpha Vantage client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
	}
	if cfg.RequestsPerMin > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMin)), 1)
	}
	return c
}

// query performs GET /query with params and decodes the body into out.
// Provider notices ("Note", "Information") are mapped to quote.ErrRateLimited.
func (c *Client) query(ctx context.Context, params url.Values, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", quote.ErrTransport, err)
		}
	}

	params.Set("apikey", c.apiKey)
	reqURL := fmt.Sprintf("%s/query?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", quote.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", quote.ErrTransport, err)
	}

	log.Debug().
		Str("function", params.Get("function")).
		Str("symbol", params.Get("symbol")).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Alpha Vantage request")

	if resp.StatusCode == http.StatusTooManyRequests {
		return quote.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status=%d", quote.ErrTransport, resp.StatusCode)
	}

	var notice struct {
		Note         string `json:"Note"`
		Information  string `json:"Information"`
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(body, &notice); err != nil {
		return fmt.Errorf("%w: %v", quote.ErrDecoding, err)
	}
	switch {
	case notice.ErrorMessage != "":
		return fmt.Errorf("%w: %s", quote.ErrSymbolNotFound, notice.ErrorMessage)
	case notice.Note != "", notice.Information != "":
		log.Warn().
			Str("function", params.Get("function")).
			Msg("Alpha Vantage rate limit notice")
		return quote.ErrRateLimited
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", quote.ErrDecoding, err)
	}
	return nil
}
