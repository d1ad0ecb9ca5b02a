// Package price looks up USD quotes for token symbols from the CoinGecko
// simple price API.
package price

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrz1836/tally/internal/cache"
	"github.com/mrz1836/tally/internal/chain"
	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

const (
	// DefaultBaseURL is the public CoinGecko v3 API.
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	// DefaultTTL is how long a quote is served from memory.
	DefaultTTL = time.Minute

	httpTimeout     = 10 * time.Second
	maxResponseBody = 1 << 20
)

var (
	// ErrAPIError indicates the price API returned an error response.
	ErrAPIError = &tallyerr.TallyError{
		Code:     "PRICE_API_ERROR",
		Message:  "price API returned an error",
		ExitCode: tallyerr.ExitGeneral,
	}

	// ErrRateLimited indicates the price API rate limit was exceeded.
	ErrRateLimited = &tallyerr.TallyError{
		Code:     "PRICE_RATE_LIMITED",
		Message:  "price API rate limit exceeded",
		ExitCode: tallyerr.ExitGeneral,
	}
)

// coinIDs maps token symbols to CoinGecko coin ids.
var coinIDs = map[string]string{
	"ETH":    "ethereum",
	"BNB":    "binancecoin",
	"MATIC":  "matic-network",
	"AVAX":   "avalanche-2",
	"FTM":    "fantom",
	"USDT":   "tether",
	"USDC":   "usd-coin",
	"DAI":    "dai",
	"WETH":   "weth",
	"WBNB":   "wbnb",
	"WMATIC": "wmatic",
	"ARB":    "arbitrum",
	"OP":     "optimism",
	"WAVAX":  "wrapped-avax",
	"WFTM":   "wrapped-fantom",
}

// CoinID returns the CoinGecko id for symbol.
func CoinID(symbol string) (string, bool) {
	id, ok := coinIDs[strings.ToUpper(strings.TrimSpace(symbol))]
	return id, ok
}

// Symbols returns the symbols with a known coin id, sorted.
func Symbols() []string {
	out := make([]string, 0, len(coinIDs))
	for s := range coinIDs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Client fetches USD prices and caches them in memory.
type Client struct {
	baseURL     string
	apiKey      string
	ttl         time.Duration
	httpClient  *http.Client
	rateLimiter *chain.RateLimiter
	quotes      *cache.Cache[decimal.Decimal]
}

// ClientOptions configures the client.
type ClientOptions struct {
	// BaseURL overrides DefaultBaseURL.
	BaseURL string
	// APIKey is sent as the demo API key header when set.
	APIKey string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	// TTL overrides DefaultTTL. A negative TTL disables caching.
	TTL time.Duration
	// RateLimiter overrides the default limit of 1 request/s with a burst of 5.
	RateLimiter *chain.RateLimiter
}

// NewClient creates a price client.
func NewClient(opts *ClientOptions) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		ttl:     DefaultTTL,
		httpClient: &http.Client{
			Timeout: httpTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		rateLimiter: chain.NewRateLimiter(1, 5),
		quotes:      cache.New[decimal.Decimal](),
	}

	if opts != nil {
		if opts.BaseURL != "" {
			c.baseURL = strings.TrimRight(opts.BaseURL, "/")
		}
		c.apiKey = opts.APIKey
		if opts.HTTPClient != nil {
			c.httpClient = opts.HTTPClient
		}
		if opts.TTL != 0 {
			c.ttl = opts.TTL
		}
		if opts.RateLimiter != nil {
			c.rateLimiter = opts.RateLimiter
		}
	}
	return c
}

// USD returns the USD price of each symbol that has a known coin id and a
// quote. Unknown symbols and symbols without a quote are absent from the
// result. An input with no known symbols makes no request.
func (c *Client) USD(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	wanted := make(map[string]string)

	for _, s := range symbols {
		symbol := strings.ToUpper(strings.TrimSpace(s))
		id, ok := CoinID(symbol)
		if !ok {
			continue
		}
		if c.ttl > 0 {
			if p, fresh := c.quotes.GetFresh(symbol, c.ttl); fresh {
				prices[symbol] = p
				continue
			}
		}
		wanted[symbol] = id
	}
	if len(wanted) == 0 {
		return prices, nil
	}

	ids := make([]string, 0, len(wanted))
	seen := make(map[string]bool, len(wanted))
	for _, id := range wanted {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	quotes, err := c.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	for symbol, id := range wanted {
		p, ok := quotes[id]
		if !ok {
			continue
		}
		prices[symbol] = p
		if c.ttl > 0 {
			c.quotes.Set(symbol, p)
		}
	}
	if c.ttl > 0 {
		c.quotes.Prune(c.ttl)
	}
	return prices, nil
}

// fetch calls /simple/price and returns the USD quote per coin id.
func (c *Client) fetch(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	if err := c.rateLimiter.Wait(ctx, "coingecko"); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", "usd")
	reqURL := fmt.Sprintf("%s/simple/price?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL built from configured base URL
	if err != nil {
		return nil, tallyerr.WithCause(tallyerr.ErrNetworkError, fmt.Errorf("sending request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, tallyerr.WithDetails(ErrRateLimited, map[string]string{
			"status": fmt.Sprintf("%d", resp.StatusCode),
		})
	case resp.StatusCode != http.StatusOK:
		return nil, tallyerr.WithDetails(ErrAPIError, map[string]string{
			"status": fmt.Sprintf("%d", resp.StatusCode),
			"body":   truncateBody(string(body), 512),
		})
	}

	var raw map[string]map[string]json.Number
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, tallyerr.WithCause(ErrAPIError, fmt.Errorf("parsing response: %w", err))
	}

	out := make(map[string]decimal.Decimal, len(raw))
	for id, quote := range raw {
		usd, ok := quote["usd"]
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(usd.String())
		if err != nil || !d.IsPositive() {
			continue
		}
		out[id] = d
	}
	return out, nil
}

func truncateBody(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
