// Package gateway is the HTTP client for the upstream market-data provider
// (CoinGecko v3 API).
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/config"
	"github.com/bobmcallan/coinboard/internal/models"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// maxResponseSize caps upstream bodies; full-detail records are the largest at a few hundred KB.
const maxResponseSize = 10 << 20

// apiKeyHeader carries the demo-plan API key.
const apiKeyHeader = "x-cg-demo-api-key"

var (
	// ErrUpstream marks network failures and non-2xx responses.
	ErrUpstream = errors.New("upstream unavailable")
	// ErrNotFound marks a 404 for an unknown asset id.
	ErrNotFound = errors.New("not found")
)

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets callers test with errors.Is against ErrNotFound / ErrUpstream.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return ErrUpstream
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to the upstream market-data API.
type Client struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	limiter       *rate.Limiter
	maxRetries    int
	retryInterval time.Duration
	logger        *common.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryInterval sets the initial retry backoff interval.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) { c.retryInterval = d }
}

// NewClient creates a gateway client from config.
func NewClient(cfg *config.GatewayConfig, logger *common.Logger, opts ...Option) *Client {
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RateLimit))
		burst = max(1, cfg.RateLimit/6)
	}

	c := &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		httpClient:    &http.Client{Timeout: cfg.GetTimeout()},
		limiter:       rate.NewLimiter(limit, burst),
		maxRetries:    max(0, cfg.MaxRetries),
		retryInterval: 500 * time.Millisecond,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Markets returns one page of assets ordered by market cap.
// GET /coins/markets?vs_currency=usd&order=market_cap_desc&per_page=N&page=P
func (c *Client) Markets(ctx context.Context, page, perPage int) ([]models.Asset, error) {
	q := url.Values{}
	q.Set("vs_currency", models.QuoteCurrency)
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", "24h")

	var assets []models.Asset
	if err := c.get(ctx, "/coins/markets", q, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// Coin returns the rich record for one asset.
// GET /coins/{id}?localization=false&tickers=false&market_data=true...
func (c *Client) Coin(ctx context.Context, id string) (*models.AssetDetail, error) {
	q := url.Values{}
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("market_data", "true")
	q.Set("community_data", "false")
	q.Set("developer_data", "false")
	q.Set("sparkline", "false")

	var detail models.AssetDetail
	if err := c.get(ctx, "/coins/"+url.PathEscape(id), q, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// MarketChart returns price samples for the last `days` days. A one-day window
// is sampled hourly, anything longer daily.
// GET /coins/{id}/market_chart?vs_currency=usd&days=N&interval=daily
func (c *Client) MarketChart(ctx context.Context, id string, days int) (*models.PriceHistory, error) {
	interval := "daily"
	if days == 1 {
		interval = "hourly"
	}
	q := url.Values{}
	q.Set("vs_currency", models.QuoteCurrency)
	q.Set("days", strconv.Itoa(days))
	q.Set("interval", interval)

	var history models.PriceHistory
	if err := c.get(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", q, &history); err != nil {
		return nil, err
	}
	return &history, nil
}

// Global returns aggregate market totals.
// GET /global -> { data: GlobalStats }
func (c *Client) Global(ctx context.Context) (*models.GlobalStats, error) {
	var envelope struct {
		Data models.GlobalStats `json:"data"`
	}
	if err := c.get(ctx, "/global", nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// Search runs a free-text asset search.
// GET /search?query=Q -> { coins: [...] }
func (c *Client) Search(ctx context.Context, query string) (*models.SearchResponse, error) {
	q := url.Values{}
	q.Set("query", query)

	var resp models.SearchResponse
	if err := c.get(ctx, "/search", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// get performs a rate-limited GET with bounded retry on 429/5xx and network errors.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	attempt := 0
	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrUpstream, err))
		}
		return c.do(ctx, path, target, out)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx)

	err := backoff.Retry(operation, b)
	if err != nil {
		c.logger.Warn().
			Str("path", path).
			Int("attempts", attempt).
			Str("error", err.Error()).
			Msg("gateway request failed")
	}
	return err
}

func (c *Client) do(ctx context.Context, path, target string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	c.logger.Debug().Str("method", "GET").Str("path", path).Msg("gateway request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrUpstream, err))
		}
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrUpstream, err)
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("gateway response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
		if statusErr.retryable() {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return backoff.Permanent(fmt.Errorf("%w: failed to parse response: %v", ErrUpstream, err))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
