package client

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

	"github.com/bobmcallan/coinboard/internal/models"
)

// StatusError is returned when a proxy route answers with a non-2xx status.
// Message is taken from the {"error": "..."} envelope when present.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("proxy returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the proxy.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// MarketClient communicates with the coinboard proxy routes.
type MarketClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewMarketClient creates a new client targeting the given proxy base URL.
func NewMarketClient(baseURL string, timeout time.Duration) *MarketClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MarketClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Listings fetches one page of assets ordered by market cap.
// GET /api/cryptocurrencies?page=P&per_page=N -> []Asset
func (c *MarketClient) Listings(ctx context.Context, page, perPage int) ([]models.Asset, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var assets []models.Asset
	if err := c.get(ctx, "/api/cryptocurrencies", q, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// Asset fetches the flattened record for one asset.
// GET /api/cryptocurrency/{id} -> Asset
func (c *MarketClient) Asset(ctx context.Context, id string) (*models.Asset, error) {
	var asset models.Asset
	if err := c.get(ctx, "/api/cryptocurrency/"+url.PathEscape(id), nil, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// AssetDetail fetches the rich provider record for one asset.
// GET /api/crypto-detail/{id} -> AssetDetail
func (c *MarketClient) AssetDetail(ctx context.Context, id string) (*models.AssetDetail, error) {
	var detail models.AssetDetail
	if err := c.get(ctx, "/api/crypto-detail/"+url.PathEscape(id), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// PriceHistory fetches price samples for the given window.
// GET /api/price-history/{id}?days=N -> { prices: [[ts, price], ...] }
func (c *MarketClient) PriceHistory(ctx context.Context, id string, days int) (*models.PriceHistory, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))

	var history models.PriceHistory
	if err := c.get(ctx, "/api/price-history/"+url.PathEscape(id), q, &history); err != nil {
		return nil, err
	}
	return &history, nil
}

// Global fetches aggregate market totals.
// GET /api/global-stats -> GlobalStats
func (c *MarketClient) Global(ctx context.Context) (*models.GlobalStats, error) {
	var stats models.GlobalStats
	if err := c.get(ctx, "/api/global-stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Search runs a free-text asset search.
// GET /api/search?q=Q -> { coins: [...] }
func (c *MarketClient) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)

	var resp models.SearchResponse
	if err := c.get(ctx, "/api/search", q, &resp); err != nil {
		return nil, err
	}
	return resp.Coins, nil
}

func (c *MarketClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach proxy: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error string `json:"error"`
		}
		msg := string(body)
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
			msg = envelope.Error
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
