package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/coinboard/internal/cache"
	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/models"
)

// Proxy route paths.
const (
	ListingsPath = "/api/cryptocurrencies"
	AssetPath    = "/api/cryptocurrency/"
	DetailPath   = "/api/crypto-detail/"
	HistoryPath  = "/api/price-history/"
	GlobalPath   = "/api/global-stats"
	SearchPath   = "/api/search"
)

// Listing and history defaults.
const (
	DefaultPage    = 1
	DefaultPerPage = 50
	MaxPerPage     = 250
	DefaultDays    = 7
	MaxDays        = 365
)

// MarketSource is the upstream market-data API. *gateway.Client satisfies it.
type MarketSource interface {
	Markets(ctx context.Context, page, perPage int) ([]models.Asset, error)
	Coin(ctx context.Context, id string) (*models.AssetDetail, error)
	MarketChart(ctx context.Context, id string, days int) (*models.PriceHistory, error)
	Global(ctx context.Context) (*models.GlobalStats, error)
	Search(ctx context.Context, query string) (*models.SearchResponse, error)
}

// MarketHandler serves the proxy routes. Successful responses are cached per
// route and query for the route's freshness window; failures are never cached.
type MarketHandler struct {
	src    MarketSource
	cache  *cache.ResponseCache
	logger *common.Logger
}

// NewMarketHandler creates the proxy handler.
func NewMarketHandler(src MarketSource, rc *cache.ResponseCache, logger *common.Logger) *MarketHandler {
	return &MarketHandler{src: src, cache: rc, logger: logger}
}

type fetchFunc func(ctx context.Context) (interface{}, error)

// Listings handles GET /api/cryptocurrencies?page=&per_page=.
func (h *MarketHandler) Listings(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	page := intParam(r, "page", DefaultPage, 0)
	perPage := intParam(r, "per_page", DefaultPerPage, MaxPerPage)
	h.serve(w, r, listingsKey(page, perPage), common.FreshnessListings, "Failed to fetch cryptocurrencies", h.listings(page, perPage))
}

// Asset handles GET /api/cryptocurrency/{id}, returning the flattened record.
func (h *MarketHandler) Asset(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	id := PathParam(r.URL.Path, AssetPath)
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Asset id is required")
		return
	}
	h.serve(w, r, cache.MakeKey(http.MethodGet, AssetPath+id, ""), common.FreshnessAsset, "Failed to fetch cryptocurrency",
		func(ctx context.Context) (interface{}, error) {
			detail, err := h.src.Coin(ctx, id)
			if err != nil {
				return nil, err
			}
			return detail.Asset(), nil
		})
}

// Detail handles GET /api/crypto-detail/{id}, returning the rich record.
func (h *MarketHandler) Detail(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	id := PathParam(r.URL.Path, DetailPath)
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Asset id is required")
		return
	}
	h.serve(w, r, cache.MakeKey(http.MethodGet, DetailPath+id, ""), common.FreshnessAsset, "Failed to fetch cryptocurrency detail",
		func(ctx context.Context) (interface{}, error) {
			return h.src.Coin(ctx, id)
		})
}

// History handles GET /api/price-history/{id}?days=.
func (h *MarketHandler) History(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	id := PathParam(r.URL.Path, HistoryPath)
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Asset id is required")
		return
	}
	days := intParam(r, "days", DefaultDays, MaxDays)
	key := cache.MakeKey(http.MethodGet, HistoryPath+id, "days="+strconv.Itoa(days))
	h.serve(w, r, key, common.FreshnessHistory, "Failed to fetch price history",
		func(ctx context.Context) (interface{}, error) {
			history, err := h.src.MarketChart(ctx, id, days)
			if err != nil {
				return nil, err
			}
			if history.Prices == nil {
				history.Prices = []models.PricePoint{}
			}
			models.SortPoints(history.Prices)
			return history, nil
		})
}

// Global handles GET /api/global-stats.
func (h *MarketHandler) Global(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	h.serve(w, r, globalKey(), common.FreshnessGlobal, "Failed to fetch global stats", h.global)
}

// Search handles GET /api/search?q=.
func (h *MarketHandler) Search(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		WriteError(w, http.StatusBadRequest, "Query parameter is required")
		return
	}
	key := cache.MakeKey(http.MethodGet, SearchPath, url.Values{"q": {q}}.Encode())
	h.serve(w, r, key, common.FreshnessSearch, "Failed to search cryptocurrencies",
		func(ctx context.Context) (interface{}, error) {
			resp, err := h.src.Search(ctx, q)
			if err != nil {
				return nil, err
			}
			if resp.Coins == nil {
				resp.Coins = []models.SearchResult{}
			}
			return resp, nil
		})
}

// WarmListings refreshes the cached listings page regardless of its age.
func (h *MarketHandler) WarmListings(ctx context.Context, page, perPage int) error {
	_, err := h.fill(ctx, listingsKey(page, perPage), common.FreshnessListings, h.listings(page, perPage))
	return err
}

// WarmGlobal refreshes the cached global totals regardless of their age.
func (h *MarketHandler) WarmGlobal(ctx context.Context) error {
	_, err := h.fill(ctx, globalKey(), common.FreshnessGlobal, h.global)
	return err
}

func (h *MarketHandler) listings(page, perPage int) fetchFunc {
	return func(ctx context.Context) (interface{}, error) {
		assets, err := h.src.Markets(ctx, page, perPage)
		if err != nil {
			return nil, err
		}
		if assets == nil {
			assets = []models.Asset{}
		}
		return assets, nil
	}
}

func (h *MarketHandler) global(ctx context.Context) (interface{}, error) {
	return h.src.Global(ctx)
}

// serve answers from the cache when fresh, otherwise fetches upstream.
func (h *MarketHandler) serve(w http.ResponseWriter, r *http.Request, key string, ttl time.Duration, failMsg string, fetch fetchFunc) {
	if cached, ok := h.cache.Get(key); ok {
		w.Header().Set("Age", strconv.Itoa(int(cached.Age().Seconds())))
		writeCached(w, cached, "HIT")
		return
	}

	resp, err := h.fill(r.Context(), key, ttl, fetch)
	if err != nil {
		h.logger.Warn().Str("path", r.URL.Path).Str("key", key).Err(err).Msg(failMsg)
		WriteError(w, http.StatusInternalServerError, failMsg)
		return
	}
	writeCached(w, resp, "MISS")
}

// fill fetches, encodes and stores one response.
func (h *MarketHandler) fill(ctx context.Context, key string, ttl time.Duration, fetch fetchFunc) (*cache.CachedResponse, error) {
	data, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(ttl.Seconds())))
	resp := &cache.CachedResponse{
		StatusCode: http.StatusOK,
		Headers:    headers,
		Body:       body,
		StoredAt:   time.Now(),
	}
	h.cache.SetWithTTL(key, resp, ttl)
	return resp, nil
}

func writeCached(w http.ResponseWriter, resp *cache.CachedResponse, state string) {
	for k, vals := range resp.Headers {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("X-Cache", state)
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

func listingsKey(page, perPage int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	return cache.MakeKey(http.MethodGet, ListingsPath, q.Encode())
}

func globalKey() string {
	return cache.MakeKey(http.MethodGet, GlobalPath, "")
}
