package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bobmcallan/coinboard/internal/client"
	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/market"
	"github.com/bobmcallan/coinboard/internal/models"
	"github.com/bobmcallan/coinboard/internal/simulator"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"
)

// Market is the read side the tools call. *client.MarketClient satisfies it.
type Market interface {
	Listings(ctx context.Context, page, perPage int) ([]models.Asset, error)
	Asset(ctx context.Context, id string) (*models.Asset, error)
	AssetDetail(ctx context.Context, id string) (*models.AssetDetail, error)
	PriceHistory(ctx context.Context, id string, days int) (*models.PriceHistory, error)
	Global(ctx context.Context) (*models.GlobalStats, error)
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// Deps are the components the tools run against.
type Deps struct {
	Market    Market
	Charts    *market.ChartBuilder
	Favorites *market.FavoritesStore
	Simulator *simulator.Simulator
	Timeout   time.Duration
}

// tools holds the tool implementations.
type tools struct {
	deps   Deps
	logger *common.Logger
}

// errorResult creates an MCP error result.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(text)}}
}

func jsonResult(v interface{}) *mcp.CallToolResult {
	out, err := json.Marshal(v)
	if err != nil {
		return errorResult("Error: failed to encode result")
	}
	return textResult(string(out))
}

func (t *tools) upstreamError(tool string, err error) *mcp.CallToolResult {
	if client.IsNotFound(err) {
		return errorResult("Error: no such asset or route on the market proxy")
	}
	t.logger.Warn().Str("tool", tool).Err(err).Msg("tool call failed")
	return errorResult(fmt.Sprintf("Error: %v", err))
}

func (t *tools) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := t.deps.Timeout
	if timeout <= 0 {
		timeout = market.DefaultRequestTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (t *tools) catalog() []catalogEntry {
	return []catalogEntry{
		{CatalogTool{
			Name:        "search_assets",
			Description: "Search cryptocurrencies by name or symbol.",
			Params: []CatalogParam{
				{Name: "query", Type: "string", Description: "Name or symbol, at least two characters", Required: true},
				{Name: "limit", Type: "number", Description: "Maximum results (default 8)"},
			},
		}, t.searchAssets},
		{CatalogTool{
			Name:        "list_markets",
			Description: "List cryptocurrencies ordered by market cap, with price, 24h change and market cap.",
			Params: []CatalogParam{
				{Name: "page", Type: "number", Description: "Page number (default 1)"},
				{Name: "per_page", Type: "number", Description: "Rows per page (default 20, max 250)"},
			},
		}, t.listMarkets},
		{CatalogTool{
			Name:        "get_asset",
			Description: "Get current market metrics for one cryptocurrency.",
			Params: []CatalogParam{
				{Name: "id", Type: "string", Description: "Asset id, e.g. bitcoin", Required: true},
			},
		}, t.getAsset},
		{CatalogTool{
			Name:        "get_asset_detail",
			Description: "Get the description, links and extended market data for one cryptocurrency.",
			Params: []CatalogParam{
				{Name: "id", Type: "string", Description: "Asset id, e.g. bitcoin", Required: true},
			},
		}, t.getAssetDetail},
		{CatalogTool{
			Name:        "global_stats",
			Description: "Get total market cap, 24h volume, bitcoin dominance and active asset count.",
		}, t.globalStats},
		{CatalogTool{
			Name:        "price_history",
			Description: "Get daily price samples for one cryptocurrency.",
			Params: []CatalogParam{
				{Name: "id", Type: "string", Description: "Asset id, e.g. bitcoin", Required: true},
				{Name: "days", Type: "number", Description: "Lookback in days (default 7)"},
			},
		}, t.priceHistory},
		{CatalogTool{
			Name:        "compare_assets",
			Description: "Compare the price performance of up to four cryptocurrencies over 7, 30, 90 or 365 days.",
			Params: []CatalogParam{
				{Name: "ids", Type: "array", Description: "Asset ids, one to four", Required: true},
				{Name: "days", Type: "number", Description: "Timeframe: 7, 30, 90 or 365 (default 7)"},
			},
		}, t.compareAssets},
		{CatalogTool{
			Name:        "simulate_investment",
			Description: "Run a randomized, illustrative investment scenario. Not a prediction and not financial advice.",
			Params: []CatalogParam{
				{Name: "investment", Type: "number", Description: "Amount in USD, up to 1,000,000", Required: true},
				{Name: "asset", Type: "string", Description: "bitcoin, ethereum, cardano, solana, polygon or chainlink", Required: true},
				{Name: "timeframe", Type: "string", Description: "1m, 3m, 6m, 1y, 2y or 5y", Required: true},
			},
		}, t.simulate},
		{CatalogTool{
			Name:        "list_favorites",
			Description: "List favorited cryptocurrencies with current metrics.",
		}, t.listFavorites},
		{CatalogTool{
			Name:        "toggle_favorite",
			Description: "Add or remove a cryptocurrency from favorites.",
			Params: []CatalogParam{
				{Name: "id", Type: "string", Description: "Asset id, e.g. bitcoin", Required: true},
			},
		}, t.toggleFavorite},
		{VersionCatalogTool(), VersionToolHandler()},
	}
}

func (t *tools) searchAssets(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(r.GetString("query", ""))
	if len([]rune(query)) < market.DefaultMinQueryLength {
		return errorResult("Error: query must be at least 2 characters"), nil
	}
	limit := int(r.GetFloat("limit", market.CompareResultLimit))

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	results, err := t.deps.Market.Search(ctx, query)
	if err != nil {
		return t.upstreamError("search_assets", err), nil
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	return jsonResult(results), nil
}

func (t *tools) listMarkets(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := int(r.GetFloat("page", 1))
	perPage := int(r.GetFloat("per_page", 20))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 250 {
		perPage = 20
	}

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	assets, err := t.deps.Market.Listings(ctx, page, perPage)
	if err != nil {
		return t.upstreamError("list_markets", err), nil
	}
	return textResult(formatListings(assets)), nil
}

func formatListings(assets []models.Asset) string {
	var b strings.Builder
	b.WriteString("| # | Name | Price | 24h | Market Cap |\n")
	b.WriteString("|---|------|-------|-----|------------|\n")
	for _, a := range assets {
		fmt.Fprintf(&b, "| %d | %s (%s) | %s | %s | %s |\n",
			a.MarketCapRank, a.Name, strings.ToUpper(a.Symbol),
			common.FormatPrice(a.CurrentPrice),
			common.FormatSignedPct(a.PriceChangePercentage24h),
			common.FormatMarketCap(a.MarketCap))
	}
	return b.String()
}

func (t *tools) getAsset(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(r.GetString("id", ""))
	if id == "" {
		return errorResult("Error: id parameter is required"), nil
	}

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	asset, err := t.deps.Market.Asset(ctx, id)
	if err != nil {
		return t.upstreamError("get_asset", err), nil
	}
	return jsonResult(struct {
		*models.Asset
		Favorite bool `json:"favorite"`
	}{asset, t.deps.Favorites.IsFavorite(asset.ID)}), nil
}

func (t *tools) getAssetDetail(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(r.GetString("id", ""))
	if id == "" {
		return errorResult("Error: id parameter is required"), nil
	}

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	detail, err := t.deps.Market.AssetDetail(ctx, id)
	if err != nil {
		return t.upstreamError("get_asset_detail", err), nil
	}

	md := detail.MarketData
	return jsonResult(map[string]interface{}{
		"asset":       detail.Asset(),
		"description": detail.EnglishDescription(),
		"homepage":    firstNonEmpty(detail.Links.Homepage),
		"high_24h":    md.High24h[models.QuoteCurrency],
		"low_24h":     md.Low24h[models.QuoteCurrency],
		"ath":         md.ATH[models.QuoteCurrency],
		"atl":         md.ATL[models.QuoteCurrency],
	}), nil
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (t *tools) globalStats(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	stats, err := t.deps.Market.Global(ctx)
	if err != nil {
		return t.upstreamError("global_stats", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total market cap: %s (%s 24h)\n",
		common.FormatMarketCap(stats.TotalMarketCap[models.QuoteCurrency]),
		common.FormatSignedPct(stats.MarketCapChangePercentage24hUSD))
	fmt.Fprintf(&b, "24h volume: %s\n", common.FormatMarketCap(stats.TotalVolume[models.QuoteCurrency]))
	fmt.Fprintf(&b, "Bitcoin dominance: %.2f%%\n", stats.BitcoinDominance())
	fmt.Fprintf(&b, "Active cryptocurrencies: %s\n", common.FormatCount(stats.ActiveCryptocurrencies))
	return textResult(b.String()), nil
}

func (t *tools) priceHistory(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(r.GetString("id", ""))
	if id == "" {
		return errorResult("Error: id parameter is required"), nil
	}
	days := int(r.GetFloat("days", float64(models.DefaultTimeframe)))
	if days < 1 || days > 365 {
		return errorResult("Error: days must be between 1 and 365"), nil
	}

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	history, err := t.deps.Market.PriceHistory(ctx, id, days)
	if err != nil {
		return t.upstreamError("price_history", err), nil
	}
	if history.Prices == nil {
		history.Prices = []models.PricePoint{}
	}
	return jsonResult(history), nil
}

// seriesSummary condenses one chart series.
type seriesSummary struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	ChangePct float64 `json:"change_pct"`
	Points    int     `json:"points"`
	From      string  `json:"from,omitempty"`
	To        string  `json:"to,omitempty"`
	Synthetic bool    `json:"synthetic"`
	Reason    string  `json:"reason,omitempty"`
}

func (t *tools) compareAssets(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := stringList(r.GetArguments(), "ids")
	if len(ids) == 0 {
		return errorResult("Error: ids parameter is required"), nil
	}
	if len(ids) > market.MaxSelection {
		return errorResult(fmt.Sprintf("Error: at most %d assets can be compared", market.MaxSelection)), nil
	}
	tf, err := models.TimeframeForDays(int(r.GetFloat("days", float64(models.DefaultTimeframe))))
	if err != nil {
		return errorResult("Error: days must be one of 7, 30, 90 or 365"), nil
	}

	// Members keep selection order; an asset that cannot be resolved still
	// gets a series so the chart stays complete.
	members := make([]models.Asset, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			actx, cancel := t.withTimeout(gctx)
			defer cancel()
			asset, err := t.deps.Market.Asset(actx, id)
			if err != nil {
				t.logger.Debug().Str("id", id).Err(err).Msg("compare: asset lookup failed")
				members[i] = models.Asset{ID: id, Name: id}
				return nil
			}
			members[i] = *asset
			return nil
		})
	}
	g.Wait()

	ds := t.deps.Charts.Build(ctx, members, tf)
	out := make([]seriesSummary, len(ds.Series))
	for i, s := range ds.Series {
		out[i] = summarize(s)
	}
	return jsonResult(map[string]interface{}{
		"timeframe": tf.Days(),
		"series":    out,
	}), nil
}

func summarize(s market.ChartSeries) seriesSummary {
	sum := seriesSummary{
		ID:        s.ID,
		Label:     s.Label,
		Points:    len(s.Points),
		Synthetic: s.Synthetic,
		Reason:    s.Reason,
	}
	if len(s.Points) > 0 {
		first, last := s.Points[0], s.Points[len(s.Points)-1]
		sum.Start, sum.End = first.Price, last.Price
		sum.From = first.Time().Format(time.RFC3339)
		sum.To = last.Time().Format(time.RFC3339)
		if sum.Start != 0 {
			sum.ChangePct = (sum.End - sum.Start) / sum.Start * 100
		}
	}
	return sum
}

// stringList reads an array argument, accepting a comma-separated string too.
func stringList(args map[string]any, key string) []string {
	var raw []string
	switch v := args[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case []string:
		raw = v
	case string:
		raw = strings.Split(v, ",")
	}

	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (t *tools) simulate(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := simulator.Request{
		Investment: r.GetFloat("investment", 0),
		Asset:      strings.TrimSpace(r.GetString("asset", "")),
		Timeframe:  strings.TrimSpace(r.GetString("timeframe", "")),
	}
	result, err := t.deps.Simulator.Simulate(req)
	if err != nil {
		if errors.Is(err, simulator.ErrInvalidInvestment) ||
			errors.Is(err, simulator.ErrUnknownAsset) ||
			errors.Is(err, simulator.ErrUnknownTimeframe) {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}
		return t.upstreamError("simulate_investment", err), nil
	}

	final, _ := result.FinalValue.Float64()
	profit, _ := result.Profit.Float64()
	pct, _ := result.ProfitPercentage.Float64()

	var b strings.Builder
	fmt.Fprintf(&b, "%s over %s: %s (%s, %s)\n", result.Asset, result.Timeframe,
		common.FormatMoney(final), common.FormatSignedMoney(profit), common.FormatSignedPct(pct))
	fmt.Fprintf(&b, "Scenario: %s. Risk: %s.\n", result.Scenario, result.RiskLevel)
	b.WriteString(result.Disclaimer)
	return textResult(b.String()), nil
}

func (t *tools) listFavorites(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := t.deps.Favorites.IDs()
	assets := make([]*models.Asset, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range ids {
		g.Go(func() error {
			actx, cancel := t.withTimeout(gctx)
			defer cancel()
			asset, err := t.deps.Market.Asset(actx, id)
			if err != nil {
				t.logger.Debug().Str("id", id).Err(err).Msg("favorites: asset lookup failed")
				return nil
			}
			assets[i] = asset
			return nil
		})
	}
	g.Wait()

	out := make([]models.Asset, 0, len(ids))
	for _, a := range assets {
		if a != nil {
			out = append(out, *a)
		}
	}
	if len(out) == 0 && len(ids) > 0 {
		return textResult("Favorites: " + strings.Join(ids, ", ") + " (market data unavailable)"), nil
	}
	if len(out) == 0 {
		return textResult("No favorites yet."), nil
	}
	return textResult(formatListings(out)), nil
}

func (t *tools) toggleFavorite(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(r.GetString("id", ""))
	if id == "" {
		return errorResult("Error: id parameter is required"), nil
	}
	now, err := t.deps.Favorites.Toggle(ctx, id)
	if err != nil {
		return t.upstreamError("toggle_favorite", err), nil
	}
	return jsonResult(map[string]interface{}{
		"id":        id,
		"favorite":  now,
		"favorites": t.deps.Favorites.IDs(),
	}), nil
}
