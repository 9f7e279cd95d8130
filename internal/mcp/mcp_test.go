package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/market"
	"github.com/bobmcallan/coinboard/internal/models"
	"github.com/bobmcallan/coinboard/internal/simulator"
	"github.com/bobmcallan/coinboard/internal/storage/memory"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// --- Helpers ---

type fakeMarket struct {
	assets      map[string]models.Asset
	failHistory map[string]bool
	failAll     bool
	searched    []string
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		assets: map[string]models.Asset{
			"bitcoin":  {ID: "bitcoin", Name: "Bitcoin", Symbol: "btc", CurrentPrice: 67000, MarketCap: 1.32e12, MarketCapRank: 1, PriceChangePercentage24h: 1.25},
			"ethereum": {ID: "ethereum", Name: "Ethereum", Symbol: "eth", CurrentPrice: 3500, MarketCap: 4.2e11, MarketCapRank: 2, PriceChangePercentage24h: -0.5},
			"solana":   {ID: "solana", Name: "Solana", Symbol: "sol", CurrentPrice: 150, MarketCap: 7e10, MarketCapRank: 5},
		},
		failHistory: map[string]bool{},
	}
}

var errDown = errors.New("upstream unavailable")

func (f *fakeMarket) Listings(_ context.Context, page, perPage int) ([]models.Asset, error) {
	if f.failAll {
		return nil, errDown
	}
	return []models.Asset{f.assets["bitcoin"], f.assets["ethereum"]}, nil
}

func (f *fakeMarket) Asset(_ context.Context, id string) (*models.Asset, error) {
	if f.failAll {
		return nil, errDown
	}
	a, ok := f.assets[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &a, nil
}

func (f *fakeMarket) AssetDetail(_ context.Context, id string) (*models.AssetDetail, error) {
	if f.failAll {
		return nil, errDown
	}
	return &models.AssetDetail{
		ID:          id,
		Name:        "Bitcoin",
		Symbol:      "btc",
		Description: map[string]string{"en": "Peer-to-peer cash."},
		Links:       models.DetailLinks{Homepage: []string{"", "https://bitcoin.org"}},
		MarketData: models.DetailMarketData{
			CurrentPrice: map[string]float64{"usd": 67000},
			High24h:      map[string]float64{"usd": 68000},
		},
	}, nil
}

func (f *fakeMarket) PriceHistory(_ context.Context, id string, days int) (*models.PriceHistory, error) {
	if f.failAll || f.failHistory[id] {
		return nil, errDown
	}
	price := f.assets[id].CurrentPrice
	return &models.PriceHistory{Prices: []models.PricePoint{
		{Timestamp: 1000, Price: price},
		{Timestamp: 2000, Price: price * 1.1},
	}}, nil
}

func (f *fakeMarket) Global(_ context.Context) (*models.GlobalStats, error) {
	if f.failAll {
		return nil, errDown
	}
	return &models.GlobalStats{
		ActiveCryptocurrencies: 12345,
		TotalMarketCap:         map[string]float64{"usd": 2.5e12},
		TotalVolume:            map[string]float64{"usd": 9e10},
		MarketCapPercentage:    map[string]float64{"btc": 52.4},
	}, nil
}

func (f *fakeMarket) Search(_ context.Context, q string) ([]models.SearchResult, error) {
	f.searched = append(f.searched, q)
	if f.failAll {
		return nil, errDown
	}
	var out []models.SearchResult
	for i := 0; i < 10; i++ {
		out = append(out, models.SearchResult{ID: q + string(rune('a'+i)), Name: q})
	}
	return out, nil
}

func newTestServer(t *testing.T, src *fakeMarket) (*mcpserver.MCPServer, *market.FavoritesStore) {
	t.Helper()
	logger := common.NewSilentLogger()
	favorites, err := market.NewFavoritesStore(context.Background(), memory.NewKVStorage(), "test", market.NewHub(), logger)
	if err != nil {
		t.Fatalf("new favorites store: %v", err)
	}
	s, _ := NewServer(Deps{
		Market:    src,
		Charts:    market.NewChartBuilder(src, time.Second, logger),
		Favorites: favorites,
		Simulator: simulator.New(nil, simulator.WithRand(func() float64 { return 0.5 })),
		Timeout:   time.Second,
	}, logger)
	return s, favorites
}

// listTools calls tools/list on the MCPServer and returns the tools.
func listTools(t *testing.T, s *mcpserver.MCPServer) []mcpgo.Tool {
	t.Helper()

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`)
	result := s.HandleMessage(t.Context(), msg)

	resp, ok := result.(mcpgo.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T", result)
	}

	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var toolsResult mcpgo.ListToolsResult
	if err := json.Unmarshal(resultJSON, &toolsResult); err != nil {
		t.Fatalf("failed to unmarshal ListToolsResult: %v", err)
	}

	return toolsResult.Tools
}

// callTool calls a tool on the MCPServer and returns the result.
func callTool(t *testing.T, s *mcpserver.MCPServer, name string, args map[string]interface{}) *mcpgo.CallToolResult {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":` + string(paramsJSON) + `}`)
	result := s.HandleMessage(t.Context(), msg)

	resp, ok := result.(mcpgo.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T", result)
	}

	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var toolResult mcpgo.CallToolResult
	if err := json.Unmarshal(resultJSON, &toolResult); err != nil {
		t.Fatalf("failed to unmarshal CallToolResult: %v", err)
	}

	return &toolResult
}

// resultText returns the text of the first content block.
func resultText(t *testing.T, r *mcpgo.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("expected content in result")
	}
	contentJSON, _ := json.Marshal(r.Content[0])
	var tc struct {
		Text string `json:"text"`
	}
	json.Unmarshal(contentJSON, &tc)
	return tc.Text
}

// --- Catalog ---

func TestNewServer_RegistersAllTools(t *testing.T) {
	s, _ := newTestServer(t, newFakeMarket())

	tools := listTools(t, s)
	names := make(map[string]bool, len(tools))
	for _, tool := range tools {
		names[tool.Name] = true
	}

	for _, want := range []string{
		"search_assets", "list_markets", "get_asset", "get_asset_detail", "global_stats",
		"price_history", "compare_assets", "simulate_investment", "list_favorites",
		"toggle_favorite", "get_version",
	} {
		if !names[want] {
			t.Errorf("expected tool %s to be registered", want)
		}
	}
	if len(tools) != 11 {
		t.Errorf("expected 11 tools, got %d", len(tools))
	}
}

func TestValidateCatalogTool(t *testing.T) {
	cases := []struct {
		name    string
		tool    CatalogTool
		wantErr bool
	}{
		{"valid", CatalogTool{Name: "get_asset", Description: "d"}, false},
		{"empty name", CatalogTool{Description: "d"}, true},
		{"bad name", CatalogTool{Name: "Get-Asset", Description: "d"}, true},
		{"no description", CatalogTool{Name: "get_asset"}, true},
		{"duplicate param", CatalogTool{Name: "x", Description: "d", Params: []CatalogParam{{Name: "id"}, {Name: "id"}}}, true},
	}
	for _, tc := range cases {
		err := ValidateCatalogTool(tc.tool)
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: expected error=%v, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestValidateCatalog_DropsDuplicates(t *testing.T) {
	entries := []catalogEntry{
		{tool: CatalogTool{Name: "a", Description: "d"}},
		{tool: CatalogTool{Name: "a", Description: "d"}},
		{tool: CatalogTool{Name: "", Description: "d"}},
	}
	valid := validateCatalog(entries, common.NewSilentLogger())
	if len(valid) != 1 {
		t.Errorf("expected 1 valid entry, got %d", len(valid))
	}
}

func TestBuildMCPTool_RequiredParams(t *testing.T) {
	tool := BuildMCPTool(CatalogTool{
		Name:        "compare_assets",
		Description: "Compare",
		Params: []CatalogParam{
			{Name: "ids", Type: "array", Required: true},
			{Name: "days", Type: "number"},
		},
	})
	if len(tool.InputSchema.Required) != 1 || tool.InputSchema.Required[0] != "ids" {
		t.Errorf("expected ids to be required, got %v", tool.InputSchema.Required)
	}
	if _, ok := tool.InputSchema.Properties["days"]; !ok {
		t.Error("expected days property")
	}
}

// --- Tools ---

func TestSearchAssets_RejectsShortQuery(t *testing.T) {
	src := newFakeMarket()
	s, _ := newTestServer(t, src)

	result := callTool(t, s, "search_assets", map[string]interface{}{"query": "b"})
	if !result.IsError {
		t.Error("expected error for one-character query")
	}
	if len(src.searched) != 0 {
		t.Errorf("expected no upstream search, got %v", src.searched)
	}
}

func TestSearchAssets_AppliesLimit(t *testing.T) {
	s, _ := newTestServer(t, newFakeMarket())

	result := callTool(t, s, "search_assets", map[string]interface{}{"query": "bit", "limit": 3})
	if result.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, result))
	}
	var got []models.SearchResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &got); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 results, got %d", len(got))
	}
}

func TestListMarkets_FormatsTable(t *testing.T) {
	s, _ := newTestServer(t, newFakeMarket())

	text := resultText(t, callTool(t, s, "list_markets", nil))
	for _, want := range []string{"Bitcoin (BTC)", "$67,000.00", "+1.25%", "$1.32T", "-0.50%"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in listing:\n%s", want, text)
		}
	}
}

func TestListMarkets_UpstreamFailure(t *testing.T) {
	src := newFakeMarket()
	src.failAll = true
	s, _ := newTestServer(t, src)

	result := callTool(t, s, "list_markets", nil)
	if !result.IsError {
		t.Error("expected error result when upstream is down")
	}
}

func TestGetAsset_IncludesFavoriteFlag(t *testing.T) {
	s, favorites := newTestServer(t, newFakeMarket())
	if err := favorites.Add(context.Background(), "bitcoin"); err != nil {
		t.Fatalf("add favorite: %v", err)
	}

	var got struct {
		ID       string `json:"id"`
		Favorite bool   `json:"favorite"`
	}
	text := resultText(t, callTool(t, s, "get_asset", map[string]interface{}{"id": "bitcoin"}))
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if got.ID != "bitcoin" || !got.Favorite {
		t.Errorf("expected favorite bitcoin, got %+v", got)
	}
}

func TestGetAsset_RequiresID(t *testing.T) {
	s, _ := newTestServer(t, newFakeMarket())

	if result := callTool(t, s, "get_asset", map[string]interface{}{}); !result.IsError {
		t.Error("expected error for missing id")
	}
}

func TestGetAssetDetail_Description(t *testing.T) {
	s, _ := newTestServer(t, newFakeMarket())

	var got map[string]interface{}
	text := resultText(t, callTool(t, s, "get_asset_detail", map[string]interface{}{"id": "bitcoin"}))
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if got["description"] != "Peer-to-peer cash." {
		t.Errorf("unexpected description %v", got["description"])
	}
	if got["homepage"] != "https://bitcoin.org" {
		t.Errorf("unexpected homepage %v", got["homepage"])
	}
	if got["high_24h"] != float64(68000) {
		t.Errorf("unexpected high_24h %v", got["high_24h"])
	}
}

func TestGlobalStats_Text(t *testing.T) {
	s, _ := newTestServer(t, newFakeMarket())

	text := resultText(t, callTool(t, s, "global_stats", nil))
	for _, want := range []string{"$2.50T", "52.40%", "12,345"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in:\n%s", want, text)
		}
	}
}

func TestPriceHistory_ValidatesDays(t *testing.T) {
	s, _ := newTestServer(t, newFakeMarket())

	if result := callTool(t, s, "price_history", map[string]interface{}{"id": "bitcoin", "days": 0}); !result.IsError {
		t.Error("expected error for days=0")
	}
	result := callTool(t, s, "price_history", map[string]interface{}{"id": "bitcoin"})
	if result.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, result))
	}
}

func TestCompareAssets_CompleteWithPlaceholder(t *testing.T) {
	src := newFakeMarket()
	src.failHistory["ethereum"] = true
	s, _ := newTestServer(t, src)

	result := callTool(t, s, "compare_assets", map[string]interface{}{
		"ids":  []string{"bitcoin", "ethereum"},
		"days": 30,
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, result))
	}

	var got struct {
		Timeframe int             `json:"timeframe"`
		Series    []seriesSummary `json:"series"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &got); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if got.Timeframe != 30 || len(got.Series) != 2 {
		t.Fatalf("expected 2 series over 30 days, got %+v", got)
	}
	if got.Series[0].ID != "bitcoin" || got.Series[0].Synthetic {
		t.Errorf("expected real bitcoin series first, got %+v", got.Series[0])
	}
	if got.Series[0].From != "1970-01-01T00:00:01Z" || got.Series[0].To != "1970-01-01T00:00:02Z" {
		t.Errorf("expected series span 00:00:01-00:00:02 UTC, got %s-%s", got.Series[0].From, got.Series[0].To)
	}
	if got.Series[0].ChangePct < 9.99 || got.Series[0].ChangePct > 10.01 {
		t.Errorf("expected +10%% change, got %f", got.Series[0].ChangePct)
	}
	if got.Series[1].ID != "ethereum" || !got.Series[1].Synthetic {
		t.Errorf("expected synthetic ethereum series, got %+v", got.Series[1])
	}
}

func TestCompareAssets_Limits(t *testing.T) {
	s, _ := newTestServer(t, newFakeMarket())

	tooMany := map[string]interface{}{"ids": []string{"a", "b", "c", "d", "e"}}
	if result := callTool(t, s, "compare_assets", tooMany); !result.IsError {
		t.Error("expected error for five assets")
	}
	badDays := map[string]interface{}{"ids": []string{"bitcoin"}, "days": 14}
	if result := callTool(t, s, "compare_assets", badDays); !result.IsError {
		t.Error("expected error for unsupported timeframe")
	}
}

func TestStringList(t *testing.T) {
	args := map[string]any{
		"list":   []any{"bitcoin", " ethereum ", "bitcoin", 5},
		"csv":    "bitcoin, solana,,",
		"absent": nil,
	}
	if got := stringList(args, "list"); strings.Join(got, ",") != "bitcoin,ethereum" {
		t.Errorf("unexpected list %v", got)
	}
	if got := stringList(args, "csv"); strings.Join(got, ",") != "bitcoin,solana" {
		t.Errorf("unexpected csv %v", got)
	}
	if got := stringList(args, "absent"); len(got) != 0 {
		t.Errorf("expected empty, got %v", got)
	}
}

func TestSimulateInvestment_IncludesDisclaimer(t *testing.T) {
	s, _ := newTestServer(t, newFakeMarket())

	result := callTool(t, s, "simulate_investment", map[string]interface{}{
		"investment": 1000,
		"asset":      "bitcoin",
		"timeframe":  "1y",
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, result))
	}
	text := resultText(t, result)
	if !strings.Contains(text, "$2,400.00") || !strings.Contains(text, simulator.Disclaimer) {
		t.Errorf("unexpected simulation text:\n%s", text)
	}
}

func TestSimulateInvestment_RejectsUnknownAsset(t *testing.T) {
	s, _ := newTestServer(t, newFakeMarket())

	result := callTool(t, s, "simulate_investment", map[string]interface{}{
		"investment": 1000,
		"asset":      "dogecoin",
		"timeframe":  "1y",
	})
	if !result.IsError {
		t.Error("expected error for unknown asset")
	}
}

func TestToggleFavorite_RoundTrip(t *testing.T) {
	s, favorites := newTestServer(t, newFakeMarket())

	callTool(t, s, "toggle_favorite", map[string]interface{}{"id": "solana"})
	if !favorites.IsFavorite("solana") {
		t.Fatal("expected solana to be a favorite")
	}

	text := resultText(t, callTool(t, s, "list_favorites", nil))
	if !strings.Contains(text, "Solana (SOL)") {
		t.Errorf("expected solana in favorites listing:\n%s", text)
	}

	callTool(t, s, "toggle_favorite", map[string]interface{}{"id": "solana"})
	if favorites.IsFavorite("solana") {
		t.Error("expected solana to be removed")
	}
	if text := resultText(t, callTool(t, s, "list_favorites", nil)); text != "No favorites yet." {
		t.Errorf("unexpected empty listing %q", text)
	}
}

func TestGetVersion(t *testing.T) {
	s, _ := newTestServer(t, newFakeMarket())

	var got map[string]versionInfo
	text := resultText(t, callTool(t, s, "get_version", nil))
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if got["coinboard"].Version != common.GetVersion() {
		t.Errorf("unexpected version %+v", got)
	}
}
