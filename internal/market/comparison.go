package market

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/models"
)

// PopularAssets are offered for one-click adding while the comparison query is empty.
var PopularAssets = []models.SearchResult{
	popular("bitcoin", "Bitcoin", "BTC", "https://assets.coingecko.com/coins/images/1/thumb/bitcoin.png", 1),
	popular("ethereum", "Ethereum", "ETH", "https://assets.coingecko.com/coins/images/279/thumb/ethereum.png", 2),
	popular("tether", "Tether", "USDT", "https://assets.coingecko.com/coins/images/325/thumb/Tether.png", 3),
	popular("binancecoin", "BNB", "BNB", "https://assets.coingecko.com/coins/images/825/thumb/bnb-icon2_2x.png", 4),
	popular("solana", "Solana", "SOL", "https://assets.coingecko.com/coins/images/4128/thumb/solana.png", 5),
	popular("ripple", "XRP", "XRP", "https://assets.coingecko.com/coins/images/44/thumb/xrp-symbol-white-128.png", 6),
	popular("cardano", "Cardano", "ADA", "https://assets.coingecko.com/coins/images/975/thumb/cardano.png", 7),
	popular("dogecoin", "Dogecoin", "DOGE", "https://assets.coingecko.com/coins/images/5/thumb/dogecoin.png", 8),
}

func popular(id, name, symbol, thumb string, rank int) models.SearchResult {
	return models.SearchResult{ID: id, Name: name, Symbol: symbol, Thumb: thumb, MarketCapRank: &rank}
}

// ComparisonState is a snapshot of the comparison view.
type ComparisonState struct {
	Search    SearchState      `json:"search"`
	Selected  []models.Asset   `json:"selected"`
	Pending   []string         `json:"pending"`
	Timeframe models.Timeframe `json:"timeframe"`
	Chart     ChartState       `json:"chart"`
	Full      bool             `json:"full"`
}

// Comparison owns the selection set, its search flow and its chart.
type Comparison struct {
	mu        sync.Mutex
	src       DataSource
	timeout   time.Duration
	logger    *common.Logger
	selection SelectionSet
	pending   map[string]bool
	timeframe models.Timeframe
	version   uint64 // bumped on every selection or timeframe change

	search *Search
	chart  *Chart
	recent *RecentSearches

	onChange func()
}

// ComparisonConfig configures a Comparison.
type ComparisonConfig struct {
	MinQueryLength int
	ResultLimit    int
	RequestTimeout time.Duration
}

// NewComparison creates an empty comparison. Added assets are pushed to recent.
func NewComparison(src DataSource, recent *RecentSearches, cfg ComparisonConfig, logger *common.Logger, onChange func()) *Comparison {
	c := &Comparison{
		src:       src,
		timeout:   requestTimeout(cfg.RequestTimeout),
		logger:    logger,
		pending:   make(map[string]bool),
		timeframe: models.DefaultTimeframe,
		recent:    recent,
		onChange:  onChange,
	}
	limit := cfg.ResultLimit
	if limit <= 0 {
		limit = CompareResultLimit
	}
	c.search = NewSearch(src, SearchConfig{
		MinLength: cfg.MinQueryLength,
		Limit:     limit,
		Timeout:   cfg.RequestTimeout,
	}, logger, c.changed)
	c.chart = NewChart(NewChartBuilder(src, cfg.RequestTimeout, logger), c.changed)
	return c
}

// Search returns the comparison search flow.
func (c *Comparison) Search() *Search {
	return c.search
}

// Add fetches the asset for candidate and appends it to the selection. It is
// a no-op, reporting false, when the selection is full or already holds the
// asset, both at call time and when the fetch completes. A failed fetch adds
// nothing and returns the error.
func (c *Comparison) Add(ctx context.Context, candidate models.SearchResult) (bool, error) {
	id := candidate.ID
	c.mu.Lock()
	if id == "" || c.selection.Full() || c.selection.Contains(id) || c.pending[id] {
		c.mu.Unlock()
		return false, nil
	}
	c.pending[id] = true
	c.mu.Unlock()
	c.changed()

	fctx, cancel := context.WithTimeout(ctx, c.timeout)
	asset, err := c.src.Asset(fctx, id)
	cancel()

	c.mu.Lock()
	delete(c.pending, id)
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn().Str("id", id).Err(err).Msg("failed to fetch asset for comparison")
		c.changed()
		return false, fmt.Errorf("fetch %s: %w", id, err)
	}
	if asset.ID == "" {
		asset.ID = id
	}
	if !c.selection.Add(*asset) {
		c.mu.Unlock()
		c.changed()
		return false, nil
	}
	c.version++
	version := c.version
	members := c.selection.Items()
	tf := c.timeframe
	c.mu.Unlock()

	if c.recent != nil {
		if err := c.recent.Push(ctx, candidate); err != nil {
			c.logger.Warn().Str("id", id).Err(err).Msg("failed to record recent search")
		}
	}
	c.search.Clear()
	c.chart.Rebuild(version, members, tf)
	return true, nil
}

// Remove drops id from the selection. Removing an absent id is a no-op.
func (c *Comparison) Remove(id string) bool {
	c.mu.Lock()
	removed := c.selection.Remove(id)
	if removed {
		c.version++
	}
	version := c.version
	members := c.selection.Items()
	tf := c.timeframe
	c.mu.Unlock()

	if removed {
		c.chart.Rebuild(version, members, tf)
	}
	return removed
}

// SetTimeframe changes the chart window and rebuilds the chart.
func (c *Comparison) SetTimeframe(tf models.Timeframe) error {
	if !tf.Valid() {
		return fmt.Errorf("unsupported timeframe %d days", tf)
	}
	c.mu.Lock()
	if c.timeframe == tf {
		c.mu.Unlock()
		return nil
	}
	c.timeframe = tf
	c.version++
	version := c.version
	members := c.selection.Items()
	c.mu.Unlock()

	c.chart.Rebuild(version, members, tf)
	return nil
}

// IDs returns the selected ids in order.
func (c *Comparison) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.IDs()
}

// State returns a snapshot of the comparison.
func (c *Comparison) State() ComparisonState {
	c.mu.Lock()
	selected := c.selection.Items()
	full := c.selection.Full()
	tf := c.timeframe
	pending := make([]string, 0, len(c.pending))
	for id := range c.pending {
		pending = append(pending, id)
	}
	c.mu.Unlock()
	slices.Sort(pending)

	return ComparisonState{
		Search:    c.search.State(),
		Selected:  selected,
		Pending:   pending,
		Timeframe: tf,
		Chart:     c.chart.State(),
		Full:      full,
	}
}

// Close stops the search flow and any chart rebuild.
func (c *Comparison) Close() {
	c.mu.Lock()
	c.onChange = nil
	c.mu.Unlock()
	c.search.Close()
	c.chart.Close()
}

func (c *Comparison) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
