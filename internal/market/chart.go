package market

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/models"
	"golang.org/x/sync/errgroup"
)

// Palette assigns series colors by position in the selection.
var Palette = [MaxSelection]string{"#8b5cf6", "#06b6d4", "#10b981", "#f59e0b"}

// ChartSeries is one asset's line. A Synthetic series stands in for a
// history that could not be fetched; Reason says why.
type ChartSeries struct {
	ID        string              `json:"id"`
	Label     string              `json:"label"`
	Color     string              `json:"color"`
	Points    []models.PricePoint `json:"points"`
	Synthetic bool                `json:"synthetic"`
	Reason    string              `json:"reason,omitempty"`
}

// ChartDataset is the assembled chart for one (selection, timeframe) key.
// It holds exactly one series per selected asset, in selection order.
type ChartDataset struct {
	IDs       []string         `json:"ids"`
	Timeframe models.Timeframe `json:"timeframe"`
	Series    []ChartSeries    `json:"series"`
}

// Complete reports whether every id of the key has a series.
func (d *ChartDataset) Complete() bool {
	if len(d.Series) != len(d.IDs) {
		return false
	}
	for i, id := range d.IDs {
		if d.Series[i].ID != id {
			return false
		}
	}
	return true
}

// ChartBuilder fetches histories and assembles datasets.
type ChartBuilder struct {
	src       DataSource
	timeout   time.Duration
	logger    *common.Logger
	randFloat func() float64
	now       func() time.Time
}

// NewChartBuilder creates a builder that bounds each history fetch by timeout.
func NewChartBuilder(src DataSource, timeout time.Duration, logger *common.Logger) *ChartBuilder {
	return &ChartBuilder{
		src:       src,
		timeout:   requestTimeout(timeout),
		logger:    logger,
		randFloat: rand.Float64,
		now:       time.Now,
	}
}

// Build fetches one history per member in parallel and returns once all have
// settled. A failed fetch yields a synthetic placeholder series.
func (b *ChartBuilder) Build(ctx context.Context, members []models.Asset, tf models.Timeframe) ChartDataset {
	ds := ChartDataset{
		IDs:       make([]string, len(members)),
		Timeframe: tf,
		Series:    make([]ChartSeries, len(members)),
	}

	var g errgroup.Group
	for i, m := range members {
		ds.IDs[i] = m.ID
		g.Go(func() error {
			ds.Series[i] = b.series(ctx, i, m, tf)
			return nil
		})
	}
	g.Wait()

	return ds
}

func (b *ChartBuilder) series(ctx context.Context, pos int, m models.Asset, tf models.Timeframe) ChartSeries {
	s := ChartSeries{ID: m.ID, Label: m.Name, Color: Palette[pos%len(Palette)]}
	if s.Label == "" {
		s.Label = m.ID
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	history, err := b.src.PriceHistory(ctx, m.ID, tf.Days())
	if err != nil {
		b.logger.Warn().Str("id", m.ID).Int("days", tf.Days()).Err(err).Msg("price history unavailable, using placeholder series")
		s.Synthetic = true
		s.Reason = err.Error()
		s.Points = b.placeholder(m.CurrentPrice, tf.Days())
		return s
	}

	s.Points = append([]models.PricePoint{}, history.Prices...)
	models.SortPoints(s.Points)
	return s
}

// placeholder returns one daily sample per day ending today, each within
// ±20% of price.
func (b *ChartBuilder) placeholder(price float64, days int) []models.PricePoint {
	end := b.now().UTC().Truncate(24 * time.Hour)
	points := make([]models.PricePoint, days)
	for i := range points {
		day := end.AddDate(0, 0, -(days - 1 - i))
		points[i] = models.PricePoint{
			Timestamp: day.UnixMilli(),
			Price:     price * (0.8 + b.randFloat()*0.4),
		}
	}
	return points
}

// ChartState is a snapshot of the comparison chart. While Loading, Dataset
// is nil: a rebuild drops the previous key's dataset.
type ChartState struct {
	Dataset *ChartDataset `json:"dataset"`
	Loading bool          `json:"loading"`
}

// Chart keeps the dataset for the latest (selection, timeframe) key.
// A rebuild supersedes any rebuild still in flight; only the latest key's
// dataset is committed, and only once every series has settled.
type Chart struct {
	mu       sync.Mutex
	builder  *ChartBuilder
	gen      uint64
	version  uint64
	cancel   context.CancelFunc
	dataset  *ChartDataset
	loading  bool
	onChange func()
}

// NewChart creates an empty chart.
func NewChart(builder *ChartBuilder, onChange func()) *Chart {
	return &Chart{builder: builder, onChange: onChange}
}

// Rebuild starts assembling the dataset for members at tf. version orders
// the caller's selection changes: a rebuild whose version is not newer than
// the last accepted one is ignored. An empty selection clears the dataset.
func (c *Chart) Rebuild(version uint64, members []models.Asset, tf models.Timeframe) {
	c.mu.Lock()
	if version <= c.version {
		c.mu.Unlock()
		return
	}
	c.version = version
	c.gen++
	gen := c.gen
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if len(members) == 0 {
		c.dataset = nil
		c.loading = false
		c.mu.Unlock()
		c.changed()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.dataset = nil
	c.loading = true
	c.mu.Unlock()
	c.changed()

	members = append([]models.Asset{}, members...)
	go func() {
		ds := c.builder.Build(ctx, members, tf)

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.dataset = &ds
		c.loading = false
		c.cancel = nil
		c.mu.Unlock()
		cancel()
		c.changed()
	}()
}

// State returns a snapshot of the chart.
func (c *Chart) State() ChartState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ChartState{Dataset: c.dataset, Loading: c.loading}
}

// Close cancels any rebuild in flight.
func (c *Chart) Close() {
	c.mu.Lock()
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.onChange = nil
	c.mu.Unlock()
}

func (c *Chart) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
