// Package market is the aggregation and synchronization core: search with
// debounce and stale-result rejection, the comparison selection and its
// chart, favorites synchronization and recent searches. Components are
// safe for concurrent use and report changes through callbacks.
package market

import (
	"context"
	"time"

	"github.com/bobmcallan/coinboard/internal/models"
)

// DataSource is the read side of the proxy routes the core depends on.
// client.MarketClient implements it.
type DataSource interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	Asset(ctx context.Context, id string) (*models.Asset, error)
	PriceHistory(ctx context.Context, id string, days int) (*models.PriceHistory, error)
}

// DefaultRequestTimeout bounds every DataSource call issued by the core.
const DefaultRequestTimeout = 10 * time.Second

func requestTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultRequestTimeout
	}
	return d
}
