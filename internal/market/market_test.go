package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/models"
	"github.com/bobmcallan/coinboard/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream unavailable")

// fakeSource is a scriptable DataSource. Unset hooks fall back to defaults
// that derive records from the id.
type fakeSource struct {
	mu          sync.Mutex
	searchCalls []string
	assetCalls  []string
	historyHits []string

	search  func(ctx context.Context, q string) ([]models.SearchResult, error)
	asset   func(ctx context.Context, id string) (*models.Asset, error)
	history func(ctx context.Context, id string, days int) (*models.PriceHistory, error)
}

func (f *fakeSource) Search(ctx context.Context, q string) ([]models.SearchResult, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, q)
	fn := f.search
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, q)
	}
	return results(q, 10), nil
}

func (f *fakeSource) Asset(ctx context.Context, id string) (*models.Asset, error) {
	f.mu.Lock()
	f.assetCalls = append(f.assetCalls, id)
	fn := f.asset
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, id)
	}
	return &models.Asset{ID: id, Name: "Asset " + id, Symbol: id, CurrentPrice: 100}, nil
}

func (f *fakeSource) PriceHistory(ctx context.Context, id string, days int) (*models.PriceHistory, error) {
	f.mu.Lock()
	f.historyHits = append(f.historyHits, fmt.Sprintf("%s/%d", id, days))
	fn := f.history
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, id, days)
	}
	return &models.PriceHistory{Prices: []models.PricePoint{
		{Timestamp: 3000, Price: 3},
		{Timestamp: 1000, Price: 1},
		{Timestamp: 2000, Price: 2},
	}}, nil
}

func (f *fakeSource) searches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.searchCalls...)
}

func (f *fakeSource) assets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.assetCalls...)
}

// results builds n search results whose ids are prefixed by q.
func results(q string, n int) []models.SearchResult {
	out := make([]models.SearchResult, n)
	for i := range out {
		id := fmt.Sprintf("%s-%d", q, i)
		out[i] = models.SearchResult{ID: id, Name: id, Symbol: q}
	}
	return out
}

// failingKV is a KeyValueStorage whose writes always fail.
type failingKV struct {
	*memory.KVStorage
}

func (failingKV) Set(context.Context, string, string) error {
	return errors.New("disk full")
}

func newFavorites(t *testing.T) (*FavoritesStore, *memory.KVStorage) {
	t.Helper()
	kv := memory.NewKVStorage()
	store, err := NewFavoritesStore(context.Background(), kv, "test", NewHub(), common.NewSilentLogger())
	require.NoError(t, err)
	return store, kv
}

func newRecent(t *testing.T) *RecentSearches {
	t.Helper()
	r, err := NewRecentSearches(context.Background(), memory.NewKVStorage(), "test", common.NewSilentLogger())
	require.NoError(t, err)
	return r
}
