package market

import (
	"context"
	"slices"
	"sync"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/interfaces"
	"github.com/bobmcallan/coinboard/internal/models"
	"github.com/bobmcallan/coinboard/internal/storage"
)

// MaxRecentSearches caps the recent searches list.
const MaxRecentSearches = 6

// RecentSearches is the persisted most-recent-first list of search results
// the user added to a comparison.
type RecentSearches struct {
	mu     sync.Mutex
	kv     interfaces.KeyValueStorage
	key    string
	items  []models.SearchResult
	logger *common.Logger
}

// NewRecentSearches loads the recent searches of profile from kv.
func NewRecentSearches(ctx context.Context, kv interfaces.KeyValueStorage, profile string, logger *common.Logger) (*RecentSearches, error) {
	key := storage.Key(profile, "recent_searches")
	items, err := storage.LoadList[models.SearchResult](ctx, kv, logger, key)
	if err != nil {
		return nil, err
	}
	if len(items) > MaxRecentSearches {
		items = items[:MaxRecentSearches]
	}
	return &RecentSearches{kv: kv, key: key, items: items, logger: logger}, nil
}

// Items returns the list, most recent first.
func (r *RecentSearches) Items() []models.SearchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items)
}

// Push moves item to the front, dropping any older entry with the same id
// and anything past MaxRecentSearches.
func (r *RecentSearches) Push(ctx context.Context, item models.SearchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]models.SearchResult, 0, MaxRecentSearches)
	next = append(next, item)
	for _, existing := range r.items {
		if existing.ID != item.ID && len(next) < MaxRecentSearches {
			next = append(next, existing)
		}
	}
	return r.commit(ctx, next)
}

// Clear empties the list.
func (r *RecentSearches) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commit(ctx, []models.SearchResult{})
}

func (r *RecentSearches) commit(ctx context.Context, next []models.SearchResult) error {
	if err := storage.SaveList(ctx, r.kv, r.key, next); err != nil {
		r.logger.Error().Str("key", r.key).Err(err).Msg("failed to persist recent searches")
		return err
	}
	r.items = next
	return nil
}
