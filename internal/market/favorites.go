package market

import (
	"context"
	"slices"
	"sync"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/interfaces"
	"github.com/bobmcallan/coinboard/internal/storage"
)

// FavoritesStore owns the persisted favorites set for one profile. Every
// mutation is written to storage before it is published on the hub, so a
// subscriber never observes a snapshot that was not persisted.
type FavoritesStore struct {
	mu     sync.Mutex
	kv     interfaces.KeyValueStorage
	key    string
	ids    []string
	hub    *Hub
	logger *common.Logger
}

// NewFavoritesStore loads the favorites of profile from kv.
func NewFavoritesStore(ctx context.Context, kv interfaces.KeyValueStorage, profile string, hub *Hub, logger *common.Logger) (*FavoritesStore, error) {
	key := storage.Key(profile, "favorites")
	ids, err := storage.LoadList[string](ctx, kv, logger, key)
	if err != nil {
		return nil, err
	}
	ids = dedupe(ids)

	logger.Debug().Str("key", key).Int("count", len(ids)).Msg("favorites loaded")

	return &FavoritesStore{
		kv:     kv,
		key:    key,
		ids:    ids,
		hub:    hub,
		logger: logger,
	}, nil
}

// Hub returns the hub the store publishes on.
func (s *FavoritesStore) Hub() *Hub {
	return s.hub
}

// IDs returns the favorites in insertion order.
func (s *FavoritesStore) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids)
}

// IsFavorite reports whether id is a favorite.
func (s *FavoritesStore) IsFavorite(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.ids, id)
}

// Toggle flips membership of id and reports whether it is now a favorite.
func (s *FavoritesStore) Toggle(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.ids, id) {
		return false, s.commit(ctx, slices.DeleteFunc(slices.Clone(s.ids), func(v string) bool { return v == id }))
	}
	return true, s.commit(ctx, append(slices.Clone(s.ids), id))
}

// Add marks id as a favorite. Adding an existing favorite is a no-op.
func (s *FavoritesStore) Add(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.ids, id) {
		return nil
	}
	return s.commit(ctx, append(slices.Clone(s.ids), id))
}

// Remove unmarks id. Removing a non-favorite is a no-op.
func (s *FavoritesStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.ids, id) {
		return nil
	}
	return s.commit(ctx, slices.DeleteFunc(slices.Clone(s.ids), func(v string) bool { return v == id }))
}

// Clear removes every favorite.
func (s *FavoritesStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, []string{})
}

// commit persists next, then swaps it in and publishes. Must be called with mu held.
// The hub is published under mu so snapshots reach subscribers in commit order.
func (s *FavoritesStore) commit(ctx context.Context, next []string) error {
	if err := storage.SaveList(ctx, s.kv, s.key, next); err != nil {
		s.logger.Error().Str("key", s.key).Err(err).Msg("failed to persist favorites")
		return err
	}
	s.ids = next
	s.hub.Publish(next)
	return nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
