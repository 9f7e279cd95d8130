// Package memory is an in-process storage backend. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/bobmcallan/coinboard/internal/interfaces"
)

// KVStorage implements interfaces.KeyValueStorage on a map.
type KVStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewKVStorage creates an empty store.
func NewKVStorage() *KVStorage {
	return &KVStorage{items: make(map[string]string)}
}

func (s *KVStorage) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", interfaces.ErrNotFound, key)
	}
	return v, nil
}

func (s *KVStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

func (s *KVStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *KVStorage) GetAll(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.items), nil
}

// Manager implements interfaces.StorageManager for the memory backend.
type Manager struct {
	kv *KVStorage
}

// NewManager creates a memory storage manager.
func NewManager() *Manager {
	return &Manager{kv: NewKVStorage()}
}

func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage { return m.kv }
func (m *Manager) Backend() string                              { return "memory" }
func (m *Manager) Close() error                                 { return nil }
