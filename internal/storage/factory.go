package storage

import (
	"fmt"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/config"
	"github.com/bobmcallan/coinboard/internal/interfaces"
	"github.com/bobmcallan/coinboard/internal/storage/badger"
	"github.com/bobmcallan/coinboard/internal/storage/memory"
	"github.com/bobmcallan/coinboard/internal/storage/sqlite"
)

// ErrNotFound is returned by KeyValueStorage.Get for a missing key.
var ErrNotFound = interfaces.ErrNotFound

// NewStorageManager creates a storage manager for the configured backend.
func NewStorageManager(logger *common.Logger, cfg *config.Config) (interfaces.StorageManager, error) {
	switch cfg.Storage.Backend {
	case "", "badger":
		return badger.NewManager(logger, &cfg.Storage.Badger)
	case "sqlite":
		return sqlite.NewManager(logger, &cfg.Storage.SQLite)
	case "memory":
		logger.Warn().Msg("memory storage backend: favorites and recent searches will not survive a restart")
		return memory.NewManager(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
