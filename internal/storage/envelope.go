package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/interfaces"
)

// EnvelopeVersion is the schema version written for persisted lists.
const EnvelopeVersion = 1

// Envelope wraps every persisted list so its schema can evolve.
type Envelope[T any] struct {
	Version int `json:"version"`
	Data    []T `json:"data"`
}

// Key namespaces a collection name under a profile, e.g. "local:favorites".
func Key(profile, name string) string {
	return profile + ":" + name
}

// LoadList reads the list stored under key. A missing key yields an empty list.
// Values written before the envelope existed (bare JSON arrays) are accepted and
// rewritten in the current format. Unreadable values and unknown versions are
// logged and discarded.
func LoadList[T any](ctx context.Context, kv interfaces.KeyValueStorage, logger *common.Logger, key string) ([]T, error) {
	raw, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	var legacy []T
	if err := json.Unmarshal([]byte(raw), &legacy); err == nil {
		logger.Info().Str("key", key).Int("items", len(legacy)).Msg("migrating legacy list to versioned envelope")
		if legacy == nil {
			legacy = []T{}
		}
		if err := SaveList(ctx, kv, key, legacy); err != nil {
			logger.Warn().Str("key", key).Err(err).Msg("failed to rewrite migrated list")
		}
		return legacy, nil
	}

	var env Envelope[T]
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		logger.Warn().Str("key", key).Err(err).Msg("discarding unreadable persisted list")
		return []T{}, nil
	}
	if env.Version != EnvelopeVersion {
		logger.Warn().Str("key", key).Int("version", env.Version).Msg("discarding persisted list with unknown version")
		return []T{}, nil
	}
	if env.Data == nil {
		env.Data = []T{}
	}
	return env.Data, nil
}

// SaveList writes items under key in the current envelope format.
func SaveList[T any](ctx context.Context, kv interfaces.KeyValueStorage, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(Envelope[T]{Version: EnvelopeVersion, Data: items})
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, string(b)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
