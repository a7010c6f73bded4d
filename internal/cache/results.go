package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/watcherai/glassbox-gateway/internal/models"
)

const keyPrefix = "analysis_"

// ResultCache maps analysis ids to canonical results for one session. Values are
// stored JSON-encoded, so callers always receive their own copy.
type ResultCache struct {
	store Provider
}

// NewResultCache wraps a Provider. A nil provider yields a fresh MemoryProvider.
func NewResultCache(store Provider) *ResultCache {
	if store == nil {
		store = NewMemoryProvider()
	}
	return &ResultCache{store: store}
}

// Put stores result under id, replacing any earlier entry whole.
func (c *ResultCache) Put(ctx context.Context, id string, result models.CanonicalResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", id, err)
	}
	if err := c.store.Set(ctx, key(id), payload); err != nil {
		return fmt.Errorf("store result %s: %w", id, err)
	}
	return nil
}

// Get returns the result stored under id. found is false when no entry exists.
func (c *ResultCache) Get(ctx context.Context, id string) (result models.CanonicalResult, found bool, err error) {
	payload, err := c.store.Get(ctx, key(id))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return models.CanonicalResult{}, false, nil
		}
		return models.CanonicalResult{}, false, fmt.Errorf("load result %s: %w", id, err)
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return models.CanonicalResult{}, false, fmt.Errorf("decode result %s: %w", id, err)
	}
	return result, true, nil
}

// Close releases the underlying store.
func (c *ResultCache) Close() error {
	return c.store.Close()
}

func key(id string) string {
	return keyPrefix + id
}
