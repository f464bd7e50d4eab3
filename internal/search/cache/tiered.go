// internal/search/cache/tiered.go
package cache

import (
	"context"
	"time"

	"bizsearch/internal/models"
)

// TieredStore composes the memory shadow and the persistent tier. The shadow
// only ever holds entries the persistent tier accepted, so a hit in either
// tier satisfies the same staleness bound.
type TieredStore struct {
	shadow     *MemoryStore
	persistent Store
}

// NewTieredStore builds the two-tier store. persistent may be nil, leaving a
// memory-only cache for local runs without Redis.
func NewTieredStore(shadow *MemoryStore, persistent Store) *TieredStore {
	return &TieredStore{shadow: shadow, persistent: persistent}
}

func (t *TieredStore) Get(ctx context.Context, key string) (*models.SearchResponse, bool) {
	if resp, ok := t.shadow.Get(ctx, key); ok {
		return resp, true
	}
	if t.persistent == nil {
		return nil, false
	}
	resp, ok := t.persistent.Get(ctx, key)
	if !ok {
		return nil, false
	}
	return resp, true
}

func (t *TieredStore) Put(ctx context.Context, key string, resp *models.SearchResponse, ttl time.Duration) {
	t.shadow.Put(ctx, key, resp, ttl)
	if t.persistent != nil {
		t.persistent.Put(ctx, key, resp, ttl)
	}
}
