// internal/search/cache/cache.go

// Package cache implements the two-tier search result cache: a small
// in-process shadow in front of Redis. Cache failures are never surfaced to
// the search path; both tiers swallow errors and report a miss.
package cache

import (
	"context"
	"time"

	"bizsearch/internal/models"
)

// Store is the tier-agnostic cache contract. Get returns (nil, false) on
// miss, expiry, or any backend failure. Put is best-effort.
type Store interface {
	Get(ctx context.Context, key string) (*models.SearchResponse, bool)
	Put(ctx context.Context, key string, resp *models.SearchResponse, ttl time.Duration)
}

// envelope is the stored form of a cached response. ExpiresAt is persisted
// alongside the payload so staleness can be re-checked on read even if the
// backend's own expiry lags.
type envelope struct {
	Payload   models.SearchResponse `json:"payload"`
	CreatedAt time.Time             `json:"created_at"`
	ExpiresAt time.Time             `json:"expires_at"`
}

func (e *envelope) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
