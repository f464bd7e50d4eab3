// internal/search/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"bizsearch/internal/common/errors"
	"bizsearch/internal/common/logger"
	"bizsearch/internal/common/metrics"
	"bizsearch/internal/models"
)

// RedisStore is the authoritative persistent tier. All failures are logged
// and swallowed: a broken Redis degrades the service to uncached operation,
// it never fails a search.
type RedisStore struct {
	client *redis.Client
	logger logger.Logger
	now    func() time.Time
}

// NewRedisStore wraps an existing Redis client as a cache tier.
func NewRedisStore(client *redis.Client, log logger.Logger, now func() time.Time) *RedisStore {
	if now == nil {
		now = time.Now
	}
	return &RedisStore{client: client, logger: log, now: now}
}

func (r *RedisStore) Get(ctx context.Context, key string) (*models.SearchResponse, bool) {
	raw, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		metrics.CacheLookupsTotal.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("redis", "error").Inc()
		stdErr := errors.NewCacheReadFailedError(err)
		r.logger.Warn("Cache read failed, treating as miss", map[string]interface{}{
			"cacheKey": key,
			"error":    stdErr.Error(),
		})
		return nil, false
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("redis", "error").Inc()
		r.logger.Warn("Cache entry is not valid JSON, treating as miss", map[string]interface{}{
			"cacheKey": key,
			"error":    err.Error(),
		})
		return nil, false
	}

	// Backend TTL handles normal expiry; this re-check closes the window
	// where an entry outlives its recorded lifetime.
	if env.expired(r.now()) {
		metrics.CacheLookupsTotal.WithLabelValues("redis", "expired").Inc()
		return nil, false
	}

	metrics.CacheLookupsTotal.WithLabelValues("redis", "hit").Inc()
	return &env.Payload, true
}

func (r *RedisStore) Put(ctx context.Context, key string, resp *models.SearchResponse, ttl time.Duration) {
	if resp == nil || ttl <= 0 {
		return
	}

	now := r.now()
	env := envelope{
		Payload:   *resp,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	data, err := json.Marshal(&env)
	if err != nil {
		r.logger.Warn("Cache envelope marshal failed", map[string]interface{}{
			"cacheKey": key,
			"error":    err.Error(),
		})
		return
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		stdErr := errors.NewCacheWriteFailedError(err)
		r.logger.Warn("Cache write failed, continuing without cache", map[string]interface{}{
			"cacheKey": key,
			"error":    stdErr.Error(),
		})
	}
}
