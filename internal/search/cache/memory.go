// internal/search/cache/memory.go
package cache

import (
	"context"
	"sync"
	"time"

	"bizsearch/internal/common/metrics"
	"bizsearch/internal/models"
)

// MemoryStore is the in-process shadow tier. It holds a bounded number of
// envelopes and evicts the oldest entry once full. Reads re-check expiry
// against the clock, so a stale entry is never returned.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]*envelope
	maxItems int
	now      func() time.Time
}

// NewMemoryStore creates a shadow tier bounded to maxItems entries.
func NewMemoryStore(maxItems int, now func() time.Time) *MemoryStore {
	if maxItems <= 0 {
		maxItems = 256
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries:  make(map[string]*envelope),
		maxItems: maxItems,
		now:      now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*models.SearchResponse, bool) {
	m.mu.RLock()
	env, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		metrics.CacheLookupsTotal.WithLabelValues("memory", "miss").Inc()
		return nil, false
	}
	if env.expired(m.now()) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		metrics.CacheLookupsTotal.WithLabelValues("memory", "expired").Inc()
		return nil, false
	}

	metrics.CacheLookupsTotal.WithLabelValues("memory", "hit").Inc()
	payload := env.Payload
	return &payload, true
}

func (m *MemoryStore) Put(_ context.Context, key string, resp *models.SearchResponse, ttl time.Duration) {
	if resp == nil || ttl <= 0 {
		return
	}

	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxItems {
		m.evictOldestLocked()
	}
	m.entries[key] = &envelope{
		Payload:   *resp,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (m *MemoryStore) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for k, env := range m.entries {
		if oldestKey == "" || env.CreatedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = env.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}

// Len reports the current number of entries, for tests.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
