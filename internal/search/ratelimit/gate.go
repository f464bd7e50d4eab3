// internal/search/ratelimit/gate.go

// Package ratelimit implements the fixed-window per-source rate gate used to
// stay inside third-party API quotas.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultMinInterval is applied to sources with no configured interval.
// Unconfigured sources are assumed heavily quota-limited.
const DefaultMinInterval = time.Second

// Gate tracks the last permitted call per source. It is an injectable
// instance so tests can construct isolated gates with a fake clock.
type Gate struct {
	mu           sync.Mutex
	lastCallAt   map[string]time.Time
	minIntervals map[string]time.Duration
	defaultMin   time.Duration
	pollInterval time.Duration
	now          func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithPollInterval sets the WaitForAcquire polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(g *Gate) { g.pollInterval = d }
}

// WithDefaultMinInterval overrides the fallback interval for sources not in
// the per-source map.
func WithDefaultMinInterval(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.defaultMin = d
		}
	}
}

// NewGate creates a gate with per-source minimum intervals. Sources absent
// from the map fall back to DefaultMinInterval.
func NewGate(minIntervals map[string]time.Duration, opts ...Option) *Gate {
	g := &Gate{
		lastCallAt:   make(map[string]time.Time),
		minIntervals: make(map[string]time.Duration, len(minIntervals)),
		defaultMin:   DefaultMinInterval,
		pollInterval: 50 * time.Millisecond,
		now:          time.Now,
	}
	for id, d := range minIntervals {
		g.minIntervals[id] = d
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MinInterval returns the effective minimum call interval for a source.
func (g *Gate) MinInterval(sourceID string) time.Duration {
	if d, ok := g.minIntervals[sourceID]; ok && d > 0 {
		return d
	}
	return g.defaultMin
}

// TryAcquire reports whether a call to the source is permitted now. On
// success the call timestamp is recorded; on denial no state is mutated.
// The check-and-set runs under one lock so two near-simultaneous callers
// cannot both observe "allowed".
func (g *Gate) TryAcquire(sourceID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if last, ok := g.lastCallAt[sourceID]; ok {
		if now.Sub(last) < g.MinInterval(sourceID) {
			return false
		}
	}
	g.lastCallAt[sourceID] = now
	return true
}

// WaitForAcquire blocks until the source can be acquired or the context is
// done. Only non-interactive batch callers should use this; the interactive
// search path prefers TryAcquire and skips denied sources.
func (g *Gate) WaitForAcquire(ctx context.Context, sourceID string) error {
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		if g.TryAcquire(sourceID) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
