// internal/search/coordinator/coordinator.go

// Package coordinator fans a search request out to the registered sources
// concurrently and collects per-source results. A branch can fail by error,
// timeout, panic or rate denial; no branch failure ever escapes the fan-out.
package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	stderrors "bizsearch/internal/common/errors"
	"bizsearch/internal/common/logger"
	"bizsearch/internal/common/metrics"
	"bizsearch/internal/models"
	"bizsearch/internal/search/ratelimit"
	"bizsearch/internal/search/source"
)

// Well-known branch error values surfaced in SourceResult.Error.
const (
	ErrValueRateLimited   = "rate_limited"
	ErrValueTimeout       = "timeout"
	ErrValueUnavailable   = "unavailable"
	ErrValueUnknownSource = "unknown_source"
)

type registration struct {
	src   source.Source
	gated bool
}

// Coordinator owns the registered sources and the rate gate.
type Coordinator struct {
	mu            sync.RWMutex
	sources       map[string]registration
	order         []string
	gate          *ratelimit.Gate
	branchTimeout time.Duration
	logger        logger.Logger
}

// New creates a coordinator. branchTimeout bounds each source query
// independently of the request deadline.
func New(gate *ratelimit.Gate, branchTimeout time.Duration, log logger.Logger) *Coordinator {
	if branchTimeout <= 0 {
		branchTimeout = 3 * time.Second
	}
	return &Coordinator{
		sources:       make(map[string]registration),
		gate:          gate,
		branchTimeout: branchTimeout,
		logger:        log.WithFields(map[string]interface{}{"component": "fanout"}),
	}
}

// Register adds a source. Gated sources pass the rate gate before every
// call; the internal index is registered ungated.
func (c *Coordinator) Register(src source.Source, gated bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.sources[src.ID()]; !exists {
		c.order = append(c.order, src.ID())
	}
	c.sources[src.ID()] = registration{src: src, gated: gated}
}

// SourceIDs returns the registered source IDs in registration order.
func (c *Coordinator) SourceIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Has reports whether a source ID is registered.
func (c *Coordinator) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sources[id]
	return ok
}

// FanOut queries the requested sources concurrently and returns one
// SourceResult per requested ID, in request order. Rate-denied sources are
// skipped without launching a branch. The call itself never fails: a fully
// failed fan-out is a slice of error-carrying results.
func (c *Coordinator) FanOut(ctx context.Context, req *models.SearchRequest, sourceIDs []string) []models.SourceResult {
	results := make([]models.SourceResult, len(sourceIDs))

	var wg sync.WaitGroup
	for i, id := range sourceIDs {
		c.mu.RLock()
		reg, ok := c.sources[id]
		c.mu.RUnlock()

		if !ok {
			results[i] = models.SourceResult{SourceID: id, Error: ErrValueUnknownSource}
			c.logger.Warn("Requested source is not registered", map[string]interface{}{"source": id})
			continue
		}

		// The gate is checked before launching the branch so a denied
		// source costs nothing.
		if reg.gated && !c.gate.TryAcquire(id) {
			results[i] = models.SourceResult{SourceID: id, Error: ErrValueRateLimited}
			metrics.RateGateDenied.WithLabelValues(id).Inc()
			metrics.SourceRequestsTotal.WithLabelValues(id, ErrValueRateLimited).Inc()
			c.logger.Debug("Source skipped by rate gate", map[string]interface{}{"source": id})
			continue
		}

		wg.Add(1)
		go func(i int, src source.Source) {
			defer wg.Done()
			results[i] = c.queryBranch(ctx, src, req)
		}(i, reg.src)
	}
	wg.Wait()

	return results
}

func (c *Coordinator) queryBranch(ctx context.Context, src source.Source, req *models.SearchRequest) (result models.SourceResult) {
	result = models.SourceResult{SourceID: src.ID()}

	// A panicking adapter degrades to an unavailable source.
	defer func() {
		if r := recover(); r != nil {
			result.Items = nil
			result.Error = ErrValueUnavailable
			metrics.SourceRequestsTotal.WithLabelValues(src.ID(), "panic").Inc()
			c.logger.Error("Source adapter panicked", map[string]interface{}{
				"source": src.ID(),
				"panic":  r,
			})
		}
	}()

	branchCtx, cancel := context.WithTimeout(ctx, c.branchTimeout)
	defer cancel()

	start := time.Now()
	items, err := src.Query(branchCtx, req)
	metrics.SourceDuration.WithLabelValues(src.ID()).Observe(time.Since(start).Seconds())

	if err != nil {
		result.Error = classify(branchCtx, err)
		metrics.SourceRequestsTotal.WithLabelValues(src.ID(), result.Error).Inc()
		c.logger.Warn("Source query failed, continuing with remaining sources", map[string]interface{}{
			"source": src.ID(),
			"error":  err.Error(),
			"kind":   result.Error,
		})
		return result
	}

	result.Items = items
	metrics.SourceRequestsTotal.WithLabelValues(src.ID(), "ok").Inc()
	return result
}

func classify(ctx context.Context, err error) string {
	var stdErr *stderrors.StandardError
	if errors.As(err, &stdErr) {
		switch stdErr.Code {
		case stderrors.ErrCodeSourceTimeout:
			return ErrValueTimeout
		case stderrors.ErrCodeSourceRateLimited:
			return ErrValueRateLimited
		}
	}
	if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		return ErrValueTimeout
	}
	return ErrValueUnavailable
}
