// internal/search/coordinator/coordinator_test.go
package coordinator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "bizsearch/internal/common/errors"
	"bizsearch/internal/common/logger"
	"bizsearch/internal/models"
	"bizsearch/internal/search/ratelimit"
)

// fakeSource scripts one fan-out branch.
type fakeSource struct {
	id    string
	items []models.ResultItem
	err   error
	delay time.Duration
	panic bool
	calls atomic.Int64
}

func (f *fakeSource) ID() string { return f.id }

func (f *fakeSource) Query(ctx context.Context, _ *models.SearchRequest) ([]models.ResultItem, error) {
	f.calls.Add(1)
	if f.panic {
		panic("adapter bug")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.items, f.err
}

func newCoordinator(t *testing.T, branchTimeout time.Duration) *Coordinator {
	gate := ratelimit.NewGate(map[string]time.Duration{"externalA": time.Second})
	return New(gate, branchTimeout, logger.NewTestLogger(t))
}

func TestFanOut_CollectsAllBranches(t *testing.T) {
	c := newCoordinator(t, time.Second)
	c.Register(&fakeSource{id: "internal", items: []models.ResultItem{
		{Name: "Acme", Confidence: 1.0, Source: "internal"},
	}}, false)
	c.Register(&fakeSource{id: "externalA", items: []models.ResultItem{
		{Name: "Beta", Confidence: 0.8, Source: "externalA"},
	}}, true)

	results := c.FanOut(context.Background(), &models.SearchRequest{Query: "q"}, []string{"internal", "externalA"})
	require.Len(t, results, 2)
	assert.Equal(t, "internal", results[0].SourceID)
	assert.Empty(t, results[0].Error)
	assert.Len(t, results[0].Items, 1)
	assert.Equal(t, "externalA", results[1].SourceID)
	assert.Len(t, results[1].Items, 1)
}

func TestFanOut_FailingSourceIsIsolated(t *testing.T) {
	c := newCoordinator(t, time.Second)
	c.Register(&fakeSource{id: "internal", items: []models.ResultItem{
		{Name: "Acme", Confidence: 1.0, Source: "internal"},
	}}, false)
	c.Register(&fakeSource{id: "externalB", err: errors.New("connection refused")}, true)

	results := c.FanOut(context.Background(), &models.SearchRequest{Query: "q"}, []string{"internal", "externalB"})
	require.Len(t, results, 2)
	assert.Empty(t, results[0].Error)
	assert.Len(t, results[0].Items, 1)
	assert.Equal(t, ErrValueUnavailable, results[1].Error)
	assert.Empty(t, results[1].Items)
}

func TestFanOut_PanickingSourceIsIsolated(t *testing.T) {
	c := newCoordinator(t, time.Second)
	c.Register(&fakeSource{id: "internal", items: []models.ResultItem{
		{Name: "Acme", Confidence: 1.0, Source: "internal"},
	}}, false)
	c.Register(&fakeSource{id: "externalB", panic: true}, true)

	results := c.FanOut(context.Background(), &models.SearchRequest{Query: "q"}, []string{"internal", "externalB"})
	require.Len(t, results, 2)
	assert.Len(t, results[0].Items, 1)
	assert.Equal(t, ErrValueUnavailable, results[1].Error)
}

func TestFanOut_SlowSourceTimesOut(t *testing.T) {
	c := newCoordinator(t, 30*time.Millisecond)
	c.Register(&fakeSource{id: "internal", items: []models.ResultItem{
		{Name: "Acme", Confidence: 1.0, Source: "internal"},
	}}, false)
	c.Register(&fakeSource{id: "externalB", delay: 500 * time.Millisecond}, true)

	start := time.Now()
	results := c.FanOut(context.Background(), &models.SearchRequest{Query: "q"}, []string{"internal", "externalB"})
	elapsed := time.Since(start)

	require.Len(t, results, 2)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, ErrValueTimeout, results[1].Error)
	assert.Less(t, elapsed, 300*time.Millisecond, "timed-out branch must not stall the fan-out")
}

func TestFanOut_RateLimitedSourceSkippedWithoutCall(t *testing.T) {
	c := newCoordinator(t, time.Second)
	external := &fakeSource{id: "externalA", items: []models.ResultItem{{Name: "Beta"}}}
	c.Register(external, true)

	req := &models.SearchRequest{Query: "q"}
	first := c.FanOut(context.Background(), req, []string{"externalA"})
	assert.Empty(t, first[0].Error)

	second := c.FanOut(context.Background(), req, []string{"externalA"})
	assert.Equal(t, ErrValueRateLimited, second[0].Error)
	assert.Equal(t, int64(1), external.calls.Load(), "denied source must not be invoked")
}

func TestFanOut_UngatedSourceIgnoresGate(t *testing.T) {
	c := newCoordinator(t, time.Second)
	internal := &fakeSource{id: "internal", items: []models.ResultItem{{Name: "Acme"}}}
	c.Register(internal, false)

	req := &models.SearchRequest{Query: "q"}
	for i := 0; i < 3; i++ {
		results := c.FanOut(context.Background(), req, []string{"internal"})
		assert.Empty(t, results[0].Error)
	}
	assert.Equal(t, int64(3), internal.calls.Load())
}

func TestFanOut_UnknownSourceReported(t *testing.T) {
	c := newCoordinator(t, time.Second)
	results := c.FanOut(context.Background(), &models.SearchRequest{Query: "q"}, []string{"nope"})
	require.Len(t, results, 1)
	assert.Equal(t, ErrValueUnknownSource, results[0].Error)
}

func TestFanOut_TotalFailureStillReturnsResults(t *testing.T) {
	c := newCoordinator(t, time.Second)
	c.Register(&fakeSource{id: "externalB", err: errors.New("down")}, true)
	c.Register(&fakeSource{id: "externalC", err: stderrors.NewSourceTimeoutError("externalC")}, true)

	results := c.FanOut(context.Background(), &models.SearchRequest{Query: "q"}, []string{"externalB", "externalC"})
	require.Len(t, results, 2)
	assert.Equal(t, ErrValueUnavailable, results[0].Error)
	assert.Equal(t, ErrValueTimeout, results[1].Error)
}

func TestCoordinator_SourceIDsInRegistrationOrder(t *testing.T) {
	c := newCoordinator(t, time.Second)
	c.Register(&fakeSource{id: "internal"}, false)
	c.Register(&fakeSource{id: "externalA"}, true)
	c.Register(&fakeSource{id: "externalB"}, true)

	assert.Equal(t, []string{"internal", "externalA", "externalB"}, c.SourceIDs())
	assert.True(t, c.Has("externalA"))
	assert.False(t, c.Has("externalZ"))
}
