// internal/search/service.go

// Package search wires the pipeline: parse, normalize, cache, fan out,
// merge, record. Only request validation can fail a search; every
// downstream failure degrades to a smaller result set.
package search

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	stderrors "bizsearch/internal/common/errors"
	"bizsearch/internal/common/logger"
	"bizsearch/internal/common/metrics"
	"bizsearch/internal/common/observability"
	"bizsearch/internal/models"
	"bizsearch/internal/search/cache"
	"bizsearch/internal/search/coordinator"
	"bizsearch/internal/search/merge"
	"bizsearch/internal/search/normalize"
	"bizsearch/internal/search/parser"
)

// HistoryRecorder is the slice of the history package the service needs.
type HistoryRecorder interface {
	AppendAsync(rec *models.HistoryRecord)
	Suggest(ctx context.Context, prefix string, limit int) ([]string, error)
}

// Options carries the pipeline tunables.
type Options struct {
	MaxResults      int
	CacheTTL        time.Duration
	SuggestionLimit int
	Observability   *observability.Observability
}

// Service is the search pipeline entry point.
type Service struct {
	parser      parser.Service
	store       cache.Store
	coordinator *coordinator.Coordinator
	history     HistoryRecorder
	opts        Options
	group       singleflight.Group
	logger      logger.Logger
	now         func() time.Time
}

// NewService assembles the pipeline. history may be nil when Postgres is
// not configured; suggestions are then unavailable.
func NewService(p parser.Service, store cache.Store, coord *coordinator.Coordinator,
	hist HistoryRecorder, opts Options, log logger.Logger) *Service {
	if opts.MaxResults <= 0 {
		opts.MaxResults = merge.DefaultMaxResults
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if opts.SuggestionLimit <= 0 {
		opts.SuggestionLimit = 10
	}
	return &Service{
		parser:      p,
		store:       store,
		coordinator: coord,
		history:     hist,
		opts:        opts,
		logger:      log.WithFields(map[string]interface{}{"component": "search"}),
		now:         time.Now,
	}
}

// Search runs one query against the requested sources, or all registered
// sources when none are named. The returned error is non-nil only for
// invalid requests.
func (s *Service) Search(ctx context.Context, rawQuery string, sources []string) (*models.SearchResponse, error) {
	start := s.now()

	query := strings.TrimSpace(rawQuery)
	if query == "" {
		metrics.SearchRequestsTotal.WithLabelValues("invalid").Inc()
		s.record(ctx, start, "invalid")
		return nil, stderrors.NewMissingQueryError()
	}
	if len(sources) == 0 {
		sources = s.coordinator.SourceIDs()
	}

	filters := s.parser.Parse(ctx, query)
	key, _ := normalize.Normalize(query, cacheParams(filters, sources))

	if resp, ok := s.store.Get(ctx, key); ok {
		resp.Meta.Cached = true
		resp.Meta.ExecutionTimeMs = time.Since(start).Milliseconds()
		metrics.SearchRequestsTotal.WithLabelValues("cache_hit").Inc()
		metrics.SearchDuration.WithLabelValues("true").Observe(time.Since(start).Seconds())
		s.record(ctx, start, "cache_hit")
		return resp, nil
	}

	// Concurrent identical queries share one fan-out.
	shared, _, _ := s.group.Do(key, func() (interface{}, error) {
		return s.executeSearch(ctx, key, query, filters, sources), nil
	})

	resp := *(shared.(*models.SearchResponse))
	resp.Meta.ExecutionTimeMs = time.Since(start).Milliseconds()
	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	metrics.SearchDuration.WithLabelValues("false").Observe(time.Since(start).Seconds())
	s.record(ctx, start, "ok")
	return &resp, nil
}

func (s *Service) record(ctx context.Context, start time.Time, status string) {
	if s.opts.Observability == nil {
		return
	}
	s.opts.Observability.RecordSearchProcessed(ctx, status)
	s.opts.Observability.RecordSearchDuration(ctx, time.Since(start), status)
}

func (s *Service) executeSearch(ctx context.Context, key, query string,
	filters models.Filters, sources []string) *models.SearchResponse {

	req := &models.SearchRequest{Query: query, Sources: sources, Filters: filters}

	fanOutStart := s.now()
	sourceResults := s.coordinator.FanOut(ctx, req, sources)
	merged := merge.Merge(sourceResults, s.opts.MaxResults)

	sourceErrors := map[string]string{}
	for _, sr := range sourceResults {
		if sr.Error != "" {
			sourceErrors[sr.SourceID] = sr.Error
		}
	}
	if len(sourceErrors) == 0 {
		sourceErrors = nil
	}

	resp := &models.SearchResponse{
		Success: true,
		Results: merged,
		Meta: models.SearchMeta{
			Total:        len(merged),
			Sources:      sources,
			SourceErrors: sourceErrors,
			Cached:       false,
		},
	}

	// A response assembled from failing branches is still served, but not
	// cached: the next call should retry the sources.
	if len(sourceErrors) == 0 {
		s.store.Put(ctx, key, resp, s.opts.CacheTTL)
	}

	if s.history != nil {
		s.history.AppendAsync(&models.HistoryRecord{
			Query:           query,
			Sources:         sources,
			ResultCount:     len(merged),
			ExecutionTimeMs: s.now().Sub(fanOutStart).Milliseconds(),
		})
	}

	s.logger.Info("Search completed", map[string]interface{}{
		"query":       query,
		"sources":     sources,
		"resultCount": len(merged),
		"failed":      len(sourceErrors),
	})

	return resp
}

// Suggest returns recent queries matching the prefix.
func (s *Service) Suggest(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, stderrors.NewValidationError("suggestion prefix is required")
	}
	if s.history == nil {
		return []string{}, nil
	}

	suggestions, err := s.history.Suggest(ctx, prefix, s.opts.SuggestionLimit)
	if err != nil {
		s.logger.Warn("Suggestion lookup failed", map[string]interface{}{
			"prefix": prefix,
			"error":  err.Error(),
		})
		return []string{}, nil
	}
	return suggestions, nil
}

// cacheParams folds the parsed filters and the source set into the cache
// key so a narrower query never serves a broader one.
func cacheParams(filters models.Filters, sources []string) map[string]string {
	params := map[string]string{}
	if filters.Industry != "" {
		params["industry"] = filters.Industry
	}
	if filters.Location != "" {
		params["location"] = filters.Location
	}
	if filters.EmployeesMin > 0 {
		params["employeesMin"] = strconv.Itoa(filters.EmployeesMin)
	}
	if filters.EmployeesMax > 0 {
		params["employeesMax"] = strconv.Itoa(filters.EmployeesMax)
	}
	if len(filters.Keywords) > 0 {
		params["keywords"] = strings.Join(filters.Keywords, ",")
	}
	if len(sources) > 0 {
		sorted := make([]string, len(sources))
		copy(sorted, sources)
		sort.Strings(sorted)
		params["sources"] = strings.Join(sorted, ",")
	}
	return params
}
