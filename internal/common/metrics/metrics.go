// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Total number of search requests by outcome",
		},
		[]string{"outcome"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "search_duration_seconds",
			Help: "Duration of search request processing in seconds",
		},
		[]string{"cached"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_cache_lookups_total",
			Help: "Total number of result cache lookups by tier and outcome",
		},
		[]string{"tier", "outcome"},
	)

	SourceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_source_requests_total",
			Help: "Total number of fan-out source calls by source and status",
		},
		[]string{"source", "status"},
	)

	SourceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "search_source_duration_seconds",
			Help: "Duration of individual source queries in seconds",
		},
		[]string{"source"},
	)

	RateGateDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_rate_gate_denied_total",
			Help: "Total number of source calls denied by the rate gate",
		},
		[]string{"source"},
	)
)
