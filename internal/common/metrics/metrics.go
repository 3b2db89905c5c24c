// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_searches_total",
			Help: "Total number of venue discovery runs by outcome",
		},
		[]string{"outcome"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "discovery_search_duration_seconds",
			Help: "Duration of a full FindVenues run in seconds",
		},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_upstream_requests_total",
			Help: "Outbound upstream HTTP attempts by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_upstream_retries_total",
			Help: "Retried upstream attempts by endpoint",
		},
		[]string{"endpoint"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_cache_lookups_total",
			Help: "Spatial cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)

	DegradedSearches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_degraded_searches_total",
			Help: "Searches that returned empty because area-query retries were exhausted",
		},
	)

	SuggestionsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_suggestions_persisted_total",
			Help: "Suggestion rows written to the repository",
		},
	)
)
