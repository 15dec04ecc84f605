package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchtrack",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "watchtrack",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	CatalogRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchtrack",
		Name:      "catalog_requests_total",
		Help:      "Total requests to the show catalog by operation and result status.",
	}, []string{"operation", "status"})

	CatalogRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "watchtrack",
		Name:      "catalog_request_duration_seconds",
		Help:      "Show catalog request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	CatalogAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watchtrack",
		Name:      "catalog_available",
		Help:      "Whether a catalog operation is available (1) or blocked by circuit breaker (0).",
	}, []string{"operation"})

	CatalogCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchtrack",
		Name:      "catalog_cache_hits_total",
		Help:      "Total number of catalog cache hits by operation.",
	}, []string{"operation"})

	CatalogCacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchtrack",
		Name:      "catalog_cache_misses_total",
		Help:      "Total number of catalog cache misses by operation.",
	}, []string{"operation"})

	CatalogQuotaRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "watchtrack",
		Name:      "catalog_quota_rejections_total",
		Help:      "Catalog calls refused locally because the request quota was exhausted.",
	})

	EnrichmentFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchtrack",
		Name:      "search_enrichment_failures_total",
		Help:      "Availability lookups that degraded to empty data, by kind.",
	}, []string{"kind"})

	SearchResultsCount = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "watchtrack",
		Name:      "search_results_count",
		Help:      "Number of ranked results returned by universal search.",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})

	SearchMergedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "watchtrack",
		Name:      "search_merged_candidates_total",
		Help:      "Candidates folded into another record by disambiguation.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CatalogRequestsTotal,
		CatalogRequestDuration,
		CatalogAvailable,
		CatalogCacheHitsTotal,
		CatalogCacheMissesTotal,
		CatalogQuotaRejectionsTotal,
		EnrichmentFailuresTotal,
		SearchResultsCount,
		SearchMergedTotal,
	)
}
