package horizon

import "github.com/prometheus/client_golang/prometheus"

type clientMetrics struct {
	requests           *prometheus.CounterVec
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	enrichmentFailures prometheus.Counter
	rateLimitWait      prometheus.Summary
}

func newClientMetrics(registry *prometheus.Registry) clientMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xdb_explorer", Subsystem: "api", Name: "requests_total",
		Help: "outbound horizon requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})
	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "xdb_explorer", Subsystem: "api", Name: "cache_hits_total",
		Help: "requests served from the response cache",
	})
	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "xdb_explorer", Subsystem: "api", Name: "cache_misses_total",
		Help: "requests that had to go to the network",
	})
	enrichmentFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "xdb_explorer", Subsystem: "api", Name: "enrichment_failures_total",
		Help: "operation sub-fetches that degraded to an empty operations list",
	})
	rateLimitWait := prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "xdb_explorer", Subsystem: "api", Name: "rate_limit_wait_seconds",
		Help:       "time spent waiting for a rate limiter slot",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	})

	registry.MustRegister(requests, cacheHits, cacheMisses, enrichmentFailures, rateLimitWait)

	return clientMetrics{
		requests:           requests,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		enrichmentFailures: enrichmentFailures,
		rateLimitWait:      rateLimitWait,
	}
}
