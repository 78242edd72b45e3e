package integration_status

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	statusRequestCounter    prometheus.Counter
	cacheHitCounter         prometheus.Counter
	cacheMissCounter        prometheus.Counter
	databaseFallbackCounter prometheus.Counter
	errorCounter            prometheus.Counter

	cacheAttemptCounter      *prometheus.CounterVec
	statusResolutionDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	metrics := new(Metrics)

	metrics.statusRequestCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "integration_connector_status_request_count",
		Help: "The number of integration status lookups",
	})

	metrics.cacheHitCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "integration_connector_status_cache_hit_count",
		Help: "The number of integration status lookups answered by the cache sidecar",
	})

	metrics.cacheMissCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "integration_connector_status_cache_miss_count",
		Help: "The number of integration status lookups where the cache sidecar failed",
	})

	metrics.databaseFallbackCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "integration_connector_status_db_fallback_count",
		Help: "The number of integration status lookups answered by the database",
	})

	metrics.errorCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "integration_connector_status_error_count",
		Help: "The number of integration status lookups where both tiers failed",
	})

	metrics.cacheAttemptCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_connector_cache_attempt_count",
		Help: "The number of requests sent to the cache sidecar by outcome",
	}, []string{"outcome"})

	metrics.statusResolutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "integration_connector_status_resolution_duration",
		Help: "The amount of time it took to resolve a tenant's integration status by source",
	}, []string{"source"})

	return metrics
}

var (
	metrics = NewMetrics()
)
