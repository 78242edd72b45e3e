package integration_cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type cacheMetrics struct {
	lookupCounter            *prometheus.CounterVec
	refreshCounter           *prometheus.CounterVec
	refreshDuration          prometheus.Histogram
	invalidationCounter      *prometheus.CounterVec
	cacheSizeGauge           prometheus.Gauge
	singleTenantLoadDuration prometheus.Histogram
}

func newCacheMetrics() *cacheMetrics {
	metrics := new(cacheMetrics)

	metrics.lookupCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_cache_lookup_count",
		Help: "The number of tenant lookups served by the integration cache by result",
	}, []string{"result"})

	metrics.refreshCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_cache_refresh_count",
		Help: "The number of full cache refreshes by outcome",
	}, []string{"outcome"})

	metrics.refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "integration_cache_refresh_duration",
		Help: "The amount of time it took to reload the full integrations matrix",
	})

	metrics.invalidationCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_cache_invalidation_count",
		Help: "The number of cache invalidations by trigger",
	}, []string{"trigger"})

	metrics.cacheSizeGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "integration_cache_size",
		Help: "The number of tenants held in the integration cache",
	})

	metrics.singleTenantLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "integration_cache_tenant_load_duration",
		Help: "The amount of time it took to load a single tenant on a cache miss",
	})

	return metrics
}

var metrics = newCacheMetrics()
