package integration_repository

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type integrationRepositoryMetrics struct {
	sqlLookupTenantIntegrationsDuration    prometheus.Histogram
	sqlLookupAllTenantIntegrationsDuration prometheus.Histogram
	sqlLookupFailureCounter                *prometheus.CounterVec
}

var metrics *integrationRepositoryMetrics

func init() {
	metrics = new(integrationRepositoryMetrics)

	metrics.sqlLookupTenantIntegrationsDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "integration_connector_sql_lookup_tenant_integrations_duration",
		Help: "The amount of time it took to lookup the integrations config of a single tenant",
	})

	metrics.sqlLookupAllTenantIntegrationsDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "integration_connector_sql_lookup_all_tenant_integrations_duration",
		Help: "The amount of time it took to load the integrations config of every active tenant",
	})

	metrics.sqlLookupFailureCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_connector_sql_lookup_failure_count",
		Help: "The number of failed integrations config lookups by failure reason",
	}, []string{"reason"})
}
