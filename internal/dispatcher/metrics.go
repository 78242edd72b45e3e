package dispatcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	deliveryTasksInFlightGauge  *prometheus.GaugeVec
	deliveryTasksRejected       *prometheus.CounterVec
	deliveryTaskPanicCounter    *prometheus.CounterVec
	deliveryOutcomeCounter      *prometheus.CounterVec
	deliveryDuration            *prometheus.HistogramVec
	dispatchWithoutIntegrations prometheus.Counter
}

func NewMetrics() *Metrics {
	metrics := new(Metrics)

	metrics.deliveryTasksInFlightGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "integration_connector_delivery_tasks_in_flight",
		Help: "The number of delivery tasks that are scheduled or running",
	}, []string{"pool"})

	metrics.deliveryTasksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_connector_delivery_tasks_rejected_count",
		Help: "The number of delivery tasks rejected because the pool was closed",
	}, []string{"pool"})

	metrics.deliveryTaskPanicCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_connector_delivery_task_panic_count",
		Help: "The number of delivery tasks that panicked",
	}, []string{"pool"})

	metrics.deliveryOutcomeCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_connector_delivery_count",
		Help: "The number of event deliveries by integration type and outcome",
	}, []string{"integration_type", "outcome"})

	metrics.deliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "integration_connector_delivery_duration",
		Help: "The amount of time an event delivery took by integration type",
	}, []string{"integration_type"})

	metrics.dispatchWithoutIntegrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "integration_connector_dispatch_without_integrations_count",
		Help: "The number of dispatch calls for tenants with no enabled integrations",
	})

	return metrics
}

var (
	metrics = NewMetrics()
)
