package dispatcher

import (
	"context"
	"time"

	"github.com/telephony/integration-connector/internal/domain"
	"github.com/telephony/integration-connector/internal/platform/logger"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type EnabledIntegrationsResolver interface {
	GetEnabledIntegrations(context.Context, domain.TenantID) []domain.IntegrationType
}

// Dispatcher fans an event out to every integration a tenant has enabled.
// Deliveries run on the worker pool; their outcome is only ever logged.
type Dispatcher struct {
	resolver        EnabledIntegrationsResolver
	senders         map[domain.IntegrationType]EventSender
	placeholder     EventSender
	pool            *WorkerPool
	deliveryTimeout time.Duration
	validate        *validator.Validate
}

func NewDispatcher(resolver EnabledIntegrationsResolver, senders map[domain.IntegrationType]EventSender, pool *WorkerPool, deliveryTimeout time.Duration) *Dispatcher {
	if senders == nil {
		senders = make(map[domain.IntegrationType]EventSender)
	}

	return &Dispatcher{
		resolver:        resolver,
		senders:         senders,
		placeholder:     PlaceholderEventSender{},
		pool:            pool,
		deliveryTimeout: deliveryTimeout,
		validate:        validator.New(),
	}
}

// SendToEnabledIntegrations resolves the tenant's enabled integrations and
// schedules one delivery per integration.  It returns as soon as the
// deliveries are scheduled.
func (d *Dispatcher) SendToEnabledIntegrations(ctx context.Context, tenant domain.TenantID, eventType domain.EventType, payload interface{}) {

	log := logger.Log.WithFields(logrus.Fields{"enterprise_number": tenant, "event_type": eventType})

	enabledIntegrations := d.resolver.GetEnabledIntegrations(ctx, tenant)
	if len(enabledIntegrations) == 0 {
		metrics.dispatchWithoutIntegrations.Inc()
		log.Debug("No integrations enabled")
		return
	}

	// Deliveries must outlive the caller's request
	detachedCtx := context.WithoutCancel(ctx)

	scheduled := 0

	for _, integrationType := range enabledIntegrations {
		task := domain.DeliveryTask{
			TenantID:        tenant,
			IntegrationType: integrationType,
			EventType:       eventType,
			Payload:         payload,
		}

		taskLog := log.WithFields(logrus.Fields{"integration_type": integrationType})

		if err := d.validate.Struct(task); err != nil {
			taskLog.WithFields(logrus.Fields{"error": err}).Error("Invalid delivery task, not scheduling it")
			continue
		}

		sender := d.senderFor(integrationType)

		if d.pool.Submit(taskLog, func() { d.deliver(detachedCtx, taskLog, sender, task) }) {
			scheduled++
		}
	}

	log.WithFields(logrus.Fields{"scheduled": scheduled}).Debug("Scheduled event deliveries")
}

func (d *Dispatcher) senderFor(integrationType domain.IntegrationType) EventSender {
	if sender, ok := d.senders[integrationType]; ok {
		return sender
	}
	return d.placeholder
}

func (d *Dispatcher) deliver(ctx context.Context, log *logrus.Entry, sender EventSender, task domain.DeliveryTask) {
	ctx, cancel := context.WithTimeout(ctx, d.deliveryTimeout)
	defer cancel()

	startTime := time.Now()
	err := sender.Send(ctx, task)
	metrics.deliveryDuration.WithLabelValues(string(task.IntegrationType)).Observe(time.Since(startTime).Seconds())

	if err != nil {
		metrics.deliveryOutcomeCounter.WithLabelValues(string(task.IntegrationType), "failure").Inc()
		log.WithFields(logrus.Fields{"error": err, "elapsed": logger.Elapsed(startTime)}).Error("Unable to deliver event to integration")
		return
	}

	metrics.deliveryOutcomeCounter.WithLabelValues(string(task.IntegrationType), "success").Inc()
	log.WithFields(logrus.Fields{"elapsed": logger.Elapsed(startTime)}).Debug("Delivered event to integration")
}

// Wait blocks until every delivery scheduled so far has finished.
func (d *Dispatcher) Wait() {
	d.pool.Wait()
}
