package integration_status

import (
	"context"
	"sort"
	"time"

	"github.com/telephony/integration-connector/internal/domain"
	"github.com/telephony/integration-connector/internal/platform/logger"

	"github.com/sirupsen/logrus"
)

type StatusResolver interface {
	GetStatus(context.Context, domain.TenantID) domain.TenantIntegrationStatus
	IsIntegrationEnabled(context.Context, domain.TenantID, domain.IntegrationType) bool
	GetEnabledIntegrations(context.Context, domain.TenantID) []domain.IntegrationType
}

type CacheTier interface {
	Read(context.Context, domain.TenantID) (domain.TenantIntegrationStatus, error)
}

type DatabaseTier interface {
	Read(context.Context, domain.TenantID) (domain.Integrations, error)
}

// Resolver looks a tenant up in the cache tier first and falls back to the
// database tier.  It never fails: every outcome is encoded in the returned
// status and in the stats.
type Resolver struct {
	cache    CacheTier
	database DatabaseTier
	stats    *StatsCollector
}

func NewResolver(cache CacheTier, database DatabaseTier, stats *StatsCollector) *Resolver {
	if stats == nil {
		stats = NewStatsCollector()
	}

	return &Resolver{
		cache:    cache,
		database: database,
		stats:    stats,
	}
}

func (r *Resolver) Stats() *StatsCollector {
	return r.stats
}

func (r *Resolver) GetStatus(ctx context.Context, tenant domain.TenantID) domain.TenantIntegrationStatus {
	r.stats.recordRequest()
	startTime := time.Now()

	log := logger.Log.WithFields(logrus.Fields{"enterprise_number": tenant})

	status, err := r.cache.Read(ctx, tenant)
	if err == nil {
		r.stats.recordCacheHit()
		metrics.statusResolutionDuration.WithLabelValues(string(domain.SourceCache)).Observe(time.Since(startTime).Seconds())
		log.WithFields(logrus.Fields{"elapsed": logger.Elapsed(startTime)}).Debug("Integration cache hit")
		return status
	}

	r.stats.recordCacheMiss()
	log.WithFields(logrus.Fields{"error": err}).Warn("Integration cache failed, falling back to the database")

	integrations, err := r.database.Read(ctx, tenant)
	if err != nil {
		r.stats.recordError()
		metrics.statusResolutionDuration.WithLabelValues(string(domain.SourceError)).Observe(time.Since(startTime).Seconds())
		log.WithFields(logrus.Fields{"error": err, "elapsed": logger.Elapsed(startTime)}).Error("Both the integration cache and the database failed")
		return domain.TenantIntegrationStatus{
			TenantID:     tenant,
			Integrations: make(domain.Integrations),
			Source:       domain.SourceError,
		}
	}

	r.stats.recordDatabaseFallback()
	metrics.statusResolutionDuration.WithLabelValues(string(domain.SourceDatabase)).Observe(time.Since(startTime).Seconds())
	log.WithFields(logrus.Fields{"elapsed": logger.Elapsed(startTime)}).Warn("Integration status served from the database")

	return domain.TenantIntegrationStatus{
		TenantID:     tenant,
		Integrations: integrations,
		Source:       domain.SourceDatabase,
	}
}

func (r *Resolver) IsIntegrationEnabled(ctx context.Context, tenant domain.TenantID, integrationType domain.IntegrationType) bool {
	status := r.GetStatus(ctx, tenant)
	return status.Integrations[integrationType]
}

// GetEnabledIntegrations returns the enabled integration types in sorted order.
func (r *Resolver) GetEnabledIntegrations(ctx context.Context, tenant domain.TenantID) []domain.IntegrationType {
	status := r.GetStatus(ctx, tenant)

	enabled := make([]domain.IntegrationType, 0, len(status.Integrations))
	for integrationType, isEnabled := range status.Integrations {
		if isEnabled {
			enabled = append(enabled, integrationType)
		}
	}

	sort.Slice(enabled, func(i, j int) bool { return enabled[i] < enabled[j] })

	return enabled
}
