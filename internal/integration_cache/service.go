package integration_cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/telephony/integration-connector/internal/domain"
	"github.com/telephony/integration-connector/internal/integration_repository"
	"github.com/telephony/integration-connector/internal/platform/logger"

	"github.com/sirupsen/logrus"
)

var (
	ErrTenantNotFound      = errors.New("tenant has no integrations configuration")
	ErrDatabaseUnavailable = errors.New("integrations database unavailable")
	errMalformedPayload    = errors.New("malformed invalidation payload")
)

type ServiceConfig struct {
	EntryTTL            time.Duration
	MaxEntries          int
	DatabaseTimeout     time.Duration
	RefreshInterval     time.Duration
	RefreshJitter       time.Duration
	RefreshErrorBackoff time.Duration
}

type ServiceStats struct {
	Hits            uint64  `json:"hits"`
	Misses          uint64  `json:"misses"`
	Refreshes       uint64  `json:"refreshes"`
	CacheSize       int     `json:"cache_size"`
	LastFullRefresh float64 `json:"last_full_refresh"`
	TotalRequests   uint64  `json:"total_requests"`
	HitRatePercent  float64 `json:"hit_rate_percent"`
	CacheEntries    int     `json:"cache_entries"`
}

// Service keeps the tenant integrations matrix warm for the local clients.
type Service struct {
	reader integration_repository.IntegrationConfigReader
	store  *Store
	config ServiceConfig

	hits      atomic.Uint64
	misses    atomic.Uint64
	refreshes atomic.Uint64

	refreshMutex    sync.Mutex
	lastFullRefresh atomic.Int64

	startedAt time.Time
	sleep     func(context.Context, time.Duration) error
}

func NewService(reader integration_repository.IntegrationConfigReader, cfg ServiceConfig) *Service {
	return &Service{
		reader:    reader,
		store:     NewStore(cfg.MaxEntries, cfg.EntryTTL),
		config:    cfg,
		startedAt: time.Now(),
		sleep:     sleepContext,
	}
}

func (s *Service) DatabaseConnected() bool {
	return s.reader != nil
}

func (s *Service) Uptime() time.Duration {
	return time.Since(s.startedAt)
}

func (s *Service) withDatabaseTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.DatabaseTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.DatabaseTimeout)
}

// Refresh reloads every configured tenant and replaces the cached matrix.
// The current matrix is kept when the load fails.
func (s *Service) Refresh(ctx context.Context) error {
	if s.reader == nil {
		return ErrDatabaseUnavailable
	}

	s.refreshMutex.Lock()
	defer s.refreshMutex.Unlock()

	start := time.Now()
	log := logger.Log.WithFields(logrus.Fields{"operation": "full_refresh"})

	ctx, cancel := s.withDatabaseTimeout(ctx)
	defer cancel()

	matrix, err := s.reader.GetAllTenantIntegrations(ctx)
	if err != nil {
		metrics.refreshCounter.WithLabelValues("failure").Inc()
		log.WithFields(logrus.Fields{"error": err}).Error("Unable to reload the integrations matrix")
		return fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}

	s.store.Replace(matrix)

	s.refreshes.Add(1)
	s.lastFullRefresh.Store(time.Now().UnixNano())

	metrics.refreshCounter.WithLabelValues("success").Inc()
	metrics.refreshDuration.Observe(time.Since(start).Seconds())
	metrics.cacheSizeGauge.Set(float64(s.store.Len()))

	log.WithFields(logrus.Fields{"tenants": len(matrix), "elapsed": logger.Elapsed(start)}).Info("Reloaded the integrations matrix")

	return nil
}

// Lookup answers from the cache when it can and loads the single tenant on a miss.
func (s *Service) Lookup(ctx context.Context, tenant domain.TenantID) (CacheEntry, error) {
	if entry, ok := s.store.Get(tenant); ok {
		s.hits.Add(1)
		metrics.lookupCounter.WithLabelValues("hit").Inc()
		return entry, nil
	}

	s.misses.Add(1)

	if s.reader == nil {
		metrics.lookupCounter.WithLabelValues("unavailable").Inc()
		return CacheEntry{}, ErrDatabaseUnavailable
	}

	start := time.Now()
	generation := s.store.Generation(tenant)

	ctx, cancel := s.withDatabaseTimeout(ctx)
	defer cancel()

	integrations, found, err := s.reader.GetTenantIntegrations(ctx, tenant)
	metrics.singleTenantLoadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.lookupCounter.WithLabelValues("unavailable").Inc()
		logger.LogErrorWithTenant("Unable to load tenant integrations", err, tenant.String())
		return CacheEntry{}, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}

	if !found {
		metrics.lookupCounter.WithLabelValues("not_found").Inc()
		return CacheEntry{}, ErrTenantNotFound
	}

	metrics.lookupCounter.WithLabelValues("miss").Inc()

	entry, cached := s.store.AddIfUnchanged(tenant, integrations, generation)
	if !cached {
		logger.Log.WithFields(logrus.Fields{"enterprise_number": tenant}).Debug("Tenant was invalidated while loading, not caching the result")
	}
	metrics.cacheSizeGauge.Set(float64(s.store.Len()))

	return entry, nil
}

func (s *Service) Invalidate(tenant domain.TenantID) bool {
	removed := s.store.Remove(tenant)
	metrics.cacheSizeGauge.Set(float64(s.store.Len()))
	return removed
}

type invalidationPayload struct {
	EnterpriseNumber domain.TenantID `json:"enterprise_number"`
}

// HandleNotification applies a config change notification.  An empty payload
// means notifications may have been lost, so the whole matrix is reloaded.
func (s *Service) HandleNotification(ctx context.Context, payload string) error {
	if payload == "" {
		metrics.invalidationCounter.WithLabelValues("reconnect").Inc()
		return s.Refresh(ctx)
	}

	var notification invalidationPayload
	if err := json.Unmarshal([]byte(payload), &notification); err != nil {
		return fmt.Errorf("%w: %w", errMalformedPayload, err)
	}

	if notification.EnterpriseNumber == "" {
		return errMalformedPayload
	}

	metrics.invalidationCounter.WithLabelValues("notification").Inc()
	s.Invalidate(notification.EnterpriseNumber)

	logger.Log.WithFields(logrus.Fields{"enterprise_number": notification.EnterpriseNumber}).Info("Invalidated cached integrations")

	return nil
}

func (s *Service) Entries() map[domain.TenantID]CacheEntry {
	return s.store.Entries()
}

func (s *Service) Stats() ServiceStats {
	hits := s.hits.Load()
	misses := s.misses.Load()
	total := hits + misses
	size := s.store.Len()

	var lastFullRefresh float64
	if ts := s.lastFullRefresh.Load(); ts != 0 {
		lastFullRefresh = float64(ts) / float64(time.Second)
	}


	return ServiceStats{
		Hits:            hits,
		Misses:          misses,
		Refreshes:       s.refreshes.Load(),
		CacheSize:       size,
		LastFullRefresh: lastFullRefresh,
		TotalRequests:   total,
		HitRatePercent:  hitRatePercent(hits, total),
		CacheEntries:    size,
	}
}

func hitRatePercent(hits uint64, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(hits)/float64(total)*10000) / 100
}

func (s *Service) nextRefreshDelay() time.Duration {
	delay := s.config.RefreshInterval
	if s.config.RefreshJitter > 0 {
		jitter := int64(s.config.RefreshJitter)
		delay += time.Duration(rand.Int64N(2*jitter+1) - jitter)
	}
	if delay <= 0 {
		delay = time.Second
	}
	return delay
}

// RunRefreshLoop reloads the matrix on a jittered interval until ctx is done.
func (s *Service) RunRefreshLoop(ctx context.Context) {
	logger.Log.Info("Starting integrations cache refresh loop")
	defer logger.Log.Info("Stopped integrations cache refresh loop")

	for {
		if err := s.sleep(ctx, s.nextRefreshDelay()); err != nil {
			return
		}

		if err := s.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			if err := s.sleep(ctx, s.config.RefreshErrorBackoff); err != nil {
				return
			}
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
