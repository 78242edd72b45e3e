package integration_status

import (
	"math"
	"sync/atomic"

	"github.com/telephony/integration-connector/internal/domain"
)

// StatsCollector counts resolver outcomes.  Only the resolver increments it;
// anyone may take a Snapshot.
type StatsCollector struct {
	totalRequests atomic.Uint64
	cacheHits     atomic.Uint64
	cacheMisses   atomic.Uint64
	dbFallbacks   atomic.Uint64
	errors        atomic.Uint64
}

func NewStatsCollector() *StatsCollector {
	return &StatsCollector{}
}

func (sc *StatsCollector) recordRequest() {
	sc.totalRequests.Add(1)
	metrics.statusRequestCounter.Inc()
}

func (sc *StatsCollector) recordCacheHit() {
	sc.cacheHits.Add(1)
	metrics.cacheHitCounter.Inc()
}

func (sc *StatsCollector) recordCacheMiss() {
	sc.cacheMisses.Add(1)
	metrics.cacheMissCounter.Inc()
}

func (sc *StatsCollector) recordDatabaseFallback() {
	sc.dbFallbacks.Add(1)
	metrics.databaseFallbackCounter.Inc()
}

func (sc *StatsCollector) recordError() {
	sc.errors.Add(1)
	metrics.errorCounter.Inc()
}

func (sc *StatsCollector) Snapshot() domain.StatsSnapshot {
	stats := domain.Stats{
		TotalRequests: sc.totalRequests.Load(),
		CacheHits:     sc.cacheHits.Load(),
		CacheMisses:   sc.cacheMisses.Load(),
		DBFallbacks:   sc.dbFallbacks.Load(),
		Errors:        sc.errors.Load(),
	}

	return domain.StatsSnapshot{
		Stats:               stats,
		CacheHitRatePercent: cacheHitRatePercent(stats.CacheHits, stats.TotalRequests),
	}
}

func cacheHitRatePercent(hits, total uint64) float64 {
	if total < 1 {
		total = 1
	}
	rate := float64(hits) / float64(total) * 100
	return math.Round(rate*100) / 100
}
