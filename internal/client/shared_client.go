package client

import (
	"database/sql"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/telephony/integration-connector/internal/config"
	"github.com/telephony/integration-connector/internal/dispatcher"
	"github.com/telephony/integration-connector/internal/domain"
	"github.com/telephony/integration-connector/internal/integration_repository"
	"github.com/telephony/integration-connector/internal/integration_status"
	"github.com/telephony/integration-connector/internal/platform/db"
	"github.com/telephony/integration-connector/internal/platform/logger"

	"github.com/sirupsen/logrus"
)

// SharedClient owns the pooled HTTP client and database connections used by
// the resolver and the dispatcher.  Both pools are released by Close.
type SharedClient struct {
	HTTPClient *http.Client
	Database   *sql.DB
	Resolver   *integration_status.Resolver
	Dispatcher *dispatcher.Dispatcher

	transport *http.Transport
	pool      *dispatcher.WorkerPool
	closeOnce sync.Once
	closeErr  error
}

func buildTransport(cfg *config.Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.IntegrationCacheTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.HttpMaxIdleConns,
		MaxIdleConnsPerHost: cfg.HttpMaxConnsPerHost,
		MaxConnsPerHost:     cfg.HttpMaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
	}
}

// NewSharedClient builds the client.  A database that cannot be reached is
// not fatal: the client then runs in cache-only mode.
func NewSharedClient(cfg *config.Config) *SharedClient {
	database, err := db.InitializeDatabaseConnection(cfg)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{
			"error": err,
			"host":  cfg.ConnectionDatabaseHost,
		}).Warn("Unable to initialize the database pool, running in cache-only mode")
		database = nil
	}

	return newSharedClient(cfg, buildTransport(cfg), database)
}

func newSharedClient(cfg *config.Config, transport *http.Transport, database *sql.DB) *SharedClient {
	httpClient := &http.Client{Transport: transport}

	var configReader integration_repository.IntegrationConfigReader
	if database != nil {
		configReader = integration_repository.NewSqlIntegrationConfigReader(database)
	}

	retryPolicy := integration_status.NewRetryPolicy(
		cfg.IntegrationCacheRetryCount,
		cfg.IntegrationCacheRetryBaseDelay,
		cfg.IntegrationCacheRetryJitter,
	)

	resolver := integration_status.NewResolver(
		integration_status.NewCacheReader(httpClient, cfg.IntegrationCacheUrl, cfg.IntegrationCacheTimeout, retryPolicy),
		integration_status.NewFallbackStore(configReader, cfg.IntegrationDatabaseTimeout),
		integration_status.NewStatsCollector(),
	)

	pool := dispatcher.NewWorkerPool("delivery", cfg.DispatchMaxConcurrency)

	eventDispatcher := dispatcher.NewDispatcher(
		resolver,
		dispatcher.NewHTTPEventSenders(httpClient, cfg.DeliveryEndpoints),
		pool,
		cfg.DeliveryTimeout,
	)

	logger.Log.WithFields(logrus.Fields{"cache_only": database == nil}).Info("Integration client initialized")

	return &SharedClient{
		HTTPClient: httpClient,
		Database:   database,
		Resolver:   resolver,
		Dispatcher: eventDispatcher,
		transport:  transport,
		pool:       pool,
	}
}

// CacheOnly reports whether the database pool could not be built.
func (sc *SharedClient) CacheOnly() bool {
	return sc.Database == nil
}

func (sc *SharedClient) Stats() domain.StatsSnapshot {
	return sc.Resolver.Stats().Snapshot()
}

// Close drains outstanding deliveries, then releases both pools.
func (sc *SharedClient) Close() error {
	sc.closeOnce.Do(func() {
		sc.pool.Close()
		sc.transport.CloseIdleConnections()

		var errs []error
		if sc.Database != nil {
			errs = append(errs, sc.Database.Close())
		}
		sc.closeErr = errors.Join(errs...)
	})

	return sc.closeErr
}
