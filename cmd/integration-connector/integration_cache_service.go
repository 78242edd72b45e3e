package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/telephony/integration-connector/internal/config"
	"github.com/telephony/integration-connector/internal/integration_cache"
	"github.com/telephony/integration-connector/internal/integration_cache/api"
	"github.com/telephony/integration-connector/internal/integration_repository"
	"github.com/telephony/integration-connector/internal/middlewares"
	"github.com/telephony/integration-connector/internal/platform/db"
	"github.com/telephony/integration-connector/internal/platform/logger"
	"github.com/telephony/integration-connector/internal/platform/utils"

	"github.com/gorilla/mux"
	"github.com/redhatinsights/platform-go-middlewares/v2/request_id"
)

func buildCacheServiceConfig(cfg *config.Config) integration_cache.ServiceConfig {
	return integration_cache.ServiceConfig{
		EntryTTL:            cfg.CacheEntryTTL,
		MaxEntries:          cfg.CacheMaxEntries,
		DatabaseTimeout:     cfg.IntegrationDatabaseTimeout,
		RefreshInterval:     cfg.CacheRefreshInterval,
		RefreshJitter:       cfg.CacheRefreshJitter,
		RefreshErrorBackoff: cfg.CacheRefreshErrorBackoff,
	}
}

func startIntegrationCacheService(listenAddr string) {

	logger.InitLogger()

	logger.Log.Info("Starting Integration Cache service")

	cfg := config.GetConfig()
	logger.Log.Info("Integration Cache configuration:\n", cfg)

	if listenAddr == "" {
		listenAddr = cfg.CacheServiceAddr
	}

	var reader integration_repository.IntegrationConfigReader

	database, err := db.InitializeDatabaseConnection(cfg)
	if err != nil {
		logger.LogError("Unable to connect to database, serving without tenant loads", err)
	} else {
		defer database.Close()
		reader = integration_repository.NewSqlIntegrationConfigReader(database)
	}

	service := integration_cache.NewService(reader, buildCacheServiceConfig(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	if database != nil {
		if err := service.Refresh(ctx); err != nil {
			logger.LogError("Initial cache load failed", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			service.RunRefreshLoop(ctx)
		}()

		connectionString, err := db.BuildPostgresConnectionString(cfg)
		if err != nil {
			logger.LogFatalError("Unable to build the invalidation listener connection string", err)
		}

		listener, err := integration_cache.NewInvalidationListener(connectionString, cfg.CacheInvalidationChannel, service)
		if err != nil {
			logger.LogError("Unable to listen for integration config changes", err)
		} else {
			defer listener.Close()

			wg.Add(1)
			go func() {
				defer wg.Done()
				listener.Run(ctx)
			}()
		}
	}

	apiMux := mux.NewRouter()
	apiMux.Use(request_id.ConfiguredRequestID(logger.RequestIDHeader))

	monitoringServer := api.NewMonitoringServer(apiMux, cfg, service)
	monitoringServer.Routes()

	cacheApiRouter := apiMux.NewRoute().Subrouter()
	mmw := &middlewares.MetricsMiddleware{}
	cacheApiRouter.Use(logger.AccessLoggerMiddleware, mmw.RecordHTTPMetrics)

	cacheApiServer := api.NewCacheApiServer(cacheApiRouter, service)
	cacheApiServer.Routes()

	apiSrv := utils.StartHTTPServer(listenAddr, "integration-cache", apiMux)

	signalChan := make(chan os.Signal, 1)

	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-signalChan
	logger.Log.Info("Received signal to shutdown: ", sig)

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HttpShutdownTimeout)
	defer shutdownCancel()

	utils.ShutdownHTTPServer(shutdownCtx, "integration-cache", apiSrv)

	wg.Wait()

	logger.Log.Info("Integration Cache shutting down")
}
