package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/telephony/integration-connector/internal/domain"
	"github.com/telephony/integration-connector/internal/integration_cache"
	"github.com/telephony/integration-connector/internal/platform/logger"

	"github.com/gorilla/mux"
	"github.com/redhatinsights/platform-go-middlewares/v2/request_id"
	"github.com/sirupsen/logrus"
)

type IntegrationCache interface {
	Lookup(context.Context, domain.TenantID) (integration_cache.CacheEntry, error)
	Invalidate(domain.TenantID) bool
	Refresh(context.Context) error
	Entries() map[domain.TenantID]integration_cache.CacheEntry
	Stats() integration_cache.ServiceStats
	DatabaseConnected() bool
	Uptime() time.Duration
}

type CacheApiServer struct {
	router *mux.Router
	cache  IntegrationCache
}

func NewCacheApiServer(r *mux.Router, cache IntegrationCache) *CacheApiServer {
	return &CacheApiServer{
		router: r,
		cache:  cache,
	}
}

func (s *CacheApiServer) Routes() {
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/stats", s.handleStats()).Methods(http.MethodGet)
	s.router.HandleFunc("/integrations/{tenant}", s.handleGetIntegrations()).Methods(http.MethodGet)

	cacheRouter := s.router.PathPrefix("/cache").Subrouter()
	cacheRouter.HandleFunc("/invalidate/{tenant}", s.handleInvalidate()).Methods(http.MethodPost)
	cacheRouter.HandleFunc("/refresh", s.handleRefresh()).Methods(http.MethodPost)
	cacheRouter.HandleFunc("/entries", s.handleEntries()).Methods(http.MethodGet)
}

func requestLogger(req *http.Request) *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{"request_id": request_id.GetReqID(req.Context())})
}

type healthResponse struct {
	Status            string  `json:"status"`
	CacheSize         int     `json:"cache_size"`
	DatabaseConnected bool    `json:"database_connected"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

func (s *CacheApiServer) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		status := "healthy"
		if !s.cache.DatabaseConnected() {
			status = "degraded"
		}

		writeJSONResponse(w, http.StatusOK, healthResponse{
			Status:            status,
			CacheSize:         s.cache.Stats().CacheSize,
			DatabaseConnected: s.cache.DatabaseConnected(),
			UptimeSeconds:     s.cache.Uptime().Seconds(),
		})
	}
}

func (s *CacheApiServer) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		writeJSONResponse(w, http.StatusOK, s.cache.Stats())
	}
}

func (s *CacheApiServer) handleGetIntegrations() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		tenant := domain.TenantID(mux.Vars(req)["tenant"])
		log := requestLogger(req).WithFields(logrus.Fields{"enterprise_number": tenant})

		entry, err := s.cache.Lookup(req.Context(), tenant)

		switch {
		case err == nil:
			writeJSONResponse(w, http.StatusOK, entry.View(time.Now()))

		case errors.Is(err, integration_cache.ErrTenantNotFound):
			log.Debug("Tenant has no integrations configuration")
			writeErrorResponse(w, http.StatusNotFound, "Tenant not found", err)

		default:
			log.WithFields(logrus.Fields{"error": err}).Warn("Unable to load tenant integrations")
			writeErrorResponse(w, http.StatusServiceUnavailable, "Integrations database unavailable", err)
		}
	}
}

type invalidateResponse struct {
	Status           string          `json:"status"`
	EnterpriseNumber domain.TenantID `json:"enterprise_number"`
	Removed          bool            `json:"removed"`
}

func (s *CacheApiServer) handleInvalidate() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		tenant := domain.TenantID(mux.Vars(req)["tenant"])

		removed := s.cache.Invalidate(tenant)

		requestLogger(req).WithFields(logrus.Fields{"enterprise_number": tenant, "removed": removed}).Info("Cache entry invalidated")

		writeJSONResponse(w, http.StatusOK, invalidateResponse{
			Status:           "invalidated",
			EnterpriseNumber: tenant,
			Removed:          removed,
		})
	}
}

type refreshResponse struct {
	Status    string `json:"status"`
	CacheSize int    `json:"cache_size"`
}

func (s *CacheApiServer) handleRefresh() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := s.cache.Refresh(req.Context()); err != nil {
			requestLogger(req).WithFields(logrus.Fields{"error": err}).Error("Manual cache refresh failed")
			writeErrorResponse(w, http.StatusServiceUnavailable, "Unable to refresh the cache", err)
			return
		}

		writeJSONResponse(w, http.StatusOK, refreshResponse{
			Status:    "refreshed",
			CacheSize: s.cache.Stats().CacheSize,
		})
	}
}

func (s *CacheApiServer) handleEntries() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		now := time.Now()
		entries := s.cache.Entries()

		views := make(map[domain.TenantID]integration_cache.CacheEntryView, len(entries))
		for tenant, entry := range entries {
			views[tenant] = entry.View(now)
		}

		writeJSONResponse(w, http.StatusOK, views)
	}
}
