package api

import (
	"net/http"
	_ "net/http/pprof"

	"github.com/telephony/integration-connector/internal/config"
	"github.com/telephony/integration-connector/internal/platform/logger"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type readinessChecker interface {
	DatabaseConnected() bool
}

type MonitoringServer struct {
	router    *mux.Router
	config    *config.Config
	readiness readinessChecker
}

func NewMonitoringServer(r *mux.Router, cfg *config.Config, readiness readinessChecker) *MonitoringServer {
	return &MonitoringServer{
		router:    r,
		config:    cfg,
		readiness: readiness,
	}
}

func (s *MonitoringServer) Routes() {
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/liveness", s.handleLiveness()).Methods(http.MethodGet)
	s.router.HandleFunc("/readiness", s.handleReadiness()).Methods(http.MethodGet)

	if s.config.Profile {
		logger.Log.Warn("WARNING: Enabling the profiler endpoint!!")
		s.router.PathPrefix("/debug").Handler(http.DefaultServeMux)
	}
}

func (s *MonitoringServer) handleLiveness() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

// The sidecar can still serve cached entries without a database, but it
// cannot load new tenants, so it only reports ready once the pool is up.
func (s *MonitoringServer) handleReadiness() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if s.readiness != nil && !s.readiness.DatabaseConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
