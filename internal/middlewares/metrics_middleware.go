package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	statusCodeCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_cache_http_status_code_counter",
		Help: "The number of http status codes per route",
	}, []string{"route", "status_code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "integration_cache_http_request_duration",
		Help: "The amount of time it took to serve an http request per route",
	}, []string{"route"})
)

// MetricsMiddleware allows the passage of parameters into the metrics middleware
type MetricsMiddleware struct {
}

func (mw *MetricsMiddleware) RecordHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {

		start := time.Now()
		resp := &wrappedResponseWriter{w, http.StatusOK}

		next.ServeHTTP(resp, req)

		route := routeTemplate(req)

		statusCodeCounter.With(prometheus.Labels{
			"route":       route,
			"status_code": strconv.Itoa(resp.statusCode)}).Inc()

		requestDuration.With(prometheus.Labels{"route": route}).Observe(time.Since(start).Seconds())
	})
}

// The template keeps tenant ids out of the label values.
func routeTemplate(req *http.Request) string {
	route := mux.CurrentRoute(req)
	if route == nil {
		return "unknown"
	}

	template, err := route.GetPathTemplate()
	if err != nil {
		return "unknown"
	}

	return template
}

type wrappedResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (ww *wrappedResponseWriter) WriteHeader(status int) {
	ww.statusCode = status
	ww.ResponseWriter.WriteHeader(status)
}
