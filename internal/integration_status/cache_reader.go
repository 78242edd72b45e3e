package integration_status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/telephony/integration-connector/internal/domain"
	"github.com/telephony/integration-connector/internal/platform/logger"

	"github.com/sirupsen/logrus"
)

type cacheResponse struct {
	Integrations *domain.Integrations `json:"integrations"`
	AgeSeconds   float64              `json:"age_seconds"`
}

// CacheReader reads tenant integration status from the cache sidecar.
// Every attempt is bounded by timeout; only transport failures are retried.
type CacheReader struct {
	client      *http.Client
	baseUrl     string
	timeout     time.Duration
	retryPolicy RetryPolicy
}

func NewCacheReader(client *http.Client, baseUrl string, timeout time.Duration, retryPolicy RetryPolicy) *CacheReader {
	return &CacheReader{
		client:      client,
		baseUrl:     strings.TrimRight(baseUrl, "/"),
		timeout:     timeout,
		retryPolicy: retryPolicy,
	}
}

func (cr *CacheReader) Read(ctx context.Context, tenant domain.TenantID) (domain.TenantIntegrationStatus, error) {

	if cr == nil || cr.client == nil {
		return domain.TenantIntegrationStatus{}, fmt.Errorf("%w: http client not initialized", ErrCacheUnavailable)
	}

	log := logger.Log.WithFields(logrus.Fields{"enterprise_number": tenant})

	attempts := cr.retryPolicy.Attempts()

	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := cr.retryPolicy.Wait(ctx, attempt-1); err != nil {
				return domain.TenantIntegrationStatus{}, fmt.Errorf("%w: %s", ErrCacheUnavailable, err)
			}
		}

		status, err := cr.readOnce(ctx, tenant)
		if err == nil {
			metrics.cacheAttemptCounter.WithLabelValues("success").Inc()
			return status, nil
		}

		if !isRetryableCacheError(err) {
			metrics.cacheAttemptCounter.WithLabelValues("rejected").Inc()
			log.WithFields(logrus.Fields{"error": err}).Warn("Integration cache returned an unusable response")
			return domain.TenantIntegrationStatus{}, err
		}

		metrics.cacheAttemptCounter.WithLabelValues("unavailable").Inc()
		log.WithFields(logrus.Fields{"error": err, "attempt": attempt + 1}).Warn("Integration cache request failed")

		lastErr = err
	}

	return domain.TenantIntegrationStatus{}, fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}

func (cr *CacheReader) readOnce(ctx context.Context, tenant domain.TenantID) (domain.TenantIntegrationStatus, error) {

	ctx, cancel := context.WithTimeout(ctx, cr.timeout)
	defer cancel()

	requestUrl := fmt.Sprintf("%s/integrations/%s", cr.baseUrl, url.PathEscape(string(tenant)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestUrl, nil)
	if err != nil {
		return domain.TenantIntegrationStatus{}, fmt.Errorf("%w: %s", ErrMalformedCacheResponse, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := cr.client.Do(req)
	if err != nil {
		return domain.TenantIntegrationStatus{}, fmt.Errorf("%w: %s", ErrCacheUnavailable, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
		var body cacheResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			if ctx.Err() != nil {
				return domain.TenantIntegrationStatus{}, fmt.Errorf("%w: %s", ErrCacheUnavailable, err)
			}
			return domain.TenantIntegrationStatus{}, fmt.Errorf("%w: %s", ErrMalformedCacheResponse, err)
		}

		if body.Integrations == nil {
			return domain.TenantIntegrationStatus{}, fmt.Errorf("%w: missing integrations", ErrMalformedCacheResponse)
		}

		return domain.TenantIntegrationStatus{
			TenantID:     tenant,
			Integrations: *body.Integrations,
			Source:       domain.SourceCache,
			AgeSeconds:   body.AgeSeconds,
		}, nil

	case http.StatusNotFound:
		// An unprovisioned tenant is a valid, empty answer
		return domain.TenantIntegrationStatus{
			TenantID:     tenant,
			Integrations: make(domain.Integrations),
			Source:       domain.SourceCache,
		}, nil

	default:
		return domain.TenantIntegrationStatus{}, fmt.Errorf("%w: %d", ErrUnexpectedCacheStatus, resp.StatusCode)
	}
}
