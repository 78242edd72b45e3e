package integration_status

import (
	"errors"
)

var (
	// ErrCacheUnavailable covers timeouts and connection failures against the
	// cache sidecar.  Only these are retried.
	ErrCacheUnavailable       = errors.New("integration cache unavailable")
	ErrUnexpectedCacheStatus  = errors.New("unexpected integration cache response status")
	ErrMalformedCacheResponse = errors.New("malformed integration cache response")
	ErrDatabaseUnavailable    = errors.New("integration database unavailable")
)

func isRetryableCacheError(err error) bool {
	return errors.Is(err, ErrCacheUnavailable)
}
