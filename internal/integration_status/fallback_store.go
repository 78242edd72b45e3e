package integration_status

import (
	"context"
	"fmt"
	"time"

	"github.com/telephony/integration-connector/internal/domain"
	"github.com/telephony/integration-connector/internal/integration_repository"
)

// FallbackStore is the single attempt database tier.
type FallbackStore struct {
	reader  integration_repository.IntegrationConfigReader
	timeout time.Duration
}

// NewFallbackStore accepts a nil reader; Read then always fails with
// ErrDatabaseUnavailable (cache-only mode).
func NewFallbackStore(reader integration_repository.IntegrationConfigReader, timeout time.Duration) *FallbackStore {
	return &FallbackStore{
		reader:  reader,
		timeout: timeout,
	}
}

func (fs *FallbackStore) Read(ctx context.Context, tenant domain.TenantID) (domain.Integrations, error) {
	if fs == nil || fs.reader == nil {
		return nil, ErrDatabaseUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, fs.timeout)
	defer cancel()

	integrations, _, err := fs.reader.GetTenantIntegrations(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("reading integrations for %s: %w", tenant, err)
	}

	if integrations == nil {
		integrations = make(domain.Integrations)
	}

	return integrations, nil
}
