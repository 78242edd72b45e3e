package integration_repository

import (
	"context"

	"github.com/telephony/integration-connector/internal/domain"
)

// IntegrationConfigReader reads the per-tenant integrations_config document
// and projects it into the flat enabled/disabled map.
type IntegrationConfigReader interface {
	// GetTenantIntegrations reports found=false when the tenant has no
	// active record or the record holds no configuration document.
	GetTenantIntegrations(context.Context, domain.TenantID) (integrations domain.Integrations, found bool, err error)
	GetAllTenantIntegrations(context.Context) (map[domain.TenantID]domain.Integrations, error)
}
