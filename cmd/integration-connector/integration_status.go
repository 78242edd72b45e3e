package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/telephony/integration-connector/internal/client"
	"github.com/telephony/integration-connector/internal/config"
	"github.com/telephony/integration-connector/internal/domain"
	"github.com/telephony/integration-connector/internal/platform/logger"
)

func startIntegrationStatus(tenant string, enabledOnly bool) {

	logger.InitLogger()

	cfg := config.GetConfig()

	lifecycle := client.NewLifecycle(cfg)
	defer lifecycle.CloseSharedClient()

	sharedClient := lifecycle.GetSharedClient()

	var output interface{}
	if enabledOnly {
		output = sharedClient.Resolver.GetEnabledIntegrations(context.Background(), domain.TenantID(tenant))
	} else {
		output = sharedClient.Resolver.GetStatus(context.Background(), domain.TenantID(tenant))
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		fmt.Fprintln(os.Stderr, "Unable to encode the integration status:", err)
	}
}
