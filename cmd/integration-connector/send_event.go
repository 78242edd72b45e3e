package main

import (
	"context"
	"encoding/json"

	"github.com/telephony/integration-connector/internal/client"
	"github.com/telephony/integration-connector/internal/config"
	"github.com/telephony/integration-connector/internal/domain"
	"github.com/telephony/integration-connector/internal/platform/logger"

	"github.com/sirupsen/logrus"
)

func startSendEvent(tenant string, eventType string, rawPayload string) {

	logger.InitLogger()

	var payload interface{}
	if err := json.Unmarshal([]byte(rawPayload), &payload); err != nil {
		logger.LogFatalError("Event payload is not valid json", err)
	}

	cfg := config.GetConfig()

	lifecycle := client.NewLifecycle(cfg)
	sharedClient := lifecycle.GetSharedClient()

	sharedClient.Dispatcher.SendToEnabledIntegrations(context.Background(), domain.TenantID(tenant), domain.EventType(eventType), payload)

	// Close waits for the detached deliveries to finish
	if err := lifecycle.CloseSharedClient(); err != nil {
		logger.LogError("Error while closing the shared client", err)
	}

	logger.Log.WithFields(logrus.Fields{"stats": sharedClient.Stats()}).Info("Event dispatched")
}
