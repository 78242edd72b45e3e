package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/telephony/integration-connector/internal/domain"
	"github.com/telephony/integration-connector/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var errUnexpectedDeliveryStatus = errors.New("integration endpoint rejected the event")

type EventSender interface {
	Send(context.Context, domain.DeliveryTask) error
}

type deliveryMessage struct {
	EnterpriseNumber domain.TenantID  `json:"enterprise_number"`
	EventType        domain.EventType `json:"event_type"`
	Payload          interface{}      `json:"payload"`
}

// HTTPEventSender posts events to a single integration endpoint
type HTTPEventSender struct {
	client *http.Client
	url    string
}

func NewHTTPEventSender(client *http.Client, url string) *HTTPEventSender {
	return &HTTPEventSender{client: client, url: url}
}

func (s *HTTPEventSender) Send(ctx context.Context, task domain.DeliveryTask) error {
	jsonBytes, err := json.Marshal(deliveryMessage{
		EnterpriseNumber: task.TenantID,
		EventType:        task.EventType,
		Payload:          task.Payload,
	})
	if err != nil {
		return fmt.Errorf("unable to marshal %s event: %w", task.EventType, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(jsonBytes))
	if err != nil {
		return err
	}

	requestID, err := uuid.NewRandom()
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(logger.RequestIDHeader, requestID.String())

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d (request_id %s)", errUnexpectedDeliveryStatus, resp.StatusCode, requestID)
	}

	return nil
}

// PlaceholderEventSender accepts events for integrations that have no
// delivery endpoint yet.
type PlaceholderEventSender struct{}

func (PlaceholderEventSender) Send(ctx context.Context, task domain.DeliveryTask) error {
	logger.Log.WithFields(logrus.Fields{
		"enterprise_number": task.TenantID,
		"integration_type":  task.IntegrationType,
		"event_type":        task.EventType,
	}).Debug("No delivery endpoint for integration, would send event")
	return nil
}

// NewHTTPEventSenders builds one HTTPEventSender per configured endpoint.
func NewHTTPEventSenders(client *http.Client, endpoints map[string]string) map[domain.IntegrationType]EventSender {
	senders := make(map[domain.IntegrationType]EventSender, len(endpoints))
	for integrationType, url := range endpoints {
		if url == "" {
			continue
		}
		senders[domain.IntegrationType(integrationType)] = NewHTTPEventSender(client, url)
	}
	return senders
}
