package integration_cache

import (
	"context"
	"time"

	"github.com/telephony/integration-connector/internal/platform/logger"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const listenerPingInterval = 90 * time.Second

type notificationHandler interface {
	HandleNotification(ctx context.Context, payload string) error
}

// InvalidationListener forwards postgres NOTIFY messages to the cache service.
type InvalidationListener struct {
	listener *pq.Listener
	channel  string
	handler  notificationHandler
}

func NewInvalidationListener(connectionString string, channel string, service *Service) (*InvalidationListener, error) {
	log := logger.Log.WithFields(logrus.Fields{"channel": channel})

	listener := pq.NewListener(connectionString, 10*time.Second, time.Minute,
		func(event pq.ListenerEventType, err error) {
			if err != nil {
				log.WithFields(logrus.Fields{"error": err, "event": event}).Warn("Invalidation listener connection event")
			}
		})

	if err := listener.Listen(channel); err != nil {
		listener.Close()
		return nil, err
	}

	log.Info("Listening for integration config changes")

	return &InvalidationListener{
		listener: listener,
		channel:  channel,
		handler:  service,
	}, nil
}

func (l *InvalidationListener) Run(ctx context.Context) {
	runNotificationLoop(ctx, l.listener.Notify, l.listener.Ping, l.handler)
}

func (l *InvalidationListener) Close() error {
	return l.listener.Close()
}

func runNotificationLoop(ctx context.Context, notifications <-chan *pq.Notification, ping func() error, handler notificationHandler) {
	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case notification, ok := <-notifications:
			if !ok {
				return
			}

			// pq delivers nil after re-establishing the connection
			payload := ""
			if notification != nil {
				payload = notification.Extra
			}

			if err := handler.HandleNotification(ctx, payload); err != nil {
				logger.Log.WithFields(logrus.Fields{"error": err, "payload": payload}).Warn("Unable to apply integration config change")
			}

		case <-ticker.C:
			if err := ping(); err != nil {
				logger.Log.WithFields(logrus.Fields{"error": err}).Warn("Invalidation listener ping failed")
			}
		}
	}
}
