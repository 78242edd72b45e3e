package client

import (
	"sync"

	"github.com/telephony/integration-connector/internal/config"
	"github.com/telephony/integration-connector/internal/platform/logger"
)

// Lifecycle hands out one SharedClient at a time.  It is created once at
// startup and passed to whatever needs the client.
type Lifecycle struct {
	cfg     *config.Config
	factory func(*config.Config) *SharedClient

	mu     sync.Mutex
	client *SharedClient
}

func NewLifecycle(cfg *config.Config) *Lifecycle {
	return &Lifecycle{
		cfg:     cfg,
		factory: NewSharedClient,
	}
}

// GetSharedClient builds the client on first use and returns the same
// instance until CloseSharedClient is called.
func (l *Lifecycle) GetSharedClient() *SharedClient {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client == nil {
		l.client = l.factory(l.cfg)
	}

	return l.client
}

// CloseSharedClient releases the current client, if any.  The next
// GetSharedClient builds a fresh one.
func (l *Lifecycle) CloseSharedClient() error {
	l.mu.Lock()
	client := l.client
	l.client = nil
	l.mu.Unlock()

	if client == nil {
		return nil
	}

	err := client.Close()
	if err != nil {
		logger.LogError("Error closing the integration client", err)
	}

	return err
}
