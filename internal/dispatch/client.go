package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/your-org/adxrelay/pkg/config"
	"github.com/your-org/adxrelay/pkg/ingest"
)

// ErrConfigMissing marks an EnsureReady failure caused by absent credentials.
// It is recoverable: the initializer stays uninitialized and the next
// invocation re-attempts, so config supplied later (e.g. a hot reload) takes
// effect without a restart.
var ErrConfigMissing = errors.New("ingest configuration missing")

// SubmitterFactory constructs the ingest transport. Swapped for a stub in
// tests.
type SubmitterFactory func(cfg ingest.Config) (ingest.Submitter, error)

// ClientInitializer owns the lazily built, process-shared ingest client.
// The mutex covers the check-and-construct section only; it is never held
// across a submission, so submissions proceed concurrently once the client
// exists.
type ClientInitializer struct {
	mu      sync.Mutex
	client  ingest.Submitter
	cfg     config.IngestConfig
	factory SubmitterFactory
	logger  *zap.Logger
}

func NewClientInitializer(cfg config.IngestConfig, factory SubmitterFactory, logger *zap.Logger) *ClientInitializer {
	if factory == nil {
		factory = func(c ingest.Config) (ingest.Submitter, error) {
			return ingest.NewQueueClient(c)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientInitializer{cfg: cfg, factory: factory, logger: logger}
}

// EnsureReady returns the shared ingest client, constructing it exactly once.
// Missing configuration or a failed construction returns an error and leaves
// the initializer untouched so a later call can retry.
func (ci *ClientInitializer) EnsureReady() (ingest.Submitter, error) {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	if ci.client != nil {
		return ci.client, nil
	}

	required := []struct {
		name  string
		value string
	}{
		{"endpoint", ci.cfg.Endpoint},
		{"client id", ci.cfg.ClientID},
		{"client secret", ci.cfg.ClientSecret},
		{"tenant id", ci.cfg.TenantID},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, field.name)
		}
	}

	client, err := ci.factory(ingest.Config{
		QueueURL:     ci.cfg.Endpoint,
		ClientID:     ci.cfg.ClientID,
		ClientSecret: ci.cfg.ClientSecret,
		TenantID:     ci.cfg.TenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("construct ingest client: %w", err)
	}
	if client == nil {
		return nil, errors.New("ingest client factory returned nil")
	}

	ci.logger.Info("ingest client initialized")
	ci.client = client
	return ci.client, nil
}
