package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/adxrelay/pkg/config"
	"github.com/your-org/adxrelay/pkg/ingest"
)

type stubSubmitter struct {
	submitted []ingest.Command
	err       error
	mu        sync.Mutex
}

func (s *stubSubmitter) Submit(_ context.Context, cmd ingest.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.submitted = append(s.submitted, cmd)
	return nil
}

func countingFactory(client ingest.Submitter, err error) (SubmitterFactory, *atomic.Int32) {
	var calls atomic.Int32
	return func(ingest.Config) (ingest.Submitter, error) {
		calls.Add(1)
		if err != nil {
			return nil, err
		}
		return client, nil
	}, &calls
}

func TestEnsureReadyConstructsOnce(t *testing.T) {
	stub := &stubSubmitter{}
	factory, calls := countingFactory(stub, nil)
	ci := NewClientInitializer(testIngestConfig(), factory, nil)

	first, err := ci.EnsureReady()
	require.NoError(t, err)
	second, err := ci.EnsureReady()
	require.NoError(t, err)

	assert.Same(t, first.(*stubSubmitter), second.(*stubSubmitter))
	assert.Equal(t, int32(1), calls.Load())
}

func TestEnsureReadyConcurrentFirstCalls(t *testing.T) {
	stub := &stubSubmitter{}
	factory, calls := countingFactory(stub, nil)
	ci := NewClientInitializer(testIngestConfig(), factory, nil)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client, err := ci.EnsureReady()
			assert.NoError(t, err)
			assert.NotNil(t, client)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestEnsureReadyMissingConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.IngestConfig)
	}{
		{"endpoint", func(c *config.IngestConfig) { c.Endpoint = "" }},
		{"client id", func(c *config.IngestConfig) { c.ClientID = " " }},
		{"client secret", func(c *config.IngestConfig) { c.ClientSecret = "" }},
		{"tenant id", func(c *config.IngestConfig) { c.TenantID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testIngestConfig()
			tt.mutate(&cfg)

			factory, calls := countingFactory(&stubSubmitter{}, nil)
			ci := NewClientInitializer(cfg, factory, nil)

			_, err := ci.EnsureReady()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfigMissing)
			assert.Equal(t, int32(0), calls.Load(), "factory must not run with missing config")
		})
	}
}

func TestEnsureReadyRetriesAfterFactoryFailure(t *testing.T) {
	boom := errors.New("transient")
	fail := true
	stub := &stubSubmitter{}
	var calls int
	ci := NewClientInitializer(testIngestConfig(), func(ingest.Config) (ingest.Submitter, error) {
		calls++
		if fail {
			return nil, boom
		}
		return stub, nil
	}, nil)

	_, err := ci.EnsureReady()
	require.ErrorIs(t, err, boom)

	// State stays uninitialized, so the next call re-attempts and succeeds.
	fail = false
	client, err := ci.EnsureReady()
	require.NoError(t, err)
	assert.Same(t, stub, client)
	assert.Equal(t, 2, calls)
}
