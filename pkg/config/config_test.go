package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "adxrelay", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "json", cfg.Ingest.MappingKind)
	assert.Equal(t, "date=", cfg.Filter.DateMarker)
	assert.Equal(t, "2006-01-02", cfg.Filter.DateLayout)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Events.QueueURL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("INGEST_ENDPOINT", "https://acct.queue.core.windows.net/store-ingest")
	t.Setenv("INGEST_DELETE_SOURCE", "true")
	t.Setenv("FILTER_BLACKLIST", "azuretmpfolder")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://acct.queue.core.windows.net/store-ingest", cfg.Ingest.Endpoint)
	assert.True(t, cfg.Ingest.DeleteSourceOnSuccess)
	assert.Equal(t, "azuretmpfolder", cfg.Filter.Blacklist)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestMinimumDate(t *testing.T) {
	f := FilterConfig{MinDate: "2023-01-01", MinDateLayout: "2006-01-02"}
	ts, err := f.MinimumDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), ts)

	f.MinDate = ""
	ts, err = f.MinimumDate()
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	f.MinDate = "01/02/2023"
	_, err = f.MinimumDate()
	assert.Error(t, err)
}
