package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the full runtime configuration for the relay service.
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	Ingest  IngestConfig
	Filter  FilterConfig
	Events  EventsConfig
	Kafka   KafkaConfig
	Storage StorageConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"adxrelay"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
}

type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	MaxBodyBytes int64         `env:"HTTP_MAX_BODY_BYTES" envDefault:"1048576"`
}

// IngestConfig describes the analytical store destination and the
// service-principal credentials used to reach its ingestion queue.
type IngestConfig struct {
	Endpoint     string `env:"INGEST_ENDPOINT"`
	ClientID     string `env:"INGEST_CLIENT_ID"`
	ClientSecret string `env:"INGEST_CLIENT_SECRET"`
	TenantID     string `env:"INGEST_TENANT_ID"`

	Database         string `env:"INGEST_DATABASE"`
	Table            string `env:"INGEST_TABLE"`
	MappingKind      string `env:"INGEST_MAPPING_KIND" envDefault:"json"`
	MappingReference string `env:"INGEST_MAPPING_REF"`

	DeleteSourceOnSuccess bool `env:"INGEST_DELETE_SOURCE" envDefault:"false"`

	// SourceToken is appended verbatim to the object URL so the store can
	// read the source blob (typically a SAS token including the leading "?").
	SourceToken string `env:"INGEST_SOURCE_TOKEN"`
}

// FilterConfig holds the rules that decide whether a notification is worth
// ingesting. Date layouts are Go reference layouts (e.g. 2006-01-02).
type FilterConfig struct {
	MinDate       string `env:"FILTER_MIN_DATE"`
	MinDateLayout string `env:"FILTER_MIN_DATE_LAYOUT" envDefault:"2006-01-02"`
	DateMarker    string `env:"FILTER_DATE_MARKER" envDefault:"date="`
	DateLayout    string `env:"FILTER_DATE_LAYOUT" envDefault:"2006-01-02"`
	Blacklist     string `env:"FILTER_BLACKLIST"`
}

// MinimumDate parses the staleness cutoff. An empty MinDate yields the zero
// time, which disables the staleness guard entirely: even unparseable paths
// pass, since their sentinel equals the cutoff rather than preceding it.
func (f FilterConfig) MinimumDate() (time.Time, error) {
	if f.MinDate == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(f.MinDateLayout, f.MinDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse FILTER_MIN_DATE %q: %w", f.MinDate, err)
	}
	return ts.UTC(), nil
}

// EventsConfig configures the inbound storage-event queue poller. An empty
// QueueURL disables polling (webhook-only deployment).
type EventsConfig struct {
	QueueURL          string        `env:"EVENTS_QUEUE_URL"`
	BatchSize         int32         `env:"EVENTS_BATCH_SIZE" envDefault:"16"`
	VisibilityTimeout int32         `env:"EVENTS_VISIBILITY_TIMEOUT_SECONDS" envDefault:"60"`
	PollInterval      time.Duration `env:"EVENTS_POLL_INTERVAL" envDefault:"1s"`
	ReceiveTimeout    time.Duration `env:"EVENTS_RECEIVE_TIMEOUT" envDefault:"30s"`
}

// KafkaConfig configures the optional dispatch audit stream. Empty Brokers
// disables it.
type KafkaConfig struct {
	Brokers          []string      `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic       string        `env:"KAFKA_AUDIT_TOPIC" envDefault:"adxrelay.dispatch"`
	Retries          int           `env:"KAFKA_RETRIES" envDefault:"3"`
	CompressionCodec string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize        int           `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	BatchTimeout     time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"1s"`
}

// StorageConfig configures the optional object-store client used to recover
// an object's size when the notification envelope omits it. An empty Endpoint
// disables the lookup.
type StorageConfig struct {
	Endpoint  string `env:"STORAGE_ENDPOINT"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	AccessKey string `env:"STORAGE_ACCESS_KEY"`
	SecretKey string `env:"STORAGE_SECRET_KEY"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"true"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=adxrelay"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
