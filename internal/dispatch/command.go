package dispatch

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/adxrelay/pkg/config"
	"github.com/your-org/adxrelay/pkg/ingest"
)

// MappingKind is the schema interpretation the store applies to the source
// object's bytes.
type MappingKind int

const (
	MappingJSON MappingKind = iota
	MappingCSV
	MappingAvro
)

// ParseMappingKind maps a configured kind name to its variant. Unrecognized
// or empty names fall back to JSON; ok is false so callers can surface the
// fallback. Whether that fallback is deliberate policy or an accident of the
// original deployment is unconfirmed, so it is kept loud but non-fatal.
func ParseMappingKind(s string) (kind MappingKind, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return MappingJSON, true
	case "csv":
		return MappingCSV, true
	case "avro":
		return MappingAvro, true
	default:
		return MappingJSON, false
	}
}

func (k MappingKind) String() string {
	switch k {
	case MappingCSV:
		return "csv"
	case MappingAvro:
		return "avro"
	default:
		return "json"
	}
}

// creationTimeProperty is the provenance key the store records alongside the
// ingested data; the single ingest tag carries the same value for lineage.
const creationTimeProperty = "creationTime"

// CommandBuilder assembles ingest commands from configuration and the
// notification's parsed attributes. Pure construction, no side effects.
type CommandBuilder struct {
	cfg  config.IngestConfig
	kind MappingKind
}

func NewCommandBuilder(cfg config.IngestConfig, logger *zap.Logger) *CommandBuilder {
	kind, ok := ParseMappingKind(cfg.MappingKind)
	if !ok && logger != nil {
		logger.Warn("unrecognized mapping kind, falling back to json",
			zap.String("mapping_kind", cfg.MappingKind))
	}
	return &CommandBuilder{cfg: cfg, kind: kind}
}

// Build produces the command for one accepted notification. The source token
// is appended to the object URL verbatim, with no re-encoding.
func (b *CommandBuilder) Build(n Notification, ts time.Time) ingest.Command {
	stamp := ts.UTC().Format(time.RFC3339)
	return ingest.Command{
		Database:              b.cfg.Database,
		Table:                 b.cfg.Table,
		Format:                b.kind.String(),
		MappingReference:      b.cfg.MappingReference,
		SourceURL:             n.ObjectURL + b.cfg.SourceToken,
		SourceSizeBytes:       n.ContentLength,
		DeleteSourceOnSuccess: b.cfg.DeleteSourceOnSuccess,
		Tags:                  []string{stamp},
		AdditionalProperties:  map[string]string{creationTimeProperty: stamp},
	}
}
