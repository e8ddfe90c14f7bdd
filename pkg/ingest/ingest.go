// Package ingest submits ingestion commands to the analytical store's
// ingestion queue. Submission is fire-and-forget: a successful enqueue is the
// only acknowledgment; the store drains its own queue and loads the source
// object on its side.
package ingest

import "context"

// Command instructs the store to load one source object.
type Command struct {
	Database              string            `json:"database"`
	Table                 string            `json:"table"`
	Format                string            `json:"format"`
	MappingReference      string            `json:"mappingReference,omitempty"`
	SourceURL             string            `json:"sourceUri"`
	SourceSizeBytes       int64             `json:"rawSizeBytes"`
	DeleteSourceOnSuccess bool              `json:"deleteSourceOnSuccess"`
	Tags                  []string          `json:"tags,omitempty"`
	AdditionalProperties  map[string]string `json:"additionalProperties,omitempty"`
}

// Submitter is the capability the dispatcher needs from an ingest transport.
type Submitter interface {
	Submit(ctx context.Context, cmd Command) error
}
