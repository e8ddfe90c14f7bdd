package dispatch

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// TimeExtractor pulls a partition timestamp out of an object path. The path
// convention places a marker substring (e.g. "date=") immediately before a
// fixed-width date, so extraction is: find the first marker occurrence, take
// the following layout-length characters, parse strictly.
//
// Matching is first-occurrence: a path that happens to contain the marker
// text before the real date segment extracts the wrong value silently.
// Deployments must pick a marker that cannot appear incidentally.
type TimeExtractor struct {
	marker string
	layout string
	logger *zap.Logger
}

// NewTimeExtractor builds an extractor. The layout is a Go reference layout
// such as "2006-01-02".
func NewTimeExtractor(marker, layout string, logger *zap.Logger) TimeExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return TimeExtractor{marker: marker, layout: layout, logger: logger}
}

// Extract returns the timestamp encoded in objectURL, normalized to UTC.
// When the marker is absent or the candidate does not parse, it returns the
// zero time, which orders before any real staleness cutoff, so unparseable
// paths are treated as maximally stale downstream.
func (e TimeExtractor) Extract(objectURL string) time.Time {
	if e.marker == "" {
		e.logger.Warn("date marker not configured, treating path as unparseable")
		return time.Time{}
	}

	idx := strings.Index(objectURL, e.marker)
	if idx < 0 {
		e.logger.Warn("date marker not found in object path",
			zap.String("marker", e.marker),
			zap.String("object_url", objectURL))
		return time.Time{}
	}

	candidate := objectURL[idx+len(e.marker):]
	if len(candidate) > len(e.layout) {
		candidate = candidate[:len(e.layout)]
	}
	candidate = strings.TrimSpace(candidate)

	ts, err := time.Parse(e.layout, candidate)
	if err != nil {
		e.logger.Warn("object path date failed to parse",
			zap.String("candidate", candidate),
			zap.String("layout", e.layout),
			zap.String("object_url", objectURL))
		return time.Time{}
	}
	return ts.UTC()
}
