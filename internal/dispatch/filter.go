package dispatch

import (
	"net/url"
	"strings"
	"time"
)

// RejectReason identifies which guard turned a notification away.
type RejectReason string

const (
	ReasonUnsupportedEventKind RejectReason = "unsupported-event-kind"
	ReasonBlacklistedPath      RejectReason = "blacklisted-path"
	ReasonStaleObject          RejectReason = "stale-object"
	ReasonEmptyObjectEvent     RejectReason = "empty-object-event"
)

// Verdict is the filter's decision. Timestamp carries the extracted path
// date for accepted notifications so the command builder does not re-parse.
type Verdict struct {
	Accepted  bool
	Reason    RejectReason
	Timestamp time.Time
}

// Filter runs the guard chain that decides whether a notification warrants
// ingestion. Guards are evaluated in order; the first rejection wins.
// Rejections are expected outcomes in a noisy event stream, not errors.
type Filter struct {
	blacklist string
	minDate   time.Time
	extractor TimeExtractor
}

func NewFilter(blacklist string, minDate time.Time, extractor TimeExtractor) *Filter {
	return &Filter{
		blacklist: blacklist,
		minDate:   minDate.UTC(),
		extractor: extractor,
	}
}

// Evaluate applies the guard chain to n.
func (f *Filter) Evaluate(n Notification) Verdict {
	if !n.IsObjectCreated() {
		return Verdict{Reason: ReasonUnsupportedEventKind}
	}

	decoded := n.ObjectURL
	if u, err := url.QueryUnescape(n.ObjectURL); err == nil {
		decoded = u
	}
	if f.blacklist != "" && strings.Contains(decoded, f.blacklist) {
		return Verdict{Reason: ReasonBlacklistedPath}
	}

	ts := f.extractor.Extract(n.ObjectURL)
	if ts.Before(f.minDate) {
		return Verdict{Reason: ReasonStaleObject, Timestamp: ts}
	}

	// Blob stores fire object-created twice for some write paths: once at
	// zero length when the blob is opened, once when the write completes.
	// Only the second one carries data worth ingesting. A negative length
	// means the envelope omitted it; the dispatcher resolves that after
	// these guards.
	if n.ContentLength == 0 {
		return Verdict{Reason: ReasonEmptyObjectEvent, Timestamp: ts}
	}

	return Verdict{Accepted: true, Timestamp: ts}
}
