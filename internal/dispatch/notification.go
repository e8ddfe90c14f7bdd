package dispatch

import "encoding/json"

// EventBlobCreated is the event kind that marks an object-created
// notification. Anything else is skipped by the filter.
const EventBlobCreated = "Microsoft.Storage.BlobCreated"

// s3EventCreatedPrefix covers S3-style bucket notifications (MinIO emits the
// same shape), which encode the operation in the event name.
const s3EventCreatedPrefix = "s3:ObjectCreated:"

// Notification is one inbound object-created message, normalized from
// whatever envelope the transport delivered. It is consumed once per
// Dispatch invocation and never mutated by the caller afterwards.
type Notification struct {
	EventKind string
	ObjectURL string

	// ContentLength is the object size in bytes, or -1 when the envelope
	// did not carry one. The dispatcher resolves -1 before filtering.
	ContentLength int64

	// Bucket and Key identify the object for the optional size lookup.
	// They may be empty when the envelope only carried a URL.
	Bucket string
	Key    string

	Raw json.RawMessage
}

// IsObjectCreated reports whether the event kind is one of the recognized
// object-created discriminators.
func (n Notification) IsObjectCreated() bool {
	if n.EventKind == EventBlobCreated {
		return true
	}
	return len(n.EventKind) > len(s3EventCreatedPrefix) &&
		n.EventKind[:len(s3EventCreatedPrefix)] == s3EventCreatedPrefix
}
