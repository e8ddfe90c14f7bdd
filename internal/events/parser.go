package events

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/your-org/adxrelay/internal/dispatch"
)

const eventSubscriptionValidation = "Microsoft.EventGrid.SubscriptionValidationEvent"

// gridEvent is a minimal model of an Event Grid storage event.
type gridEvent struct {
	EventType string `json:"eventType"`
	Subject   string `json:"subject"`
	Data      struct {
		URL            string `json:"url"`
		ContentLength  *int64 `json:"contentLength"`
		ValidationCode string `json:"validationCode"`
	} `json:"data"`
}

// s3Event is a minimal model of an S3-style bucket notification; MinIO emits
// the same shape.
type s3Event struct {
	Records []struct {
		EventName string `json:"eventName"`
		S3        struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key  string `json:"key"`
				Size *int64 `json:"size"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// ValidationCode extracts the Event Grid subscription-validation handshake
// code, if raw is a validation request.
func ValidationCode(raw []byte) (string, bool) {
	for _, evt := range decodeGridEvents(raw) {
		if evt.EventType == eventSubscriptionValidation && evt.Data.ValidationCode != "" {
			return evt.Data.ValidationCode, true
		}
	}
	return "", false
}

// ParseNotifications normalizes an inbound payload (Event Grid event or
// array, or S3-style Records envelope) into notifications. Fields beyond
// event kind, object URL, and content length are ignored.
func ParseNotifications(raw []byte) ([]dispatch.Notification, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, fmt.Errorf("empty event payload")
	}

	if strings.HasPrefix(trimmed, "{") {
		var probe struct {
			Records   []json.RawMessage `json:"Records"`
			EventType string            `json:"eventType"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, fmt.Errorf("unmarshal event payload: %w", err)
		}
		if len(probe.Records) > 0 {
			return parseS3Envelope(raw)
		}
	}

	grid := decodeGridEvents(raw)
	if len(grid) == 0 {
		return nil, fmt.Errorf("unrecognized event payload")
	}

	out := make([]dispatch.Notification, 0, len(grid))
	for _, evt := range grid {
		if evt.EventType == eventSubscriptionValidation {
			continue
		}
		n := dispatch.Notification{
			EventKind:     evt.EventType,
			ObjectURL:     evt.Data.URL,
			ContentLength: -1,
			Raw:           raw,
		}
		if evt.Data.ContentLength != nil {
			n.ContentLength = *evt.Data.ContentLength
		}
		n.Bucket, n.Key = splitBlobURL(evt.Data.URL)
		out = append(out, n)
	}
	return out, nil
}

func decodeGridEvents(raw []byte) []gridEvent {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var evts []gridEvent
		if err := json.Unmarshal(raw, &evts); err != nil {
			return nil
		}
		return evts
	}
	var evt gridEvent
	if err := json.Unmarshal(raw, &evt); err != nil || evt.EventType == "" {
		return nil
	}
	return []gridEvent{evt}
}

func parseS3Envelope(raw []byte) ([]dispatch.Notification, error) {
	var evt s3Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, fmt.Errorf("unmarshal s3 event: %w", err)
	}

	out := make([]dispatch.Notification, 0, len(evt.Records))
	for _, rec := range evt.Records {
		kind := rec.EventName
		// AWS omits the scheme prefix MinIO includes; normalize so the
		// created-event check sees one shape.
		if kind != "" && !strings.HasPrefix(kind, "s3:") {
			kind = "s3:" + kind
		}

		// Bucket notifications URL-encode the key. Decode before composing
		// the object URL so marker extraction and the blacklist see the
		// same path shape as blob-store events.
		key := rec.S3.Object.Key
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}

		n := dispatch.Notification{
			EventKind:     kind,
			ObjectURL:     fmt.Sprintf("s3://%s/%s", rec.S3.Bucket.Name, key),
			ContentLength: -1,
			Bucket:        rec.S3.Bucket.Name,
			Key:           key,
			Raw:           raw,
		}
		if rec.S3.Object.Size != nil {
			n.ContentLength = *rec.S3.Object.Size
		}
		out = append(out, n)
	}
	return out, nil
}

// splitBlobURL derives container and blob path from a blob URL such as
// https://account.blob.core.windows.net/container/path/to/blob.
func splitBlobURL(blobURL string) (bucket, key string) {
	u, err := url.Parse(blobURL)
	if err != nil {
		return "", ""
	}
	path := strings.TrimPrefix(u.Path, "/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 {
		return "", ""
	}
	key = parts[1]
	if k, err := url.PathUnescape(parts[1]); err == nil {
		key = k
	}
	return parts[0], key
}
