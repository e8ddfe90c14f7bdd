package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/adxrelay/internal/dispatch"
	"github.com/your-org/adxrelay/pkg/config"
	"github.com/your-org/adxrelay/pkg/ingest"
)

type fakeSubmitter struct {
	err   error
	count int
}

func (f *fakeSubmitter) Submit(context.Context, ingest.Command) error {
	f.count++
	return f.err
}

func newTestDispatcher(submitter ingest.Submitter) *dispatch.Dispatcher {
	cfg := config.IngestConfig{
		Endpoint:         "https://acct.queue.core.windows.net/store-ingest",
		ClientID:         "app-id",
		ClientSecret:     "app-secret",
		TenantID:         "tenant-id",
		Database:         "analytics",
		Table:            "raw_events",
		MappingKind:      "json",
		MappingReference: "raw_events_mapping",
	}
	minDate := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	extractor := dispatch.NewTimeExtractor("date=", "2006-01-02", nil)
	return dispatch.NewDispatcher(dispatch.Params{
		Init: dispatch.NewClientInitializer(cfg, func(ingest.Config) (ingest.Submitter, error) {
			return submitter, nil
		}, nil),
		Filter:  dispatch.NewFilter("azuretmpfolder", minDate, extractor),
		Builder: dispatch.NewCommandBuilder(cfg, nil),
	})
}

func newTestHandler(submitter ingest.Submitter) *HTTPHandler {
	return NewHTTPHandler(newTestDispatcher(submitter), zap.NewNop(), 1<<20)
}

func postEvents(t *testing.T, h *HTTPHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleEventsSubmits(t *testing.T) {
	submitter := &fakeSubmitter{}
	rec := postEvents(t, newTestHandler(submitter), gridCreatedPayload)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, submitter.count)

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body["submitted"])
	assert.Equal(t, 0, body["failed"])
}

func TestHandleEventsSubmitsEncodedS3Key(t *testing.T) {
	// The fixture's key is URL-encoded ("date%3D..."); a fresh partitioned
	// object must still reach the store, not fall out as stale because the
	// marker went unrecognized.
	submitter := &fakeSubmitter{}
	rec := postEvents(t, newTestHandler(submitter), s3CreatedPayload)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, submitter.count)

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body["submitted"])
	assert.Equal(t, 0, body["skipped"])
}

func TestHandleEventsSkipIsSuccess(t *testing.T) {
	payload := `[{"eventType": "Microsoft.Storage.BlobDeleted",
		"data": {"url": "https://acct.blob.core.windows.net/raw/p.json", "contentLength": 5}}]`
	submitter := &fakeSubmitter{}
	rec := postEvents(t, newTestHandler(submitter), payload)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, submitter.count)

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body["skipped"])
}

func TestHandleEventsFailureMapsTo500(t *testing.T) {
	submitter := &fakeSubmitter{err: errors.New("enqueue refused")}
	rec := postEvents(t, newTestHandler(submitter), gridCreatedPayload)

	assert.Equal(t, http.StatusInternalServerError, rec.Code, "pusher must redeliver")
}

func TestHandleEventsValidationHandshake(t *testing.T) {
	payload := `[{"eventType": "Microsoft.EventGrid.SubscriptionValidationEvent",
		"data": {"validationCode": "code-123"}}]`
	submitter := &fakeSubmitter{}
	rec := postEvents(t, newTestHandler(submitter), payload)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, submitter.count)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "code-123", body["validationResponse"])
}

func TestHandleEventsBadPayload(t *testing.T) {
	rec := postEvents(t, newTestHandler(&fakeSubmitter{}), "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	newTestHandler(&fakeSubmitter{}).Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
