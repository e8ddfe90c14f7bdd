package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// AuditPublisher is the capability the dispatcher needs from the audit
// stream; satisfied by pkg/kafka.Producer.
type AuditPublisher interface {
	Publish(ctx context.Context, key []byte, value []byte, headers map[string]string) error
}

// AuditRecord is one dispatch outcome on the audit stream.
type AuditRecord struct {
	InvocationID string    `json:"invocation_id"`
	ObjectURL    string    `json:"object_url"`
	Outcome      string    `json:"outcome"`
	Reason       string    `json:"reason,omitempty"`
	Error        string    `json:"error,omitempty"`
	PathTime     time.Time `json:"path_time,omitempty"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

// publishAudit emits one record per dispatched notification. Best-effort:
// an audit failure never changes the invocation's outcome.
func (d *Dispatcher) publishAudit(ctx context.Context, invocationID string, n Notification, out Outcome) {
	if d.audit == nil {
		return
	}

	rec := AuditRecord{
		InvocationID: invocationID,
		ObjectURL:    n.ObjectURL,
		Outcome:      out.State.String(),
		Reason:       string(out.Reason),
		PathTime:     out.Timestamp,
		DispatchedAt: time.Now().UTC(),
	}
	if out.Err != nil {
		rec.Error = out.Err.Error()
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		d.logger.Warn("marshal audit record failed", zap.Error(err))
		return
	}

	headers := map[string]string{"outcome": rec.Outcome}
	if err := d.audit.Publish(ctx, []byte(invocationID), payload, headers); err != nil {
		d.logger.Warn("audit publish failed",
			zap.String("invocation_id", invocationID),
			zap.Error(err))
	}
}
