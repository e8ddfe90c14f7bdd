package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/adxrelay/pkg/storage/objectstore"
)

// State is a Dispatch invocation's terminal state.
type State int

const (
	// StateSkipped means a filter guard turned the notification away.
	// A normal outcome, not an error.
	StateSkipped State = iota
	// StateSubmitted means the ingest command was acknowledged by the
	// store's ingestion queue.
	StateSubmitted
	// StateFailed means an infrastructure problem (client not ready,
	// submission error). The transport should redeliver.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StateFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// Outcome is what one Dispatch invocation produced. Err is set only for
// StateFailed; Reason only for StateSkipped.
type Outcome struct {
	State     State
	Reason    RejectReason
	Timestamp time.Time
	Err       error
}

// Dispatcher is the entry point: one notification in, one Outcome out.
type Dispatcher struct {
	init    *ClientInitializer
	filter  *Filter
	builder *CommandBuilder
	store   objectstore.Client
	audit   AuditPublisher
	tracer  trace.Tracer
	logger  *zap.Logger
}

// Params collects the Dispatcher's collaborators. Store and Audit are
// optional.
type Params struct {
	Init    *ClientInitializer
	Filter  *Filter
	Builder *CommandBuilder
	Store   objectstore.Client
	Audit   AuditPublisher
	Logger  *zap.Logger
}

func NewDispatcher(p Params) *Dispatcher {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		init:    p.Init,
		filter:  p.Filter,
		builder: p.Builder,
		store:   p.Store,
		audit:   p.Audit,
		tracer:  otel.Tracer("github.com/your-org/adxrelay/internal/dispatch"),
		logger:  logger,
	}
}

// Dispatch runs the decision pipeline for one notification: ensure the
// ingest client is ready, filter, build, submit. Invocations are independent
// and may run concurrently; nothing here blocks on another notification.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) Outcome {
	ctx, span := d.tracer.Start(ctx, "dispatch.Dispatch")
	defer span.End()

	invocationID := uuid.NewString()
	log := d.logger.With(
		zap.String("invocation_id", invocationID),
		zap.String("object_url", n.ObjectURL),
	)

	client, err := d.init.EnsureReady()
	if err != nil {
		log.Error("ingest client not ready", zap.Error(err))
		span.SetStatus(codes.Error, "client not ready")
		return d.finish(ctx, invocationID, n, Outcome{State: StateFailed, Err: err})
	}

	// An unknown length (-1) sails past the empty-object guard here; it is
	// resolved below, after the cheap guards, so a notification the filter
	// rejects anyway never costs a store round-trip.
	verdict := d.filter.Evaluate(n)
	if !verdict.Accepted {
		log.Info("notification skipped", zap.String("reason", string(verdict.Reason)))
		return d.finish(ctx, invocationID, n, Outcome{
			State:     StateSkipped,
			Reason:    verdict.Reason,
			Timestamp: verdict.Timestamp,
		})
	}

	if n.ContentLength < 0 {
		d.resolveSize(ctx, &n, log)
		if n.ContentLength == 0 {
			log.Info("notification skipped", zap.String("reason", string(ReasonEmptyObjectEvent)))
			return d.finish(ctx, invocationID, n, Outcome{
				State:     StateSkipped,
				Reason:    ReasonEmptyObjectEvent,
				Timestamp: verdict.Timestamp,
			})
		}
	}

	cmd := d.builder.Build(n, verdict.Timestamp)
	if err := client.Submit(ctx, cmd); err != nil {
		err = fmt.Errorf("submit ingest command for %s: %w", n.ObjectURL, err)
		log.Error("ingest submission failed", zap.Error(err))
		span.SetStatus(codes.Error, "submission failed")
		return d.finish(ctx, invocationID, n, Outcome{State: StateFailed, Err: err})
	}

	log.Info("ingest command submitted",
		zap.String("database", cmd.Database),
		zap.String("table", cmd.Table),
		zap.Int64("size_bytes", cmd.SourceSizeBytes),
		zap.Time("path_time", verdict.Timestamp),
	)
	return d.finish(ctx, invocationID, n, Outcome{
		State:     StateSubmitted,
		Timestamp: verdict.Timestamp,
	})
}

// resolveSize fills in a content length the envelope omitted. When no lookup
// is possible the size collapses to zero and the caller rejects as an
// empty-object event, which is the fail-safe direction.
func (d *Dispatcher) resolveSize(ctx context.Context, n *Notification, log *zap.Logger) {
	if d.store == nil || n.Bucket == "" || n.Key == "" {
		n.ContentLength = 0
		return
	}
	size, err := d.store.Stat(ctx, n.Bucket, n.Key)
	if err != nil {
		log.Warn("object size lookup failed", zap.Error(err))
		n.ContentLength = 0
		return
	}
	n.ContentLength = size
}

func (d *Dispatcher) finish(ctx context.Context, invocationID string, n Notification, out Outcome) Outcome {
	d.publishAudit(ctx, invocationID, n, out)
	return out
}
