package audit

import (
	"context"
	"log/slog"
	"time"

	"helios/internal/platform/metrics"
	"helios/pkg/domain"
	"helios/pkg/requestcontext"
)

// Publisher mirrors persisted records to a stream for compliance tooling.
// Implementations are best-effort; the recorder never waits on them.
type Publisher interface {
	Publish(ctx context.Context, rec Record)
}

// Recorder writes the audit trail. It is deliberately infallible from the
// caller's point of view: a failed write is logged and counted, never
// surfaced, so an audit outage cannot take the proxy path down with it.
type Recorder struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type RecorderOption func(*Recorder)

// WithPublisher attaches a stream publisher for record fan-out.
func WithPublisher(p Publisher) RecorderOption {
	return func(r *Recorder) { r.publisher = p }
}

// WithMetrics attaches failure counters.
func WithMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

func NewRecorder(store Store, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record fills in identity and timing defaults, then appends the record.
// The context should already be detached from the request lifecycle so a
// client disconnect cannot cancel the write.
func (r *Recorder) Record(ctx context.Context, rec Record) {
	if rec.ID.IsNil() {
		rec.ID = domain.NewAuditRecordID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.RequestID == "" {
		rec.RequestID = requestcontext.RequestID(ctx)
	}

	if err := rec.Validate(); err != nil {
		r.fail(ctx, rec, err)
		return
	}
	if err := r.store.Append(ctx, rec); err != nil {
		r.fail(ctx, rec, err)
		return
	}
	if r.publisher != nil {
		r.publisher.Publish(ctx, rec)
	}
}

// List exposes the trail for the admin read API.
func (r *Recorder) List(ctx context.Context, q Query) ([]Record, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultQueryLimit
	}
	if q.Limit > MaxQueryLimit {
		q.Limit = MaxQueryLimit
	}
	return r.store.List(ctx, q)
}

func (r *Recorder) fail(ctx context.Context, rec Record, err error) {
	if r.metrics != nil {
		r.metrics.AuditWriteFailures.Inc()
	}
	r.logger.ErrorContext(ctx, "audit write failed",
		"error", err,
		"actor_type", rec.ActorType,
		"family", rec.Family,
		"method", rec.Method,
		"status", rec.StatusCode,
		"request_id", rec.RequestID,
	)
}
