// Package gateway dispatches authenticated callers to upstream admin APIs
// and owns the bookkeeping around every proxied call.
package gateway

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"helios/internal/actor"
	"helios/internal/audit"
	"helios/internal/dirsync"
	"helios/internal/platform/metrics"
	"helios/internal/registry"
	"helios/internal/upstream"
	dErrors "helios/pkg/domain-errors"
	"helios/pkg/requestcontext"
)

// Request is one inbound gateway call, already stripped of transport details
// the dispatcher does not need.
type Request struct {
	Credentials actor.Credentials
	Method      string
	// Path is everything after the /gateway mount point.
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// Response is the relayed result for the caller. Either the upstream's
// response verbatim, or absent when Dispatch returns a gateway error.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Dispatcher runs a request through resolve, route, invoke, and the
// best-effort side effects. Exactly one audit record is written per
// dispatched request, on every path including pre-upstream refusals.
type Dispatcher struct {
	resolver *actor.Resolver
	registry *registry.Registry
	invoker  *upstream.Invoker
	recorder *audit.Recorder
	sync     *dirsync.Service
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type DispatcherOption func(*Dispatcher)

func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func NewDispatcher(
	resolver *actor.Resolver,
	reg *registry.Registry,
	invoker *upstream.Invoker,
	recorder *audit.Recorder,
	sync *dirsync.Service,
	opts ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		resolver: resolver,
		registry: reg,
		invoker:  invoker,
		recorder: recorder,
		sync:     sync,
		tracer:   otel.Tracer("helios/gateway"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch proxies one call. A returned error is always a gateway-originated
// refusal carrying a domain error code; upstream 4xx responses come back as a
// normal Response, untouched.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Response, error) {
	ctx, span := d.tracer.Start(ctx, "gateway.dispatch",
		trace.WithAttributes(
			attribute.String("gateway.method", req.Method),
			attribute.String("gateway.path", req.Path),
		),
	)
	defer span.End()

	start := time.Now()

	actorCtx, err := d.resolver.Resolve(ctx, req.Credentials)
	if err != nil {
		d.finishRefused(ctx, req, actor.Context{}, "", start, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("gateway.actor_type", string(actorCtx.Type)),
		attribute.String("gateway.organization_id", actorCtx.OrganizationID.String()),
	)

	match, err := d.registry.Route(req.Path)
	if err != nil {
		d.finishRefused(ctx, req, actorCtx, "", start, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("gateway.family", match.Family.ID))

	// A caller disconnect must not abort the upstream call or its
	// bookkeeping; only the relay depends on the caller. The invoker's own
	// timeout still bounds the call.
	side := context.WithoutCancel(ctx)

	outcome, err := d.invoker.Invoke(side, upstream.Request{
		OrganizationID: actorCtx.OrganizationID,
		Method:         req.Method,
		BaseURL:        match.Family.BaseURL,
		Path:           match.RemainingPath,
		RawQuery:       req.RawQuery,
		Scope:          match.Family.RequiredScope,
		Header:         req.Header,
		Body:           req.Body,
	})
	if err != nil {
		d.finishRefused(ctx, req, actorCtx, match.Family.ID, start, err)
		return nil, err
	}

	// The outcome is fixed; side effects run in their own boundaries.
	d.recorder.Record(side, d.buildRecord(ctx, req, actorCtx, match.Family.ID, outcome.StatusCode, start))
	if outcome.Success() {
		d.sync.Apply(side, dirsync.Input{
			OrganizationID: actorCtx.OrganizationID,
			Family:         match.Family.ID,
			Method:         req.Method,
			Path:           match.RemainingPath,
			Enabled:        match.Family.Extractors,
			Body:           outcome.Body,
		})
	}
	d.observe(match.Family.ID, outcome.StatusCode, start)

	return &Response{
		StatusCode: outcome.StatusCode,
		Header:     outcome.Header,
		Body:       outcome.Body,
	}, nil
}

// finishRefused records the audit trail and metrics for a request the
// gateway refused before or instead of an upstream response.
func (d *Dispatcher) finishRefused(ctx context.Context, req Request, actorCtx actor.Context, family string, start time.Time, err error) {
	status := dErrors.ToHTTPStatus(dErrors.CodeOf(err))
	side := context.WithoutCancel(ctx)
	d.recorder.Record(side, d.buildRecord(ctx, req, actorCtx, family, status, start))
	d.observe(family, status, start)
}

func (d *Dispatcher) buildRecord(ctx context.Context, req Request, actorCtx actor.Context, family string, status int, start time.Time) audit.Record {
	rec := audit.Record{
		ActorType:  "unknown",
		ActorID:    "unknown",
		Method:     req.Method,
		Family:     family,
		Path:       req.Path,
		StatusCode: status,
		LatencyMS:  time.Since(start).Milliseconds(),
		RequestID:  requestcontext.RequestID(ctx),
		ClientIP:   requestcontext.ClientIP(ctx),
		UserAgent:  requestcontext.UserAgent(ctx),
	}
	if actorCtx.Type.IsValid() {
		rec.OrganizationID = actorCtx.OrganizationID
		rec.ActorType = string(actorCtx.Type)
		rec.ActorID = actorCtx.ActorID
		rec.DisplayName = actorCtx.DisplayName
		rec.Email = actorCtx.Email
		rec.ClientReference = actorCtx.ClientReference
	}
	return rec
}

func (d *Dispatcher) observe(family string, status int, start time.Time) {
	if d.metrics == nil {
		return
	}
	if family == "" {
		family = "none"
	}
	d.metrics.ProxiedRequests.WithLabelValues(family, statusClass(status)).Inc()
	d.metrics.RequestLatency.WithLabelValues(family).Observe(time.Since(start).Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
