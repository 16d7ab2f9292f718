package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry bundles the tracer and metric instruments a client reports to.
// A nil *Telemetry is valid and records nothing.
type Telemetry struct {
	tracer  trace.Tracer
	metrics *Metrics
}

// NewTelemetry builds a Telemetry from explicit providers. Either may be nil,
// in which case spans or metrics are skipped.
func NewTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) (*Telemetry, error) {
	t := &Telemetry{}
	if tp != nil {
		t.tracer = tp.Tracer(InstrumentationName)
	}
	if mp != nil {
		m, err := NewMetrics(mp.Meter(InstrumentationName))
		if err != nil {
			return nil, err
		}
		t.metrics = m
	}
	return t, nil
}

// Metrics returns the instruments, or nil when metrics are disabled.
func (t *Telemetry) Metrics() *Metrics {
	if t == nil {
		return nil
	}
	return t.metrics
}

// Operation tracks one traced unit of work. A nil *Operation is a no-op.
type Operation struct {
	telemetry *Telemetry
	span      trace.Span
	service   string
	method    string
	name      string
	startTime time.Time
}

// Start opens a span named name for the given service. method is recorded
// on the span and, for request spans, on the request metrics.
func (t *Telemetry) Start(ctx context.Context, name, service, method string) (context.Context, *Operation) {
	if t == nil {
		return ctx, nil
	}
	op := &Operation{
		telemetry: t,
		service:   service,
		method:    method,
		name:      name,
		startTime: time.Now(),
	}
	if t.tracer != nil {
		attrs := []attribute.KeyValue{attribute.String(AttrService, service)}
		if method != "" {
			attrs = append(attrs, attribute.String(AttrMethod, method))
		}
		ctx, op.span = t.tracer.Start(ctx, name,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attrs...),
		)
	}
	return ctx, op
}

// SetAttributes adds attributes to the operation's span.
func (op *Operation) SetAttributes(attrs ...attribute.KeyValue) {
	if op == nil || op.span == nil {
		return
	}
	op.span.SetAttributes(attrs...)
}

// End closes the span. outcome is "ok" or an error code; err, when set,
// is recorded on the span. Request spans also feed the request metrics.
func (op *Operation) End(ctx context.Context, outcome string, err error) {
	if op == nil {
		return
	}
	duration := time.Since(op.startTime)

	if op.span != nil {
		if err != nil {
			op.span.RecordError(err)
			op.span.SetStatus(codes.Error, err.Error())
		}
		op.span.SetAttributes(
			attribute.String(AttrOutcome, outcome),
			attribute.Int64(AttrDurationMs, duration.Milliseconds()),
		)
		op.span.End()
	}

	if op.name == SpanRequest {
		op.telemetry.metrics.RecordRequest(ctx, op.service, op.method, outcome, duration)
	}
}

// Duration returns the elapsed time since the operation started.
func (op *Operation) Duration() time.Duration {
	if op == nil {
		return 0
	}
	return time.Since(op.startTime)
}
