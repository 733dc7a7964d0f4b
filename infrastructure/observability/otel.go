package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/react-agent/domain/telemetry"
)

var spanKinds = map[telemetry.SpanKind]trace.SpanKind{
	telemetry.SpanKindInternal: trace.SpanKindInternal,
	telemetry.SpanKindClient:   trace.SpanKindClient,
}

var statusCodes = map[telemetry.StatusCode]codes.Code{
	telemetry.StatusCodeOK:    codes.Ok,
	telemetry.StatusCodeError: codes.Error,
}

// Tracer exposes an OpenTelemetry tracer as the loop's telemetry.Tracer.
type Tracer struct {
	otel trace.Tracer
}

// NewTracer wraps t.
func NewTracer(t trace.Tracer) *Tracer {
	return &Tracer{otel: t}
}

// StartSpan starts a child of the span in ctx.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...telemetry.SpanOption) (context.Context, telemetry.Span) {
	cfg := telemetry.ApplySpanOptions(opts...)

	start := []trace.SpanStartOption{trace.WithSpanKind(spanKinds[cfg.Kind])}
	if len(cfg.Attributes) > 0 {
		start = append(start, trace.WithAttributes(keyValues(cfg.Attributes)...))
	}

	ctx, s := t.otel.Start(ctx, name, start...)
	return ctx, span{s}
}

type span struct {
	trace.Span
}

func (s span) SetAttributes(attrs ...telemetry.Attribute) {
	s.Span.SetAttributes(keyValues(attrs)...)
}

func (s span) RecordError(err error) {
	if err != nil {
		s.Span.RecordError(err)
	}
}

func (s span) SetStatus(code telemetry.StatusCode, description string) {
	s.Span.SetStatus(statusCodes[code], description)
}

func (s span) AddEvent(name string, attrs ...telemetry.Attribute) {
	s.Span.AddEvent(name, trace.WithAttributes(keyValues(attrs)...))
}

func (s span) End() {
	s.Span.End()
}

// Meter exposes an OpenTelemetry meter as the loop's telemetry.Meter.
// Instruments that fail to register record nothing.
type Meter struct {
	otel metric.Meter
}

// NewMeter wraps m.
func NewMeter(m metric.Meter) *Meter {
	return &Meter{otel: m}
}

// Counter returns an int64 counter.
func (m *Meter) Counter(name string, opts ...telemetry.MetricOption) telemetry.Counter {
	cfg := telemetry.ApplyMetricOptions(opts...)
	c, err := m.otel.Int64Counter(name, metric.WithDescription(cfg.Description), metric.WithUnit(cfg.Unit))
	if err != nil {
		return telemetry.NoopMeter{}.Counter(name)
	}
	return counter{c}
}

// Histogram returns a float64 histogram.
func (m *Meter) Histogram(name string, opts ...telemetry.MetricOption) telemetry.Histogram {
	cfg := telemetry.ApplyMetricOptions(opts...)
	h, err := m.otel.Float64Histogram(name, metric.WithDescription(cfg.Description), metric.WithUnit(cfg.Unit))
	if err != nil {
		return telemetry.NoopMeter{}.Histogram(name)
	}
	return histogram{h}
}

type counter struct {
	metric.Int64Counter
}

func (c counter) Add(ctx context.Context, value int64, attrs ...telemetry.Attribute) {
	c.Int64Counter.Add(ctx, value, metric.WithAttributes(keyValues(attrs)...))
}

type histogram struct {
	metric.Float64Histogram
}

func (h histogram) Record(ctx context.Context, value float64, attrs ...telemetry.Attribute) {
	h.Float64Histogram.Record(ctx, value, metric.WithAttributes(keyValues(attrs)...))
}

// keyValues converts loop attributes. Durations are recorded in
// milliseconds and unknown values by their printed form.
func keyValues(attrs []telemetry.Attribute) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, len(attrs))
	for i, a := range attrs {
		kvs[i] = keyValue(a)
	}
	return kvs
}

func keyValue(a telemetry.Attribute) attribute.KeyValue {
	switch v := a.Value.(type) {
	case string:
		return attribute.String(a.Key, v)
	case int:
		return attribute.Int(a.Key, v)
	case int64:
		return attribute.Int64(a.Key, v)
	case float64:
		return attribute.Float64(a.Key, v)
	case bool:
		return attribute.Bool(a.Key, v)
	case []string:
		return attribute.StringSlice(a.Key, v)
	case time.Duration:
		return attribute.Int64(a.Key, v.Milliseconds())
	case fmt.Stringer:
		return attribute.String(a.Key, v.String())
	default:
		return attribute.String(a.Key, fmt.Sprint(v))
	}
}

var (
	_ telemetry.Tracer = (*Tracer)(nil)
	_ telemetry.Meter  = (*Meter)(nil)
	_ telemetry.Span   = span{}
)
