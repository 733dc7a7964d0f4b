package telemetry

import "context"

// NoopTracer discards spans.
type NoopTracer struct{}

// StartSpan implements Tracer.
func (NoopTracer) StartSpan(ctx context.Context, _ string, _ ...SpanOption) (context.Context, Span) {
	return ctx, NoopSpan{}
}

// NoopSpan ignores everything.
type NoopSpan struct{}

func (NoopSpan) End()                          {}
func (NoopSpan) SetAttributes(...Attribute)    {}
func (NoopSpan) RecordError(error)             {}
func (NoopSpan) SetStatus(StatusCode, string)  {}
func (NoopSpan) AddEvent(string, ...Attribute) {}

// NoopMeter hands out instruments that record nothing.
type NoopMeter struct{}

// Counter implements Meter.
func (NoopMeter) Counter(string, ...MetricOption) Counter { return noopInstrument{} }

// Histogram implements Meter.
func (NoopMeter) Histogram(string, ...MetricOption) Histogram { return noopInstrument{} }

type noopInstrument struct{}

func (noopInstrument) Add(context.Context, int64, ...Attribute)      {}
func (noopInstrument) Record(context.Context, float64, ...Attribute) {}

var (
	_ Tracer = NoopTracer{}
	_ Meter  = NoopMeter{}
)
