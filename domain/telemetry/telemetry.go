// Package telemetry defines the tracing and metrics ports used by the control loop.
package telemetry

import "context"

// Tracer starts spans.
type Tracer interface {
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)
}

// Span is one unit of traced work: a run, an oracle decision or a tool call.
type Span interface {
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
	RecordError(err error)
	SetStatus(code StatusCode, description string)
	End()
}

// Meter creates metric instruments.
type Meter interface {
	Counter(name string, opts ...MetricOption) Counter
	Histogram(name string, opts ...MetricOption) Histogram
}

type Counter interface {
	Add(ctx context.Context, value int64, attrs ...Attribute)
}

type Histogram interface {
	Record(ctx context.Context, value float64, attrs ...Attribute)
}

// Attribute is a key-value pair attached to spans and measurements. Value
// holds a string, int, float64 or bool.
type Attribute struct {
	Key   string
	Value any
}

func attr[V string | int | float64 | bool](key string, value V) Attribute {
	return Attribute{Key: key, Value: value}
}

func String(key, value string) Attribute          { return attr(key, value) }
func Int(key string, value int) Attribute         { return attr(key, value) }
func Float64(key string, value float64) Attribute { return attr(key, value) }
func Bool(key string, value bool) Attribute       { return attr(key, value) }

// SpanKind is the role of a span. Runs and decisions are internal, tool and
// oracle calls that leave the process are client spans.
type SpanKind int

const (
	SpanKindUnspecified SpanKind = iota
	SpanKindInternal
	SpanKindClient
)

func (k SpanKind) String() string {
	switch k {
	case SpanKindInternal:
		return "internal"
	case SpanKindClient:
		return "client"
	default:
		return "unspecified"
	}
}

// StatusCode is the outcome recorded on a span.
type StatusCode int

const (
	StatusCodeUnset StatusCode = iota
	StatusCodeOK
	StatusCodeError
)

func (c StatusCode) String() string {
	switch c {
	case StatusCodeOK:
		return "ok"
	case StatusCodeError:
		return "error"
	default:
		return "unset"
	}
}

// SpanConfig is what a Tracer implementation reads from SpanOptions.
type SpanConfig struct {
	Attributes []Attribute
	Kind       SpanKind
}

type SpanOption func(*SpanConfig)

// WithAttributes adds attributes at span start. Repeated options accumulate.
func WithAttributes(attrs ...Attribute) SpanOption {
	return func(c *SpanConfig) { c.Attributes = append(c.Attributes, attrs...) }
}

func WithSpanKind(kind SpanKind) SpanOption {
	return func(c *SpanConfig) { c.Kind = kind }
}

// MetricConfig is what a Meter implementation reads from MetricOptions.
type MetricConfig struct {
	Description string
	Unit        string
}

type MetricOption func(*MetricConfig)

func WithDescription(desc string) MetricOption {
	return func(c *MetricConfig) { c.Description = desc }
}

// WithUnit sets a UCUM unit such as "ms" or "{call}".
func WithUnit(unit string) MetricOption {
	return func(c *MetricConfig) { c.Unit = unit }
}

func ApplySpanOptions(opts ...SpanOption) SpanConfig       { return apply(opts) }
func ApplyMetricOptions(opts ...MetricOption) MetricConfig { return apply(opts) }

func apply[C any, O ~func(*C)](opts []O) C {
	var cfg C
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
