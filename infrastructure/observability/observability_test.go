package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/react-agent/domain/config"
	"github.com/felixgeelhaar/react-agent/domain/telemetry"
)

func newRecordingTracer() (*Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return NewTracer(tp.Tracer("test")), recorder
}

func TestTracer_StartSpan(t *testing.T) {
	t.Parallel()

	tracer, recorder := newRecordingTracer()

	ctx, span := tracer.StartSpan(context.Background(), telemetry.SpanRun,
		telemetry.WithAttributes(
			telemetry.String(telemetry.AttrRunID, "run-1"),
			telemetry.Int("react.max_iterations", 10),
		),
		telemetry.WithSpanKind(telemetry.SpanKindInternal),
	)
	_, child := tracer.StartSpan(ctx, telemetry.SpanTool, telemetry.WithSpanKind(telemetry.SpanKindClient))
	child.RecordError(errors.New("tool failed"))
	child.SetStatus(telemetry.StatusCodeError, "tool failed")
	child.End()

	span.SetAttributes(telemetry.String(telemetry.AttrStatus, "finished"), telemetry.Bool("cached", false))
	span.AddEvent("decision", telemetry.Float64("score", 0.5))
	span.SetStatus(telemetry.StatusCodeOK, "")
	span.End()

	ended := recorder.Ended()
	if len(ended) != 2 {
		t.Fatalf("len(Ended()) = %d, want 2", len(ended))
	}

	tool, run := ended[0], ended[1]
	if tool.Name() != telemetry.SpanTool || tool.SpanKind() != trace.SpanKindClient {
		t.Errorf("child = %s/%v, want %s/client", tool.Name(), tool.SpanKind(), telemetry.SpanTool)
	}
	if tool.Parent().SpanID() != run.SpanContext().SpanID() {
		t.Error("tool span is not a child of the run span")
	}
	if tool.Status().Code != codes.Error {
		t.Errorf("tool status = %v, want error", tool.Status().Code)
	}
	if len(tool.Events()) != 1 {
		t.Errorf("tool events = %d, want 1 recorded error", len(tool.Events()))
	}

	if run.SpanKind() != trace.SpanKindInternal {
		t.Errorf("run kind = %v, want internal", run.SpanKind())
	}
	want := map[attribute.Key]attribute.Value{
		telemetry.AttrRunID:    attribute.StringValue("run-1"),
		"react.max_iterations": attribute.IntValue(10),
		telemetry.AttrStatus:   attribute.StringValue("finished"),
	}
	got := make(map[attribute.Key]attribute.Value)
	for _, kv := range run.Attributes() {
		got[kv.Key] = kv.Value
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("attribute %s = %v, want %v", k, got[k].Emit(), v.Emit())
		}
	}
}

type phase string

func (p phase) String() string { return "phase:" + string(p) }

func TestKeyValues(t *testing.T) {
	t.Parallel()

	got := keyValues([]telemetry.Attribute{
		telemetry.String("s", "v"),
		telemetry.Int("i", 1),
		{Key: "i64", Value: int64(2)},
		telemetry.Float64("f", 1.5),
		telemetry.Bool("b", true),
		{Key: "tools", Value: []string{"search_action", "finish"}},
		{Key: "elapsed", Value: 1500 * time.Millisecond},
		{Key: "phase", Value: phase("act")},
		{Key: "other", Value: struct{ N int }{3}},
	})

	want := []attribute.KeyValue{
		attribute.String("s", "v"),
		attribute.Int("i", 1),
		attribute.Int64("i64", 2),
		attribute.Float64("f", 1.5),
		attribute.Bool("b", true),
		attribute.StringSlice("tools", []string{"search_action", "finish"}),
		attribute.Int64("elapsed", 1500),
		attribute.String("phase", "phase:act"),
		attribute.String("other", "{3}"),
	}
	if len(got) != len(want) {
		t.Fatalf("len(keyValues()) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Key != want[i].Key || got[i].Value.Emit() != want[i].Value.Emit() {
			t.Errorf("keyValues()[%d] = %s=%s, want %s=%s", i, got[i].Key, got[i].Value.Emit(), want[i].Key, want[i].Value.Emit())
		}
	}
}

func TestSpanKindAndStatusMapping(t *testing.T) {
	t.Parallel()

	tracer, recorder := newRecordingTracer()
	kinds := map[telemetry.SpanKind]trace.SpanKind{
		telemetry.SpanKindUnspecified: trace.SpanKindInternal,
		telemetry.SpanKindInternal:    trace.SpanKindInternal,
		telemetry.SpanKindClient:      trace.SpanKindClient,
	}
	for in, want := range kinds {
		_, span := tracer.StartSpan(context.Background(), "kind", telemetry.WithSpanKind(in))
		span.End()
		ended := recorder.Ended()
		if got := ended[len(ended)-1].SpanKind(); got != want {
			t.Errorf("span kind for %v = %v, want %v", in, got, want)
		}
	}

	statuses := map[telemetry.StatusCode]codes.Code{
		telemetry.StatusCodeUnset: codes.Unset,
		telemetry.StatusCodeOK:    codes.Ok,
		telemetry.StatusCodeError: codes.Error,
	}
	for in, want := range statuses {
		if got := statusCodes[in]; got != want {
			t.Errorf("statusCodes[%v] = %v, want %v", in, got, want)
		}
	}
}

func TestProvider_Metrics(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Metrics = true
	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	ctx := context.Background()
	runs := p.Meter().Counter(telemetry.MetricRuns, telemetry.WithUnit("{run}"))
	runs.Add(ctx, 1, telemetry.String(telemetry.AttrStatus, "finished"))
	runs.Add(ctx, 1, telemetry.String(telemetry.AttrStatus, "exhausted"))
	p.Meter().Histogram(telemetry.MetricIterations).Record(ctx, 3)

	rm, err := p.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	names := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	for _, name := range []string{telemetry.MetricRuns, telemetry.MetricIterations} {
		if !names[name] {
			t.Errorf("Collect() missing %s, got %v", name, names)
		}
	}
}

func TestProvider_Disabled(t *testing.T) {
	t.Parallel()

	p, err := New(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := p.Tracer().(telemetry.NoopTracer); !ok {
		t.Errorf("Tracer() = %T, want NoopTracer", p.Tracer())
	}
	if _, ok := p.Meter().(telemetry.NoopMeter); !ok {
		t.Errorf("Meter() = %T, want NoopMeter", p.Meter())
	}
	if _, err := p.Collect(context.Background()); err == nil {
		t.Error("Collect() error = nil, want disabled")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	if err := NewNoopProvider().Shutdown(context.Background()); err != nil {
		t.Errorf("noop Shutdown() error = %v", err)
	}
}

func TestProvider_StdoutTracing(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = ExporterStdout
	cfg.Tracing.Writer = &buf
	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, span := p.Tracer().StartSpan(context.Background(), telemetry.SpanOracle)
	span.End()

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !strings.Contains(buf.String(), telemetry.SpanOracle) {
		t.Errorf("stdout export missing span name, got %q", buf.String())
	}
}

func TestProvider_UnknownExporter(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "zipkin"
	_, err := New(context.Background(), cfg)
	if !errors.Is(err, ErrUnknownExporter) {
		t.Errorf("New() error = %v, want ErrUnknownExporter", err)
	}
}

func TestSampler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "ParentBased"},
	}
	for _, tt := range tests {
		if got := sampler(tt.rate).Description(); !strings.HasPrefix(got, tt.want) {
			t.Errorf("sampler(%v) = %s, want prefix %s", tt.rate, got, tt.want)
		}
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	tel := config.Default().Telemetry
	cfg := FromConfig(tel, "1.2.3")
	if cfg.Tracing.Enabled {
		t.Error("tracing enabled, want disabled by default")
	}
	if !cfg.Metrics {
		t.Error("metrics disabled, want enabled")
	}
	if cfg.ServiceVersion != "1.2.3" || cfg.ServiceName != "react-agent" {
		t.Errorf("service = %s@%s, want react-agent@1.2.3", cfg.ServiceName, cfg.ServiceVersion)
	}

	tel.Tracing.Enabled = true
	tel.Tracing.Exporter = "otlp"
	tel.Tracing.Endpoint = "collector:4317"
	tel.Tracing.SampleRate = 0.25
	cfg = FromConfig(tel, "dev")
	if !cfg.Tracing.Enabled || cfg.Tracing.Exporter != ExporterOTLP || cfg.Tracing.Endpoint != "collector:4317" {
		t.Errorf("tracing = %+v, want otlp collector:4317", cfg.Tracing)
	}
	if !cfg.Tracing.Insecure || cfg.Tracing.SampleRate != 0.25 {
		t.Errorf("tracing insecure/sample = %v/%v, want true/0.25", cfg.Tracing.Insecure, cfg.Tracing.SampleRate)
	}
}
