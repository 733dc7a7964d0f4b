package telemetry

import (
	"context"
	"fmt"
	"testing"
)

func TestApplySpanOptions(t *testing.T) {
	t.Parallel()

	cfg := ApplySpanOptions(
		WithAttributes(String(AttrRunID, "r1"), Int(AttrIteration, 2)),
		WithAttributes(Bool("cached", true)),
		WithSpanKind(SpanKindClient),
	)

	if len(cfg.Attributes) != 3 {
		t.Fatalf("len(Attributes) = %d, want 3", len(cfg.Attributes))
	}
	if cfg.Attributes[0].Key != AttrRunID || cfg.Attributes[0].Value != "r1" {
		t.Errorf("Attributes[0] = %+v, want %s=r1", cfg.Attributes[0], AttrRunID)
	}
	if cfg.Kind != SpanKindClient {
		t.Errorf("Kind = %v, want %v", cfg.Kind, SpanKindClient)
	}
}

func TestApplyMetricOptions(t *testing.T) {
	t.Parallel()

	cfg := ApplyMetricOptions(WithDescription("runs"), WithUnit("{run}"))
	if cfg.Description != "runs" || cfg.Unit != "{run}" {
		t.Errorf("ApplyMetricOptions() = %+v", cfg)
	}
}

func TestNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	got, span := NoopTracer{}.StartSpan(ctx, SpanRun)
	if got != ctx {
		t.Error("StartSpan() should return the same context")
	}
	span.SetAttributes(Float64("x", 1))
	span.RecordError(nil)
	span.SetStatus(StatusCodeOK, "")
	span.AddEvent("e")
	span.End()

	NoopMeter{}.Counter(MetricRuns).Add(ctx, 1)
	NoopMeter{}.Histogram(MetricIterations).Record(ctx, 1)
}

func TestKindAndStatusString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		got  fmt.Stringer
		want string
	}{
		{SpanKindUnspecified, "unspecified"},
		{SpanKindInternal, "internal"},
		{SpanKindClient, "client"},
		{StatusCodeUnset, "unset"},
		{StatusCodeOK, "ok"},
		{StatusCodeError, "error"},
	}
	for _, tt := range tests {
		if got := tt.got.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
