package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/react-agent/domain/middleware"
	"github.com/felixgeelhaar/react-agent/domain/tool"
)

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	// Tracer overrides the global tracer named "react-agent".
	Tracer trace.Tracer

	// RecordInput records tool arguments as a span attribute.
	RecordInput bool

	// MaxAttributeSize bounds recorded strings. Default 1024.
	MaxAttributeSize int
}

// Tracing returns middleware that opens an OpenTelemetry span per tool execution.
func Tracing(cfg TracingConfig) middleware.Middleware {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("react-agent")
	}
	maxSize := cfg.MaxAttributeSize
	if maxSize <= 0 {
		maxSize = 1024
	}

	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Result, error) {
			ctx, span := tracer.Start(ctx, "tool."+execCtx.Tool.Name(), trace.WithSpanKind(trace.SpanKindInternal))
			defer span.End()

			ann := execCtx.Tool.Annotations()
			attrs := []attribute.KeyValue{
				attribute.String("react.run_id", execCtx.RunID),
				attribute.Int("react.iteration", execCtx.Iteration),
				attribute.String("tool.name", execCtx.Tool.Name()),
				attribute.Bool("tool.read_only", ann.ReadOnly),
				attribute.Bool("tool.idempotent", ann.Idempotent),
				attribute.Bool("tool.cacheable", ann.Cacheable),
			}
			if execCtx.Reasoning != "" {
				attrs = append(attrs, attribute.String("react.reasoning", clip(execCtx.Reasoning, maxSize)))
			}
			if cfg.RecordInput && len(execCtx.Input) > 0 {
				attrs = append(attrs, attribute.String("tool.input", clip(string(execCtx.Input), maxSize)))
			}
			span.SetAttributes(attrs...)

			result, err := next(ctx, execCtx)

			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case !result.Succeeded:
				span.SetStatus(codes.Error, clip(result.Observation, maxSize))
			default:
				span.SetStatus(codes.Ok, "")
			}
			span.SetAttributes(
				attribute.Bool("tool.succeeded", err == nil && result.Succeeded),
				attribute.Bool("tool.cached", result.Cached),
				attribute.Int64("tool.duration_ms", result.Duration.Milliseconds()),
			)
			return result, err
		}
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
