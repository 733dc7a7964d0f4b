package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/middleware"
	"github.com/felixgeelhaar/react-agent/domain/tool"
)

// ToolRecorder receives one record per tool execution.
type ToolRecorder interface {
	RecordToolCall(ctx context.Context, toolName, outcome string, d time.Duration)
}

// Tool execution outcomes reported to the recorder.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
	OutcomeCached  = "cached"
)

// Metrics returns middleware that reports every tool execution to rec.
func Metrics(rec ToolRecorder) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Result, error) {
			if rec == nil {
				return next(ctx, execCtx)
			}

			start := time.Now()
			result, err := next(ctx, execCtx)

			outcome := OutcomeSuccess
			switch {
			case err != nil:
				outcome = OutcomeError
			case result.Cached:
				outcome = OutcomeCached
			case !result.Succeeded:
				outcome = OutcomeFailure
			}
			rec.RecordToolCall(ctx, execCtx.Tool.Name(), outcome, time.Since(start))

			return result, err
		}
	}
}
