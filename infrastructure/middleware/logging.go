// Package middleware provides the tool middleware used by the control loop.
package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/middleware"
	"github.com/felixgeelhaar/react-agent/domain/tool"
	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
)

// LoggingConfig configures the logging middleware.
type LoggingConfig struct {
	// LogInput logs the tool arguments (may contain sensitive data).
	LogInput bool
	// LogObservation logs the observation, truncated to 500 characters.
	LogObservation bool
}

// Logging returns middleware that logs tool execution.
func Logging(cfg LoggingConfig) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Result, error) {
			start := time.Now()
			log := logging.ForRun(execCtx.RunID).With(logging.ToolName(execCtx.Tool.Name()))

			entry := log.Debug().
				Add(logging.Iteration(execCtx.Iteration))
			if cfg.LogInput && len(execCtx.Input) > 0 {
				entry = entry.Add(logging.Str("input", string(execCtx.Input)))
			}
			entry.Msg("executing tool")

			result, err := next(ctx, execCtx)
			duration := time.Since(start)

			if err != nil {
				log.Warn().
					Add(logging.ErrorField(err)).
					Add(logging.Duration(duration)).
					Msg("tool execution failed")
				return result, err
			}

			done := log.Info().
				Add(logging.Succeeded(result.Succeeded)).
				Add(logging.Cached(result.Cached)).
				Add(logging.Duration(duration))
			if cfg.LogObservation && result.Observation != "" {
				obs := []rune(result.Observation)
				if len(obs) > 500 {
					obs = append(obs[:500], []rune("...")...)
				}
				done = done.Add(logging.Str("observation", string(obs)))
			}
			done.Msg("tool executed")

			return result, nil
		}
	}
}
