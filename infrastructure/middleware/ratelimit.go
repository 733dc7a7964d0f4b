package middleware

import (
	"context"
	"errors"
	"sync"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/react-agent/domain/middleware"
	"github.com/felixgeelhaar/react-agent/domain/tool"
	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
)

// ErrRateLimited indicates a tool call was rejected by the rate limiter.
var ErrRateLimited = errors.New("tool rate limit exceeded")

// RateLimitScope defines how calls share a token bucket.
type RateLimitScope string

const (
	// ScopeGlobal shares one bucket across all runs and tools.
	ScopeGlobal RateLimitScope = "global"
	// ScopePerRun gives each run its own bucket.
	ScopePerRun RateLimitScope = "per_run"
	// ScopePerTool gives each tool its own bucket.
	ScopePerTool RateLimitScope = "per_tool"
	// ScopePerRunTool gives each run and tool pair its own bucket.
	ScopePerRunTool RateLimitScope = "per_run_tool"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// Limiter overrides the limiter built from Rate and Burst.
	Limiter ratelimit.RateLimiter

	// Scope determines the bucket key. Default is ScopePerTool.
	Scope RateLimitScope

	// Rate is the number of tokens added per interval.
	Rate int

	// Burst is the bucket capacity. Defaults to Rate.
	Burst int

	// ToolRates overrides Rate for specific tools. Only used with ScopePerTool.
	ToolRates map[string]int

	// FailOpen allows calls when the limiter itself fails.
	FailOpen bool
}

// RateLimit returns middleware that rejects tool calls over the configured rate.
func RateLimit(cfg RateLimitConfig) middleware.Middleware {
	scope := cfg.Scope
	if scope == "" {
		scope = ScopePerTool
	}
	base := cfg.Limiter
	if base == nil {
		base = newLimiter(cfg.Rate, cfg.Burst, cfg.FailOpen)
	}

	var mu sync.Mutex
	perTool := make(map[string]ratelimit.RateLimiter, len(cfg.ToolRates))
	limiterFor := func(name string) ratelimit.RateLimiter {
		rate, ok := cfg.ToolRates[name]
		if !ok || scope != ScopePerTool {
			return base
		}
		mu.Lock()
		defer mu.Unlock()
		l, ok := perTool[name]
		if !ok {
			l = newLimiter(rate, rate, cfg.FailOpen)
			perTool[name] = l
		}
		return l
	}

	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Result, error) {
			name := execCtx.Tool.Name()
			key := rateLimitKey(scope, execCtx)

			if !limiterFor(name).Allow(ctx, key) {
				logging.ForRun(execCtx.RunID).Warn().
					Add(logging.ToolName(name)).
					Add(logging.Str("scope", string(scope))).
					Msg("rate limit exceeded")
				return tool.Result{}, ErrRateLimited
			}
			return next(ctx, execCtx)
		}
	}
}

func newLimiter(rate, burst int, failOpen bool) ratelimit.RateLimiter {
	if rate <= 0 {
		rate = 100
	}
	if burst <= 0 {
		burst = rate
	}
	return ratelimit.New(&ratelimit.Config{
		Rate:     rate,
		Burst:    burst,
		FailOpen: failOpen,
	})
}

func rateLimitKey(scope RateLimitScope, execCtx *middleware.ExecutionContext) string {
	switch scope {
	case ScopePerRun:
		return execCtx.RunID
	case ScopePerTool:
		return execCtx.Tool.Name()
	case ScopePerRunTool:
		return execCtx.RunID + ":" + execCtx.Tool.Name()
	default:
		return "global"
	}
}
