package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/cache"
	"github.com/felixgeelhaar/react-agent/domain/middleware"
	"github.com/felixgeelhaar/react-agent/domain/tool"
	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
)

// CacheConfig configures the observation cache middleware.
type CacheConfig struct {
	// Cache stores encoded results. A nil cache disables the middleware.
	Cache cache.Cache
	// TTL is the lifetime of stored results.
	TTL time.Duration
}

// Caching returns middleware that serves repeated calls of cacheable tools
// from the cache. Only successful results are stored; cache errors fall
// through to the tool.
func Caching(cfg CacheConfig) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (tool.Result, error) {
			if cfg.Cache == nil || !execCtx.Tool.Annotations().CanCache() {
				return next(ctx, execCtx)
			}

			key := cache.Key(execCtx.Tool.Name(), execCtx.Input)

			data, ok, err := cfg.Cache.Get(ctx, key)
			if err != nil {
				logging.Warn().
					Add(logging.ToolName(execCtx.Tool.Name())).
					Add(logging.ErrorField(err)).
					Msg("cache lookup failed")
			}
			if ok {
				var result tool.Result
				if err := json.Unmarshal(data, &result); err == nil {
					result.Cached = true
					return result, nil
				}
			}

			result, err := next(ctx, execCtx)
			if err != nil || !result.Succeeded {
				return result, err
			}

			if data, err := json.Marshal(result); err == nil {
				if err := cfg.Cache.Set(ctx, key, data, cache.SetOptions{TTL: cfg.TTL}); err != nil {
					logging.Warn().
						Add(logging.ToolName(execCtx.Tool.Name())).
						Add(logging.ErrorField(err)).
						Msg("cache store failed")
				}
			}
			return result, nil
		}
	}
}
