package oracle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"

	domainoracle "github.com/felixgeelhaar/react-agent/domain/oracle"
	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
)

// ResilienceConfig configures retries and throttling of provider calls.
type ResilienceConfig struct {
	// Retries is the number of extra attempts after a retryable failure.
	Retries int

	// InitialDelay is the first backoff delay. Default 500ms.
	InitialDelay time.Duration

	// RequestsPerSecond throttles calls. Zero disables throttling.
	RequestsPerSecond float64
}

// ResilientProvider retries transient provider failures and throttles calls.
type ResilientProvider struct {
	next    Provider
	retry   retry.Retry[CompletionResponse]
	limiter ratelimit.RateLimiter
	wait    time.Duration
}

// NewResilientProvider wraps next.
func NewResilientProvider(next Provider, cfg ResilienceConfig) *ResilientProvider {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 500 * time.Millisecond
	}

	p := &ResilientProvider{
		next: next,
		retry: retry.New[CompletionResponse](retry.Config{
			MaxAttempts:   cfg.Retries + 1,
			InitialDelay:  cfg.InitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,

			NonRetryableErrors: []error{errPermanent},
		}),
	}
	if cfg.RequestsPerSecond > 0 {
		rate := int(math.Ceil(cfg.RequestsPerSecond))
		p.limiter = ratelimit.New(&ratelimit.Config{Rate: rate, Burst: rate})
		p.wait = time.Duration(float64(time.Second) / cfg.RequestsPerSecond)
	}
	return p
}

// Name returns the wrapped provider's name.
func (p *ResilientProvider) Name() string {
	return p.next.Name()
}

// errPermanent marks failures that retrying cannot fix.
var errPermanent = errors.New("permanent provider failure")

// Complete implements Provider.
func (p *ResilientProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if err := p.throttle(ctx); err != nil {
		return CompletionResponse{}, err
	}

	attempt := 0
	var permanent error
	resp, err := p.retry.Do(ctx, func(ctx context.Context) (CompletionResponse, error) {
		attempt++
		resp, err := p.next.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !retryable(err) || ctx.Err() != nil {
			permanent = err
			return CompletionResponse{}, fmt.Errorf("%w: %w", errPermanent, err)
		}
		logging.Warn().
			Add(logging.Component("oracle")).
			Add(logging.Str("provider", p.next.Name())).
			Add(logging.Int("attempt", attempt)).
			Add(logging.ErrorField(err)).
			Msg("provider call failed, retrying")
		return CompletionResponse{}, err
	})
	if permanent != nil {
		return CompletionResponse{}, permanent
	}
	return resp, err
}

func (p *ResilientProvider) throttle(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	key := p.next.Name()
	for !p.limiter.Allow(ctx, key) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.wait):
		}
	}
	return nil
}

// retryable reports whether err is worth another attempt.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	if errors.Is(err, ErrEmptyCompletion) {
		return true
	}
	return errors.Is(err, domainoracle.ErrOracleUnavailable)
}
