package search

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// ThrottledProvider waits on a token bucket before each search.
type ThrottledProvider struct {
	base    Provider
	limiter *rate.Limiter
}

// Throttle wraps provider so it issues at most rps requests per second.
// A non-positive rps returns provider unchanged.
func Throttle(provider Provider, rps float64, burst int) Provider {
	if rps <= 0 {
		return provider
	}
	if burst < 1 {
		burst = 1
	}
	return &ThrottledProvider{
		base:    provider,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Name returns the wrapped provider's name.
func (p *ThrottledProvider) Name() string {
	return p.base.Name()
}

// Search waits for a token, then delegates.
func (p *ThrottledProvider) Search(ctx context.Context, query Query) ([]Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit: %w", p.base.Name(), err)
	}
	return p.base.Search(ctx, query)
}
