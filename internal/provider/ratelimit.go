// internal/provider/ratelimit.go
package provider

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	apperrors "forecast-narrator/internal/common/errors"
)

// RateLimitedInvoker paces outbound model calls with a token bucket.
type RateLimitedInvoker struct {
	invoker Invoker
	limiter *rate.Limiter
}

// NewRateLimitedInvoker wraps invoker in a limiter of requestsPerSecond with the given burst.
func NewRateLimitedInvoker(invoker Invoker, requestsPerSecond float64, burst int) *RateLimitedInvoker {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedInvoker{
		invoker: invoker,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// WithRateLimit wraps invoker when requestsPerSecond is positive and returns it unchanged otherwise.
func WithRateLimit(invoker Invoker, requestsPerSecond float64, burst int) Invoker {
	if requestsPerSecond <= 0 {
		return invoker
	}
	return NewRateLimitedInvoker(invoker, requestsPerSecond, burst)
}

// Invoke waits for a token, then forwards the call.
func (r *RateLimitedInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", apperrors.NewExternalModelError(fmt.Errorf("waiting for provider rate limit: %w", err), true)
	}
	return r.invoker.Invoke(ctx, prompt)
}
