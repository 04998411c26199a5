package model

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited paces calls to an underlying Model. It never retries; a wait
// that is cancelled surfaces as the generation error.
type RateLimited struct {
	next    Model
	limiter *rate.Limiter
}

// NewRateLimited wraps next so that at most requestsPerMinute generations
// start per minute. A non-positive limit returns next unchanged.
func NewRateLimited(next Model, requestsPerMinute int) Model {
	if requestsPerMinute <= 0 {
		return next
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

// Generate waits for a token and delegates to the wrapped model.
func (r *RateLimited) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	if err := r.limiter.Wait(ctx); err != nil {
		respCh := make(chan Response)
		errCh := make(chan error, 1)
		errCh <- fmt.Errorf("rate limit wait: %w", err)
		close(respCh)
		close(errCh)
		return respCh, errCh
	}
	return r.next.Generate(ctx, req)
}

// Info reports the wrapped model's metadata.
func (r *RateLimited) Info() Info { return r.next.Info() }
