// Package ratelimit paces producers so a bulk submission cannot flood a
// queue faster than its workers can be woken.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Submit sends one job. i is its zero-based position in the batch.
type Submit func(ctx context.Context, i int) error

// Producer runs submissions under a token bucket.
type Producer struct {
	limiter *rate.Limiter
}

// NewProducer allows perSecond submissions with the given burst. A
// non-positive perSecond means unlimited.
func NewProducer(perSecond float64, burst int) *Producer {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Producer{limiter: rate.NewLimiter(limit, burst)}
}

// Run calls submit n times, waiting for a token before each call. It stops
// at the first error and reports how many submissions succeeded.
func (p *Producer) Run(ctx context.Context, n int, submit Submit) (int, error) {
	for i := 0; i < n; i++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return i, fmt.Errorf("rate wait: %w", err)
		}
		if err := submit(ctx, i); err != nil {
			return i, err
		}
	}
	return n, nil
}
