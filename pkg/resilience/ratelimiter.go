package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/WessleyAI/sector-rag/pkg/fn"
	"golang.org/x/time/rate"
)

// ErrRateLimited is joined with the context error when a caller gives up
// waiting for a token.
var ErrRateLimited = errors.New("rate limited")

// NewLimiter returns a token bucket allowing rps calls per second with the
// given burst. A non-positive rps disables limiting.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// LimiterStageWait wraps an fn.Stage with rate limiting (blocking, waits for token).
func LimiterStageWait[In, Out any](l *rate.Limiter, stage fn.Stage[In, Out]) fn.Stage[In, Out] {
	return func(ctx context.Context, in In) fn.Result[Out] {
		if err := l.Wait(ctx); err != nil {
			return fn.Err[Out](errors.Join(ErrRateLimited, err))
		}
		return stage(ctx, in)
	}
}

// TimeoutStage bounds each invocation of stage by d. A non-positive d leaves
// the stage unbounded.
func TimeoutStage[In, Out any](d time.Duration, stage fn.Stage[In, Out]) fn.Stage[In, Out] {
	if d <= 0 {
		return stage
	}
	return func(ctx context.Context, in In) fn.Result[Out] {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return stage(ctx, in)
	}
}
