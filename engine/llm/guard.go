package llm

import (
	"context"
	"errors"
	"time"

	"github.com/WessleyAI/sector-rag/pkg/fn"
	"github.com/WessleyAI/sector-rag/pkg/resilience"
	"golang.org/x/time/rate"
)

// GuardOpts configures the resilience wrapper around a capability client.
// Zero values disable the corresponding protection.
type GuardOpts struct {
	Timeout time.Duration
	Retry   fn.RetryOpts
	Breaker *resilience.Breaker
	Limiter *rate.Limiter
}

// DefaultGuardOpts returns a guard with a 30s per-attempt timeout, the default
// retry policy and a fresh breaker.
func DefaultGuardOpts() GuardOpts {
	retry := fn.DefaultRetry
	retry.Retryable = retryable
	return GuardOpts{
		Timeout: 30 * time.Second,
		Retry:   retry,
		Breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
}

// retryable skips errors that another attempt cannot fix.
func retryable(err error) bool {
	return !errors.Is(err, context.Canceled) &&
		!errors.Is(err, resilience.ErrCircuitOpen) &&
		!errors.Is(err, ErrEmptyGeneration)
}

// guard composes, from the outside in: retry, breaker, rate limit, timeout.
func guard[In, Out any](opts GuardOpts, stage fn.Stage[In, Out]) fn.Stage[In, Out] {
	stage = resilience.TimeoutStage(opts.Timeout, stage)
	if opts.Limiter != nil {
		stage = resilience.LimiterStageWait(opts.Limiter, stage)
	}
	if opts.Breaker != nil {
		stage = resilience.BreakerStage(opts.Breaker, stage)
	}
	if opts.Retry.MaxAttempts > 1 {
		stage = fn.RetryStage(opts.Retry, stage)
	}
	return stage
}

type guardedGenerator struct {
	stage fn.Stage[GenerateRequest, Generation]
}

// GuardGenerator wraps g with timeout, rate limiting, circuit breaking and retries.
func GuardGenerator(g Generator, opts GuardOpts) Generator {
	return &guardedGenerator{stage: guard[GenerateRequest, Generation](opts, func(ctx context.Context, req GenerateRequest) fn.Result[Generation] {
		return fn.FromPair(g.Generate(ctx, req))
	})}
}

func (g *guardedGenerator) Generate(ctx context.Context, req GenerateRequest) (Generation, error) {
	return g.stage(ctx, req).Unwrap()
}

type guardedEmbedder struct {
	stage fn.Stage[string, []float32]
}

// GuardEmbedder wraps e with timeout, rate limiting, circuit breaking and retries.
func GuardEmbedder(e Embedder, opts GuardOpts) Embedder {
	return &guardedEmbedder{stage: guard[string, []float32](opts, func(ctx context.Context, text string) fn.Result[[]float32] {
		return fn.FromPair(e.Embed(ctx, text))
	})}
}

func (e *guardedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.stage(ctx, text).Unwrap()
}
