package fn

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "pkg/fn"

// Stage is a function that transforms In to Out within a context.
type Stage[In, Out any] func(context.Context, In) Result[Out]

// Fallback runs primary and, when it fails, secondary with the same input.
// The error of primary is discarded.
func Fallback[In, Out any](primary, secondary Stage[In, Out]) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		return primary(ctx, in).OrElse(func(error) Result[Out] {
			return secondary(ctx, in)
		})
	}
}

// OrDefault runs stage and replaces a failure with def(in, err). The returned
// stage never fails.
func OrDefault[In, Out any](stage Stage[In, Out], def func(In, error) Out) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		return stage(ctx, in).OrElse(func(err error) Result[Out] {
			return Ok(def(in, err))
		})
	}
}

// Traced runs f inside an OTel span, recording a failed Result on the span.
func Traced[T any](ctx context.Context, name string, f func(context.Context) Result[T]) Result[T] {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	defer span.End()
	result := f(ctx)
	if result.IsErr() {
		_, err := result.Unwrap()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result
}

// TracedStage wraps a stage with OTel span creation.
func TracedStage[In, Out any](name string, stage Stage[In, Out]) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		return Traced(ctx, name, func(ctx context.Context) Result[Out] {
			return stage(ctx, in)
		})
	}
}
