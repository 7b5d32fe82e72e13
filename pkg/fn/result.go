// Package fn provides a generic Result type and the combinators used to keep
// degradation policies explicit: fallbacks, defaults, retries and fan-out.
package fn

import "fmt"

// Result[T] is a generic result type for error handling.
type Result[T any] struct {
	val T
	err error
	ok  bool
}

// Ok creates a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{val: v, ok: true}
}

// Err creates a failed Result from an error.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Errf creates a failed Result from a formatted string.
func Errf[T any](format string, args ...any) Result[T] {
	return Result[T]{err: fmt.Errorf(format, args...)}
}

// FromPair creates a Result from a (value, error) pair.
func FromPair[T any](v T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(v)
}

// IsOk returns true if the result is successful.
func (r Result[T]) IsOk() bool { return r.ok }

// IsErr returns true if the result is an error.
func (r Result[T]) IsErr() bool { return !r.ok }

// Unwrap returns the value and error.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }

// UnwrapOr returns the value or a fallback on error.
func (r Result[T]) UnwrapOr(fallback T) T {
	if !r.ok {
		return fallback
	}
	return r.val
}

// OrElse returns r if it is ok, otherwise the Result produced by f from r's error.
func (r Result[T]) OrElse(f func(error) Result[T]) Result[T] {
	if r.ok {
		return r
	}
	return f(r.err)
}

// MapResult transforms Result[T] to Result[U].
func MapResult[T, U any](r Result[T], f func(T) U) Result[U] {
	if !r.ok {
		return Err[U](r.err)
	}
	return Ok(f(r.val))
}

// AndThen chains a fallible step onto a successful Result.
func AndThen[T, U any](r Result[T], f func(T) Result[U]) Result[U] {
	if !r.ok {
		return Err[U](r.err)
	}
	return f(r.val)
}

// Catch runs f and converts a panic into a failed Result.
func Catch[T any](f func() Result[T]) (r Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			r = Errf[T]("panic: %v", p)
		}
	}()
	return f()
}
