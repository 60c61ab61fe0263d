// Package retry runs an operation a bounded number of times. Only errors
// explicitly marked with Retryable are retried; anything else aborts the loop
// and is returned unchanged.
package retry

import (
	"context"
	"errors"
	"fmt"
)

// ErrExhausted matches every *ExhaustedError.
var ErrExhausted = errors.New("retry budget exhausted")

// ErrInvalidBudget is returned when a Policy allows fewer than one attempt.
var ErrInvalidBudget = errors.New("retry budget must be at least 1")

// Policy bounds a retry loop.
type Policy struct {
	// Budget is the maximum number of attempts, including the first.
	Budget int
	// OnFailure, when set, is called after every retryable failure with the
	// 1-based attempt number. It runs before the next attempt starts.
	OnFailure func(attempt int, err error)
}

// ExhaustedError reports that every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Is makes errors.Is(err, ErrExhausted) true.
func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

type retryable struct{ err error }

func (r retryable) Error() string { return r.err.Error() }
func (r retryable) Unwrap() error { return r.err }

// Retryable marks err as worth another attempt. Nil stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return retryable{err: err}
}

// IsRetryable reports whether err (or anything it wraps) was marked with Retryable.
func IsRetryable(err error) bool {
	var r retryable
	return errors.As(err, &r)
}

// Do calls op with attempt numbers 1..Budget until it succeeds, returns a
// non-retryable error, or the budget runs out. The retryable marker is
// stripped from the error stored in ExhaustedError.Last. The context is
// checked before every attempt after the first.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	if p.Budget < 1 {
		return zero, fmt.Errorf("%w (got %d)", ErrInvalidBudget, p.Budget)
	}

	var last error
	for attempt := 1; attempt <= p.Budget; attempt++ {
		if attempt > 1 {
			if err := ctx.Err(); err != nil {
				return zero, err
			}
		}
		v, err := op(ctx, attempt)
		if err == nil {
			return v, nil
		}
		var r retryable
		if !errors.As(err, &r) {
			return zero, err
		}
		last = r.err
		if p.OnFailure != nil {
			p.OnFailure(attempt, last)
		}
	}
	return zero, &ExhaustedError{Attempts: p.Budget, Last: last}
}
