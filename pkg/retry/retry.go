// Package retry re-runs an operation while it fails with an error the caller
// classifies as transient.
//
// It exists for Azure AD replication lag: a freshly created principal is not yet
// visible to the authorization service, and the only remedy is to wait and try again.
// Errors that are not classified as retryable propagate immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAttemptsExhausted is wrapped into the error returned when every attempt failed
// with a retryable error. The last attempt's error is wrapped as well.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy configures Do.
type Policy struct {
	// MaxAttempts is the total number of calls made, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// Delay returns how long to wait after the given 1-based attempt failed.
	// Nil means no delay.
	Delay func(attempt int) time.Duration

	// Retryable reports whether err is worth another attempt.
	// Nil means nothing is retried.
	Retryable func(err error) bool

	// Sleep waits between attempts. Nil means a context-aware timer.
	Sleep SleepFunc

	// OnRetry is called before each wait, with the attempt that just failed.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Linear returns a delay function yielding attempt*step.
func Linear(step time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// Do calls fn until it succeeds, fails with a non-retryable error, or MaxAttempts
// calls have failed with retryable errors.
//
// Parameters:
//   - ctx: Context passed to fn and honored while waiting between attempts
//   - p: Attempt bound, delay schedule and error classification
//   - fn: The operation to run
//
// Returns:
//   - T: The result of the first successful call
//   - error: The non-retryable error unchanged, the context error if cancelled while
//     waiting, or ErrAttemptsExhausted wrapping the last error
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if p.Retryable == nil || !p.Retryable(err) {
			return zero, err
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		var delay time.Duration
		if p.Delay != nil {
			delay = p.Delay(attempt)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, maxAttempts, lastErr)
}

// Sleep waits for d or until ctx is cancelled, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
