// Package retry runs a function until it succeeds, a non-retryable error is
// returned, the attempt budget runs out, or the context is cancelled.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidPolicy = errors.New("retry: max attempts must be at least 1")

// BackoffFunc returns how long to wait after the given failed attempt (1-based).
type BackoffFunc func(attempt int) time.Duration

// RetryableFunc reports whether err should trigger another attempt.
type RetryableFunc func(err error) bool

// Policy is the combinator configuration: retry(MaxAttempts, Backoff, Retryable).
type Policy struct {
	MaxAttempts int
	Backoff     BackoffFunc
	Retryable   RetryableFunc

	// OnRetry is called before sleeping. Optional.
	OnRetry func(attempt int, wait time.Duration, err error)

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Exponential returns base * 2^attempt, so the first wait is 2*base.
func Exponential(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return time.Duration(math.Pow(2, float64(attempt))) * base
	}
}

// Constant waits d between every attempt.
func Constant(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// Always retries every error.
func Always(error) bool { return true }

// Never makes the policy a single attempt in practice.
func Never(error) bool { return false }

// Once is a policy with a single attempt.
func Once() Policy {
	return Policy{MaxAttempts: 1, Retryable: Never}
}

// Do calls fn until it succeeds or the policy stops it.
// A non-retryable error is returned as is; running out of attempts yields
// *ExhaustedError wrapping the last error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		return zero, ErrInvalidPolicy
	}

	retryable := p.Retryable
	if retryable == nil {
		retryable = Always
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = Constant(0)
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return zero, err
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}

		wait := backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, &ExhaustedError{Attempts: p.MaxAttempts, Err: lastErr}
}

// Run is Do for functions without a result.
func Run(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	_, err := Do(ctx, p, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	})
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
