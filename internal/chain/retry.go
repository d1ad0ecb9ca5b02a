package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

// Sentinel errors for retry logic.
var (
	ErrTimeout = &tallyerr.TallyError{
		Code:     "TIMEOUT",
		Message:  "operation timed out",
		ExitCode: tallyerr.ExitGeneral,
	}

	ErrPermanent = &tallyerr.TallyError{
		Code:     "PERMANENT_ERROR",
		Message:  "permanent error",
		ExitCode: tallyerr.ExitGeneral,
	}
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts    int           // Maximum number of attempts (including initial)
	BackoffUnit    time.Duration // Delay after attempt n is BackoffUnit * n
	AttemptTimeout time.Duration // Upper bound on a single attempt; 0 disables

	// OnRetry, if set, is called after a failed non-final attempt with the
	// delay before the next one.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// AttemptFunc performs one attempt. ctx carries the per-attempt deadline and
// attempt is 1-based.
type AttemptFunc[T any] func(ctx context.Context, attempt int) (T, error)

// RetryWithConfig executes the operation up to cfg.MaxAttempts times with
// linear backoff. Every failure is retried except permanent errors and a
// canceled parent context. The error of the last attempt is returned as-is.
func RetryWithConfig[T any](ctx context.Context, cfg RetryConfig, operation AttemptFunc[T]) (T, error) {
	var result T
	var err error

	maxAttempts := max(cfg.MaxAttempts, 1)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err = runAttempt(ctx, cfg.AttemptTimeout, attempt, operation)
		if err == nil {
			return result, nil
		}
		if IsPermanent(err) || ctx.Err() != nil {
			return result, err
		}
		if attempt == maxAttempts {
			break
		}

		delay := LinearDelay(attempt, cfg.BackoffUnit)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, err
		case <-timer.C:
		}
	}

	return result, err
}

// runAttempt races one attempt against its timeout. The operation also sees
// the deadline through its context, but an operation that ignores it cannot
// hold the caller past the timeout.
func runAttempt[T any](ctx context.Context, timeout time.Duration, attempt int, operation AttemptFunc[T]) (T, error) {
	if timeout <= 0 {
		return operation(ctx, attempt)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		val, err := operation(attemptCtx, attempt)
		done <- outcome{val, err}
	}()

	select {
	case out := <-done:
		if out.err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return out.val, timeoutError(timeout)
		}
		return out.val, out.err
	case <-attemptCtx.Done():
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, timeoutError(timeout)
	}
}

func timeoutError(timeout time.Duration) error {
	return fmt.Errorf("%w after %s", ErrTimeout, timeout)
}

// LinearDelay returns the wait after the given 1-based attempt: unit * attempt.
func LinearDelay(attempt int, unit time.Duration) time.Duration {
	if attempt < 1 || unit <= 0 {
		return 0
	}
	return unit * time.Duration(attempt)
}

// Permanent marks an error so retry loops stop immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
