// Package retry runs an operation a bounded number of times with a constant
// delay between attempts.
package retry

import (
	"context"
	"errors"
	"time"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Policy struct {
	// MaxAttempts includes the first attempt. Values below 1 mean 1.
	MaxAttempts int
	// Delay is waited between attempts, never after the last one.
	Delay time.Duration
	// Sleep defaults to Sleep.
	Sleep SleepFunc
	// Retryable reports whether another attempt makes sense. Nil retries every error.
	Retryable func(err error) bool
}

// Do calls op until it succeeds or the policy is exhausted and returns the last error.
func Do[T any](
	ctx context.Context,
	p Policy,
	op func(ctx context.Context, attempt int) (T, error),
) (T, error) {
	var zero T

	attempts := max(p.MaxAttempts, 1)

	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := op(ctx, attempt)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if p.Retryable != nil && !p.Retryable(err) {
			break
		}

		if sleepErr := sleep(ctx, p.Delay); sleepErr != nil {
			// An op that already failed on the same cancellation carries it.
			if errors.Is(lastErr, sleepErr) {
				return zero, lastErr
			}
			return zero, errors.Join(lastErr, sleepErr)
		}
	}

	return zero, lastErr
}

func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
