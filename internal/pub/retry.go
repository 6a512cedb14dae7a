package pub

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds a retry loop.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Backoff returns the wait after failed attempt n (1-based) before attempt n+1.
	Backoff func(attempt int) time.Duration

	// OnRetry, if set, is called before each wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// LinearBackoff waits attempt × step.
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// Retry calls op until it succeeds or the policy is exhausted, sleeping on
// clock between attempts. Attempts are strictly sequential. It returns the
// number of attempts made and, on failure, the last error.
func Retry(ctx context.Context, p RetryPolicy, clock Clock, op func(ctx context.Context, attempt int) error) (int, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return attempt, nil
		}
		if attempt == p.MaxAttempts {
			return attempt, lastErr
		}
		if ctx.Err() != nil {
			return attempt, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
		}

		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, lastErr)
		}
		if err := clock.Sleep(ctx, wait); err != nil {
			return attempt, fmt.Errorf("%w: waiting to retry: %w", ErrInterrupted, err)
		}
	}
	return p.MaxAttempts, lastErr
}
