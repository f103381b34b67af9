package core

import (
	"context"
	"time"
)

// RetryRunner retries an attempt-numbered operation with exponential
// delay: baseDelay after the first failure, doubling each failure
// after that. No jitter, and error-agnostic: every error takes the
// same retry path. Callers wanting selective retry (say,
// only on rate limits) must inspect the error inside the operation and
// decide there whether to propagate.
type RetryRunner struct {
	Sleep func(ctx context.Context, delay time.Duration) error
}

// Run invokes op(0), op(1), ... until it succeeds or maxAttempts is
// exhausted, sleeping baseDelay * 2^(attempt-1) between attempts. The
// last error is returned unwrapped after the final attempt.
func (r RetryRunner) Run(ctx context.Context, op func(attempt int) error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = waitWithContext
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := baseDelay << (attempt - 1)
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}
		lastErr = op(attempt)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
