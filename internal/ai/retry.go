package ai

import (
	"context"
	"fmt"
	"time"
)

// defaultMaxRetries is the default number of attempts per request
const defaultMaxRetries = 3

// retryWithBackoff runs fn until it succeeds, fails permanently, or
// maxAttempts is reached. Waits between attempts depend on the error kind.
func retryWithBackoff[T any](
	ctx context.Context,
	maxAttempts int,
	sleep func(context.Context, time.Duration) error,
	fn func() (T, error),
) (T, error) {
	var result T
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var err error
		result, err = fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == maxAttempts {
			break
		}
		if err := sleep(ctx, getBackoffDuration(err, attempt)); err != nil {
			return result, err
		}
	}

	return result, fmt.Errorf("all retry attempts failed: %w", lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
