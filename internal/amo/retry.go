package amo

import (
	"context"
	"fmt"
	"time"
)

// Retry calls fn up to attempts times, doubling the delay between
// attempts from an initial one second. Only retryable failures are
// attempted again; task-shaped failures surface immediately.
func Retry(ctx context.Context, attempts int, op string, fn func(context.Context) error) error {
	backoff := time.Second
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return fmt.Errorf("%s: %w", op, err)
		}
		lastErr = err
	}
	return fmt.Errorf("%s: gave up after %d attempts: %w", op, attempts, lastErr)
}
