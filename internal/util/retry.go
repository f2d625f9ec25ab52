package util

import (
	"context"
	"time"
)

// Backoff returns baseDelay * 2^attempt capped at maxDelay.
func Backoff(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	if attempt < 0 {
		return baseDelay
	}
	if attempt > 30 {
		return maxDelay
	}
	d := baseDelay * time.Duration(1<<attempt)
	if d > maxDelay || d <= 0 {
		return maxDelay
	}
	return d
}

// Retry calls fn up to maxAttempts times with exponential backoff starting at
// baseDelay and capped at maxDelay. maxAttempts <= 0 retries until ctx is
// done. onErr, if non-nil, sees every failure with the delay before the next
// attempt. The last error is returned when attempts run out.
func Retry(ctx context.Context, maxAttempts int, baseDelay, maxDelay time.Duration, onErr func(attempt int, err error, next time.Duration), fn func() error) error {
	var err error
	for attempt := 0; maxAttempts <= 0 || attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// No sleep after the last failed attempt.
		if maxAttempts > 0 && attempt == maxAttempts-1 {
			break
		}
		delay := Backoff(attempt, baseDelay, maxDelay)
		if onErr != nil {
			onErr(attempt, err, delay)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
