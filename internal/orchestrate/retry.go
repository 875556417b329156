package orchestrate

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds remote calls: a fixed attempt limit with capped
// exponential backoff between attempts. The pipeline never blocks
// indefinitely on a remote dependency.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// DefaultRetryPolicy matches the configured pipeline defaults
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BackoffBase: 500 * time.Millisecond,
		BackoffCap:  8 * time.Second,
	}
}

// Backoff returns the delay before the given retry (attempt is 1-based:
// the delay after the first failure is Backoff(1)).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BackoffBase << (attempt - 1)
	if p.BackoffCap > 0 && d > p.BackoffCap {
		return p.BackoffCap
	}
	return d
}

// Do runs fn until it succeeds, attempts are exhausted, or the context is
// canceled. Cancellation between attempts stops immediately; the last
// error is returned wrapped with the attempt count.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff(attempt)):
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
