// Package resilience provides retry, circuit breaker, and provider failover
// primitives for the voxloop pipeline.
//
// [Retry] is a bounded attempt loop with fixed backoff, used by the
// conversation controller for capture start. [CircuitBreaker] is a classic
// three-state breaker (closed → open → half-open). [FallbackGroup] composes
// multiple instances of any provider type with per-entry breakers so a
// failing primary is bypassed in favour of healthy fallbacks.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryConfig tunes a [Retry] loop.
type RetryConfig struct {
	// Name is a human-readable label used in log messages.
	Name string

	// Attempts is the maximum number of times fn runs. Default: 3.
	Attempts int

	// Backoff is the fixed delay between attempts. Default: 500 ms.
	Backoff time.Duration

	// OnRetry, if non-nil, runs between a failed attempt and the next one —
	// after the backoff delay. Use it to reinitialise the failing subsystem.
	// An OnRetry error aborts the loop immediately.
	OnRetry func(ctx context.Context, attempt int, err error) error
}

// withDefaults returns cfg with zero-value fields replaced.
func (c RetryConfig) withDefaults() RetryConfig {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	return c
}

// Retry runs fn up to cfg.Attempts times, sleeping cfg.Backoff between
// attempts, until fn succeeds or ctx is cancelled. This is a bounded loop
// with an explicit attempt counter — never unbounded recursion.
//
// Returns nil on the first success, ctx.Err() on cancellation, or the last
// fn error once all attempts are exhausted.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		slog.Warn("retryable operation failed",
			"name", cfg.Name, "attempt", attempt, "of", cfg.Attempts, "error", lastErr)

		if attempt == cfg.Attempts {
			break
		}

		select {
		case <-time.After(cfg.Backoff):
		case <-ctx.Done():
			return ctx.Err()
		}

		if cfg.OnRetry != nil {
			if err := cfg.OnRetry(ctx, attempt, lastErr); err != nil {
				return fmt.Errorf("resilience: %s: reinitialize after attempt %d: %w", cfg.Name, attempt, err)
			}
		}
	}
	return fmt.Errorf("resilience: %s: %d attempts exhausted: %w", cfg.Name, cfg.Attempts, lastErr)
}
