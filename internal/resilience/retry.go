// Package resilience provides bounded retry and provider failover primitives
// for the external AI service calls made by the tutoring pipeline.
//
// The central type is [Retrier], a capped exponential-backoff retry loop with
// pluggable error classification. [ChatFailover] and [RetryingChat] compose
// chat providers so that a failing primary backend is bypassed in favour of
// healthy fallbacks and transient failures are retried without ever retrying
// client errors.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryConfig holds tuning knobs for a [Retrier].
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Default: 3. The underlying policy only demands "retry non-client
	// failures"; the cap exists so a persistent outage cannot spin forever.
	MaxAttempts int

	// BaseDelay is the sleep before the second attempt; each subsequent
	// attempt doubles it. Default: 250ms.
	BaseDelay time.Duration

	// MaxDelay caps the per-attempt backoff. Default: 4s.
	MaxDelay time.Duration
}

// Retrier retries an operation with exponential backoff until it succeeds,
// the error is classified as non-retryable, the attempt budget is spent, or
// the context is cancelled.
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	// retryable reports whether err is worth another attempt. A nil func
	// retries every error.
	retryable func(error) bool
}

// NewRetrier creates a [Retrier] with the supplied configuration. Zero-value
// config fields are replaced with sensible defaults. retryable may be nil, in
// which case every error is considered transient.
func NewRetrier(cfg RetryConfig, retryable func(error) bool) *Retrier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 250 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 4 * time.Second
	}
	return &Retrier{
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		maxDelay:    cfg.MaxDelay,
		retryable:   retryable,
	}
}

// Do runs fn until it succeeds or the retry budget is exhausted. A
// non-retryable error is returned immediately without further attempts.
func (r *Retrier) Do(ctx context.Context, fn func() error) error {
	_, err := DoWithResult(ctx, r, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult runs fn until it succeeds or the retry budget is exhausted,
// returning fn's result. This is a package-level function because Go does not
// support method-level type parameters.
func DoWithResult[T any](ctx context.Context, r *Retrier, fn func() (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)

	delay := r.baseDelay
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, fmt.Errorf("retry aborted: %w", ctx.Err())
			}
			delay *= 2
			if delay > r.maxDelay {
				delay = r.maxDelay
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if r.retryable != nil && !r.retryable(err) {
			return zero, err
		}
		if attempt < r.maxAttempts {
			slog.Warn("transient failure, will retry",
				"attempt", attempt, "max_attempts", r.maxAttempts, "error", err)
		}
	}

	return zero, fmt.Errorf("all %d attempts failed: %w", r.maxAttempts, lastErr)
}
