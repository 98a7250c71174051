// Package retry wraps individual upstream calls with bounded
// exponential-backoff retry.
//
// Retryability is a typed property of the error, not a string match: an
// error may implement Retryable() bool, and the layer that raises the
// error decides. Errors that do not implement the interface are assumed
// transient (timeouts, connection resets) and are retried.
package retry

import (
	"context"
	"errors"
	"time"
)

// Default policy applied by callers that have no reason to deviate.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
)

// retryable is implemented by errors that carry their own retry
// classification, e.g. an upstream HTTP error that knows whether its
// status class is worth another attempt.
type retryable interface {
	Retryable() bool
}

// IsRetryable reports whether err is worth retrying. Context
// cancellation is never retryable. Errors that expose a Retryable
// classification are trusted; everything else is treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// Do executes op up to maxAttempts times, sleeping
// baseDelay * 2^(attempt-1) between attempts. A non-retryable error
// short-circuits immediately. After exhausting attempts the last error
// is returned.
//
// Do wraps one upstream call: callers retrying several batches wrap
// each batch independently so a failure in one never re-runs siblings.
func Do[T any](ctx context.Context, maxAttempts int, baseDelay time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}

	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return zero, lastErr
}
