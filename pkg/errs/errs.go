// Package errs defines the typed error taxonomy processors use to tell the
// worker pool whether a failure is worth retrying: programmer-error-shaped
// failures (bad input, missing resource) are non-retryable regardless of
// attempt count, while transient failures (timeouts, 5xx, rate limits, an
// expired token worth one forced refresh) are retried.
package errs

import (
	"errors"
	"fmt"
)

// RetryableError wraps a transient failure (network error, rate limit,
// "transcript not ready yet") that the queue should retry per the job
// type's backoff schedule.
type RetryableError struct {
	Reason string
	Err    error
}

func (e *RetryableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *RetryableError) Unwrap() error { return e.Err }

// NewRetryable wraps err as a RetryableError with the given reason.
func NewRetryable(reason string, err error) *RetryableError {
	return &RetryableError{Reason: reason, Err: err}
}

// NonRetryableError wraps a permanent failure (malformed input, an entity
// that no longer exists) that should fail the job immediately regardless of
// remaining retry budget.
type NonRetryableError struct {
	Reason string
	Err    error
}

func (e *NonRetryableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *NonRetryableError) Unwrap() error { return e.Err }

// NewNonRetryable wraps err as a NonRetryableError with the given reason.
func NewNonRetryable(reason string, err error) *NonRetryableError {
	return &NonRetryableError{Reason: reason, Err: err}
}

// TokenExpiredError signals a Graph API call failed with 401. Nothing in the
// module constructs it: pkg/graph handles a 401 inside its own request loop
// (one forced token refresh, one retry, then a NonRetryableError).
type TokenExpiredError struct {
	Err error
}

func (e *TokenExpiredError) Error() string { return fmt.Sprintf("access token expired: %v", e.Err) }
func (e *TokenExpiredError) Unwrap() error { return e.Err }

// IsRetryable reports whether err (or anything it wraps) is a
// RetryableError. A job that fails with neither RetryableError nor
// NonRetryableError is treated as retryable by default — only explicit
// non-retryable classification stops the retry loop early.
func IsRetryable(err error) bool {
	var nonRetryable *NonRetryableError
	if errors.As(err, &nonRetryable) {
		return false
	}
	return true
}
