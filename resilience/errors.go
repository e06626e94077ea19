package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrMaxRetriesExceeded is returned when max retry attempts are exhausted.
	// The error returned by Retry.Execute wraps both this sentinel and the
	// last failure.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrStopped is returned when a Stop signal interrupts a retry loop or a
	// backoff sleep.
	ErrStopped = errors.New("resilience: stopped")
)
