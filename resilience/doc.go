// Package resilience provides the retry and backoff primitives used by
// reconnecting stream sources.
//
// # Backoff
//
// The default policy is a stepped schedule keyed on the 1-indexed count of
// consecutive failures:
//
//	attempts  1-5   -> 10s
//	attempts  6-15  -> 1m
//	attempts 16-25  -> 5m
//	attempts 26+    -> 10m
//
// Schedules are plain values, so tests and callers can substitute their own.
//
// # Cancellation
//
// Every sleep is interruptible. A Stop signal, usually triggered from another
// goroutine, aborts a pending sleep immediately with ErrStopped; a cancelled
// context aborts it with ctx.Err().
//
// # Usage
//
//	stop := resilience.NewStop()
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts: 5,
//	    Stop:        stop,
//	})
//
//	err := retry.Execute(ctx, func(ctx context.Context) error {
//	    return probe(ctx)
//	})
//	if errors.Is(err, resilience.ErrMaxRetriesExceeded) {
//	    // give up
//	}
package resilience
