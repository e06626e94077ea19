package resilience

import (
	"context"
	"fmt"
	"math"
	"time"
)

// BackoffStrategy defines how delays increase between retries.
type BackoffStrategy int

const (
	// BackoffStepped looks the delay up in RetryConfig.Schedule.
	BackoffStepped BackoffStrategy = iota
	// BackoffExponential doubles the delay each attempt.
	BackoffExponential
	// BackoffConstant uses the same delay for all retries.
	BackoffConstant
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Zero or negative means retry until success, stop or context end.
	MaxAttempts int

	// Strategy is the backoff strategy.
	// Default: BackoffStepped
	Strategy BackoffStrategy

	// Schedule is used by BackoffStepped.
	// Default: DefaultSchedule
	Schedule Schedule

	// InitialDelay is the first delay for BackoffExponential and the only
	// delay for BackoffConstant.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps exponential delays.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier for exponential backoff.
	// Default: 2.0
	Multiplier float64

	// Stop aborts the loop and any pending sleep when triggered.
	Stop *Stop

	// RetryIf determines if an error should trigger a retry.
	// Default: all non-nil errors trigger retry.
	RetryIf func(err error) bool

	// OnRetry is called after a failed attempt, before sleeping.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry implements retry with backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.Schedule == nil {
		config.Schedule = DefaultSchedule
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}

	return &Retry{config: config}
}

// Execute runs op until it succeeds, a non-retryable error is returned, the
// attempt budget is spent, the stop signal fires or ctx ends.
//
// Each call to Execute has its own attempt budget.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		if r.config.Stop.Stopped() {
			return ErrStopped
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		if !r.config.RetryIf(err) {
			return err
		}

		if r.config.MaxAttempts > 0 && attempt >= r.config.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempt, err)
		}

		delay := r.Delay(attempt)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		if err := Sleep(ctx, r.config.Stop, delay); err != nil {
			return err
		}
	}
}

// Delay returns the wait after the given failed attempt.
func (r *Retry) Delay(attempt int) time.Duration {
	var delay time.Duration

	switch r.config.Strategy {
	case BackoffConstant:
		delay = r.config.InitialDelay

	case BackoffExponential:
		multiplier := math.Pow(r.config.Multiplier, float64(attempt-1))
		delay = time.Duration(float64(r.config.InitialDelay) * multiplier)
		if delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}

	default:
		delay = r.config.Schedule.Delay(attempt)
	}

	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
