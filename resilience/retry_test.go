package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastSchedule keeps retry tests in the millisecond range.
var fastSchedule = Schedule{{UpTo: 2, Delay: time.Millisecond}, {UpTo: 100, Delay: 2 * time.Millisecond}}

func TestNewRetry(t *testing.T) {
	r := NewRetry(RetryConfig{})

	if r.config.MaxAttempts != 0 {
		t.Errorf("MaxAttempts = %d, want 0 (unbounded)", r.config.MaxAttempts)
	}
	if r.config.Strategy != BackoffStepped {
		t.Errorf("Strategy = %v, want BackoffStepped", r.config.Strategy)
	}
	if len(r.config.Schedule) != len(DefaultSchedule) {
		t.Errorf("Schedule has %d steps, want %d", len(r.config.Schedule), len(DefaultSchedule))
	}
	if r.config.InitialDelay != 100*time.Millisecond {
		t.Errorf("InitialDelay = %v, want 100ms", r.config.InitialDelay)
	}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3, Schedule: fastSchedule})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_SuccessOnRetry(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3, Schedule: fastSchedule})

	attempts := 0
	testErr := errors.New("test error")

	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return testErr
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_ExhaustedAttempts(t *testing.T) {
	var retries []int
	r := NewRetry(RetryConfig{
		MaxAttempts: 3,
		Schedule:    fastSchedule,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			retries = append(retries, attempt)
		},
	})

	attempts := 0
	testErr := errors.New("persistent error")

	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return testErr
	})

	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Errorf("Execute() error = %v, want ErrMaxRetriesExceeded", err)
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Execute() error = %v, want it to wrap the last failure", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	// No sleep follows the final failed attempt.
	if len(retries) != 2 {
		t.Errorf("OnRetry called %d times, want 2", len(retries))
	}
}

func TestRetry_UnboundedUntilSuccess(t *testing.T) {
	r := NewRetry(RetryConfig{Schedule: Schedule{{UpTo: 1000, Delay: 0}}})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 50 {
			return errors.New("flaky")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 50 {
		t.Errorf("attempts = %d, want 50", attempts)
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts: 10,
		Schedule:    Schedule{{UpTo: 10, Delay: 100 * time.Millisecond}},
	})

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := r.Execute(ctx, func(ctx context.Context) error {
		return errors.New("test error")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestRetry_StopDuringBackoff(t *testing.T) {
	stop := NewStop()
	r := NewRetry(RetryConfig{
		Stop:     stop,
		Schedule: Schedule{{UpTo: 10, Delay: time.Hour}},
	})

	go func() {
		time.Sleep(20 * time.Millisecond)
		stop.Stop()
	}()

	start := time.Now()
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("down")
	})

	if !errors.Is(err, ErrStopped) {
		t.Errorf("Execute() error = %v, want ErrStopped", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Execute() took %v after stop, want well under a second", elapsed)
	}
}

func TestRetry_StoppedBeforeStart(t *testing.T) {
	stop := NewStop()
	stop.Stop()
	r := NewRetry(RetryConfig{Stop: stop})

	called := false
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})

	if !errors.Is(err, ErrStopped) {
		t.Errorf("Execute() error = %v, want ErrStopped", err)
	}
	if called {
		t.Error("op should not run once stopped")
	}
}

func TestRetry_RetryIf(t *testing.T) {
	retryableErr := errors.New("retryable")
	nonRetryableErr := errors.New("non-retryable")

	r := NewRetry(RetryConfig{
		MaxAttempts: 3,
		Schedule:    fastSchedule,
		RetryIf: func(err error) bool {
			return err == retryableErr
		},
	})

	t.Run("retryable error", func(t *testing.T) {
		attempts := 0
		err := r.Execute(context.Background(), func(ctx context.Context) error {
			attempts++
			return retryableErr
		})

		if !errors.Is(err, retryableErr) {
			t.Errorf("Execute() error = %v, want %v", err, retryableErr)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("non-retryable error", func(t *testing.T) {
		attempts := 0
		err := r.Execute(context.Background(), func(ctx context.Context) error {
			attempts++
			return nonRetryableErr
		})

		if err != nonRetryableErr {
			t.Errorf("Execute() error = %v, want %v", err, nonRetryableErr)
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})
}

func TestRetry_OnRetryReceivesScheduleDelay(t *testing.T) {
	var delays []time.Duration

	r := NewRetry(RetryConfig{
		MaxAttempts: 4,
		Schedule:    fastSchedule,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	})

	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("test error")
	})

	want := []time.Duration{time.Millisecond, time.Millisecond, 2 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestRetry_BackoffStrategies(t *testing.T) {
	t.Run("stepped", func(t *testing.T) {
		r := NewRetry(RetryConfig{})

		if got := r.Delay(16); got != 5*time.Minute {
			t.Errorf("Stepped delay for attempt 16 = %v, want 5m", got)
		}
	})

	t.Run("exponential", func(t *testing.T) {
		r := NewRetry(RetryConfig{
			InitialDelay: 10 * time.Millisecond,
			Multiplier:   2.0,
			Strategy:     BackoffExponential,
		})

		if delay := r.Delay(3); delay != 40*time.Millisecond {
			t.Errorf("Exponential delay for attempt 3 = %v, want 40ms", delay)
		}
	})

	t.Run("constant", func(t *testing.T) {
		r := NewRetry(RetryConfig{
			InitialDelay: 10 * time.Millisecond,
			Strategy:     BackoffConstant,
		})

		if delay := r.Delay(3); delay != 10*time.Millisecond {
			t.Errorf("Constant delay for attempt 3 = %v, want 10ms", delay)
		}
	})

	t.Run("max delay cap", func(t *testing.T) {
		r := NewRetry(RetryConfig{
			InitialDelay: 1 * time.Second,
			MaxDelay:     5 * time.Second,
			Multiplier:   10.0,
			Strategy:     BackoffExponential,
		})

		if delay := r.Delay(5); delay != 5*time.Second {
			t.Errorf("Capped delay = %v, want 5s", delay)
		}
	})
}

func TestRetry_Config(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 5})

	if config := r.Config(); config.MaxAttempts != 5 {
		t.Errorf("Config().MaxAttempts = %d, want 5", config.MaxAttempts)
	}
}
