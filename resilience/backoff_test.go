package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAdaptiveBackoff_Table(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 10 * time.Second},
		{1, 10 * time.Second},
		{5, 10 * time.Second},
		{6, time.Minute},
		{15, time.Minute},
		{16, 5 * time.Minute},
		{25, 5 * time.Minute},
		{26, 10 * time.Minute},
		{1000, 10 * time.Minute},
	}

	for _, tt := range tests {
		if got := AdaptiveBackoff(tt.attempt); got != tt.want {
			t.Errorf("AdaptiveBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestAdaptiveBackoff_MonotonicNonDecreasing(t *testing.T) {
	prev := AdaptiveBackoff(1)
	for n := 2; n <= 60; n++ {
		cur := AdaptiveBackoff(n)
		if cur < prev {
			t.Fatalf("AdaptiveBackoff(%d) = %v < AdaptiveBackoff(%d) = %v", n, cur, n-1, prev)
		}
		prev = cur
	}
}

func TestSchedule_EmptyNeverWaits(t *testing.T) {
	if got := Schedule(nil).Delay(3); got != 0 {
		t.Errorf("empty schedule Delay = %v, want 0", got)
	}
}

func TestSchedule_BeyondLastStep(t *testing.T) {
	s := Schedule{{UpTo: 1, Delay: time.Second}, {UpTo: 2, Delay: 2 * time.Second}}
	if got := s.Delay(9); got != 2*time.Second {
		t.Errorf("Delay(9) = %v, want 2s", got)
	}
}

func TestStop_Idempotent(t *testing.T) {
	s := NewStop()
	if s.Stopped() {
		t.Fatal("new stop should not be triggered")
	}
	s.Stop()
	s.Stop()
	if !s.Stopped() {
		t.Fatal("stop should be triggered")
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("Done() should be closed")
	}
}

func TestStop_NilIsInert(t *testing.T) {
	var s *Stop
	s.Stop()
	if s.Stopped() {
		t.Error("nil stop should never report stopped")
	}
	if s.Done() != nil {
		t.Error("nil stop should return a nil channel")
	}
}

func TestSleep_Completes(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), NewStop(), 20*time.Millisecond); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Sleep() returned after %v, want >= 20ms", elapsed)
	}
}

func TestSleep_InterruptedByStop(t *testing.T) {
	stop := NewStop()

	go func() {
		time.Sleep(30 * time.Millisecond)
		stop.Stop()
	}()

	start := time.Now()
	err := Sleep(context.Background(), stop, 10*time.Second)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrStopped) {
		t.Fatalf("Sleep() error = %v, want ErrStopped", err)
	}
	// Must return within one ~100ms polling tick of the stop request.
	if elapsed > 30*time.Millisecond+100*time.Millisecond {
		t.Errorf("Sleep() returned after %v, want within one tick of stop", elapsed)
	}
}

func TestSleep_InterruptedByContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Sleep(ctx, nil, 10*time.Second)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Sleep() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestSleep_AlreadyStopped(t *testing.T) {
	stop := NewStop()
	stop.Stop()
	if err := Sleep(context.Background(), stop, 0); !errors.Is(err, ErrStopped) {
		t.Errorf("Sleep() error = %v, want ErrStopped", err)
	}
}

func BenchmarkAdaptiveBackoff(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = AdaptiveBackoff(i % 40)
	}
}
