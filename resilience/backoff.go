package resilience

import (
	"context"
	"math"
	"sync"
	"time"
)

// Step is one row of a stepped backoff schedule. Attempts up to and
// including UpTo wait Delay.
type Step struct {
	UpTo  int
	Delay time.Duration
}

// Schedule maps a 1-indexed attempt count to a delay. Steps must be sorted by
// UpTo. Attempts beyond the last step reuse the last step's delay.
type Schedule []Step

// DefaultSchedule is the adaptive backoff used for capability probes and
// (re)connects: 10s for the first five failures, then one minute, then five
// minutes, then ten minutes for everything after the 25th failure.
var DefaultSchedule = Schedule{
	{UpTo: 5, Delay: 10 * time.Second},
	{UpTo: 15, Delay: time.Minute},
	{UpTo: 25, Delay: 5 * time.Minute},
	{UpTo: math.MaxInt, Delay: 10 * time.Minute},
}

// Delay returns the wait for the given attempt. Attempts below 1 are treated
// as the first attempt. An empty schedule never waits.
func (s Schedule) Delay(attempt int) time.Duration {
	if len(s) == 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	for _, step := range s {
		if attempt <= step.UpTo {
			return step.Delay
		}
	}
	return s[len(s)-1].Delay
}

// AdaptiveBackoff returns the DefaultSchedule delay for attempt.
func AdaptiveBackoff(attempt int) time.Duration {
	return DefaultSchedule.Delay(attempt)
}

// Stop is a cooperative stop signal. It is meant to be triggered from a
// goroutine other than the one reading, to abort pending backoff sleeps and
// retry loops without waiting out the full interval.
//
// A nil *Stop is valid and never fires.
type Stop struct {
	once sync.Once
	ch   chan struct{}
}

// NewStop creates an untriggered stop signal.
func NewStop() *Stop {
	return &Stop{ch: make(chan struct{})}
}

// Stop triggers the signal. Safe to call more than once and from any goroutine.
func (s *Stop) Stop() {
	if s == nil {
		return
	}
	s.once.Do(func() { close(s.ch) })
}

// Done returns a channel closed once the signal has been triggered.
func (s *Stop) Done() <-chan struct{} {
	if s == nil {
		return nil
	}
	return s.ch
}

// Stopped reports whether the signal has been triggered.
func (s *Stop) Stopped() bool {
	if s == nil {
		return false
	}
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Sleep waits for d, returning early with ErrStopped when stop fires or with
// ctx.Err() when the context ends. A non-positive d returns immediately
// unless the stop signal has already fired.
func Sleep(ctx context.Context, stop *Stop, d time.Duration) error {
	if stop.Stopped() {
		return ErrStopped
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-stop.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
