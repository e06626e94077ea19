package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonwraymond/streamsource/source"
)

// ProgressCheckerConfig configures the progress health checker.
type ProgressCheckerConfig struct {
	// WarningAfter is how long BytesRead may stay flat before the source is
	// reported Degraded.
	// Default: 1 minute
	WarningAfter time.Duration

	// CriticalAfter is how long BytesRead may stay flat before the source is
	// reported Unhealthy.
	// Default: 10 minutes
	CriticalAfter time.Duration

	// Now is the clock.
	// Default: time.Now
	Now func() time.Time
}

// ProgressChecker detects a stalled source. A resilient source stuck in a
// long backoff still looks open; its byte counter does not move.
type ProgressChecker struct {
	name   string
	src    source.Source
	config ProgressCheckerConfig

	mu         sync.Mutex
	lastBytes  int64
	lastChange time.Time
}

// NewProgressChecker creates a progress checker over src.
func NewProgressChecker(name string, src source.Source, config ProgressCheckerConfig) *ProgressChecker {
	if config.WarningAfter <= 0 {
		config.WarningAfter = time.Minute
	}
	if config.CriticalAfter <= 0 {
		config.CriticalAfter = 10 * time.Minute
	}
	if config.CriticalAfter < config.WarningAfter {
		config.CriticalAfter = config.WarningAfter
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &ProgressChecker{name: name, src: src, config: config, lastBytes: -1}
}

// Name returns the name of this checker.
func (p *ProgressChecker) Name() string {
	return p.name
}

// Check compares BytesRead with the previous check.
func (p *ProgressChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	now := p.config.Now()
	n := p.src.BytesRead()

	p.mu.Lock()
	if n != p.lastBytes {
		p.lastBytes = n
		p.lastChange = now
	}
	stalled := now.Sub(p.lastChange)
	p.mu.Unlock()

	details := map[string]any{
		"bytes_read":  n,
		"stalled_for": stalled.String(),
		"desc":        p.src.ShortDesc(),
	}
	if r, ok := p.src.(interface{ Reconnections() int }); ok {
		details["reconnections"] = r.Reconnections()
	}

	if stalled >= p.config.CriticalAfter {
		return Unhealthy(
			fmt.Sprintf("no progress for %s", stalled.Round(time.Second)),
			ErrStalled,
		).WithDetails(details)
	}

	if stalled >= p.config.WarningAfter {
		return Degraded(
			fmt.Sprintf("no progress for %s", stalled.Round(time.Second)),
		).WithDetails(details)
	}

	return Healthy("source is making progress").WithDetails(details)
}
