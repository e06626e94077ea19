package health

import (
	"context"
	"net/http"
	"time"

	"github.com/jonwraymond/streamsource/auth"
	"github.com/jonwraymond/streamsource/fetch"
	"github.com/jonwraymond/streamsource/source"
)

// Status represents the health status of a component.
type Status int

const (
	// StatusHealthy indicates the component is functioning normally.
	StatusHealthy Status = iota
	// StatusDegraded indicates the component is functioning but with issues.
	StatusDegraded
	// StatusUnhealthy indicates the component is not functioning properly.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result contains the outcome of a health check.
type Result struct {
	// Status is the health status.
	Status Status

	// Message provides additional context about the status.
	Message string

	// Details contains arbitrary metadata about the check.
	Details map[string]any

	// Duration is how long the check took.
	Duration time.Duration

	// Timestamp is when the check was performed.
	Timestamp time.Time

	// Error is the error if the check failed.
	Error error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{
		Status:    StatusHealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{
		Status:    StatusDegraded,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{
		Status:    StatusUnhealthy,
		Message:   message,
		Error:     err,
		Timestamp: time.Now(),
	}
}

// WithDetails adds details to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// WithDuration sets the duration on a result.
func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// Checker is the interface for health checks.
type Checker interface {
	// Name returns the name of this checker.
	Name() string

	// Check performs the health check and returns the result.
	Check(ctx context.Context) Result
}

// CheckerFunc is an adapter to allow ordinary functions to be used as Checkers.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a new CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the name of this checker.
func (f *CheckerFunc) Name() string {
	return f.name
}

// Check performs the health check.
func (f *CheckerFunc) Check(ctx context.Context) Result {
	return f.fn(ctx)
}

// SourceChecker reports whether a source passes its viability check.
type SourceChecker struct {
	name string
	src  source.Source
}

// NewSourceChecker creates a checker over src.
func NewSourceChecker(name string, src source.Source) *SourceChecker {
	return &SourceChecker{name: name, src: src}
}

// Name returns the name of this checker.
func (c *SourceChecker) Name() string {
	return c.name
}

// Check runs Source.Check and attaches the source's snapshot.
func (c *SourceChecker) Check(ctx context.Context) Result {
	details := map[string]any{
		"size":  c.src.Size(),
		"state": c.src.State(),
	}
	if err := c.src.Check(ctx); err != nil {
		return Unhealthy("source is not readable", err).WithDetails(details)
	}
	return Healthy("source is readable").WithDetails(details)
}

// RemoteCheckerConfig configures a RemoteChecker.
type RemoteCheckerConfig struct {
	// Name of the checker.
	// Default: "remote"
	Name string

	// URL to probe. Required.
	URL string

	// Header and Credentials are sent with the probe (optional).
	Header      http.Header
	Credentials auth.Credentials

	// Timeout bounds the probe.
	// Default: 5 seconds
	Timeout time.Duration

	// Fetcher performs the probe.
	// Default: fetch.NewHTTPFetcher(fetch.Config{})
	Fetcher fetch.Fetcher
}

// RemoteChecker probes a remote with HEAD. A remote that answers but cannot
// be resumed reliably, because it lacks byte ranges or a length, is
// Degraded.
type RemoteChecker struct {
	config RemoteCheckerConfig
}

// NewRemoteChecker creates a remote checker.
func NewRemoteChecker(config RemoteCheckerConfig) *RemoteChecker {
	if config.Name == "" {
		config.Name = "remote"
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.Fetcher == nil {
		config.Fetcher = fetch.NewHTTPFetcher(fetch.Config{})
	}
	return &RemoteChecker{config: config}
}

// Name returns the name of this checker.
func (c *RemoteChecker) Name() string {
	return c.config.Name
}

// Check probes the remote.
func (c *RemoteChecker) Check(ctx context.Context) Result {
	res, err := c.config.Fetcher.Probe(ctx, fetch.Request{
		URL:         c.config.URL,
		Header:      c.config.Header,
		Credentials: c.config.Credentials,
		Timeout:     c.config.Timeout,
	})
	if err != nil {
		result := Unhealthy("probe failed", err)
		if code := fetch.StatusCode(err); code != 0 {
			result = result.WithDetails(map[string]any{"status_code": code})
		}
		return result
	}

	details := map[string]any{
		"status_code":    res.StatusCode,
		"content_length": res.ContentLength,
		"accept_ranges":  res.AcceptRanges,
	}
	switch {
	case !res.AcceptRanges:
		return Degraded("remote does not accept byte ranges, reads cannot resume").WithDetails(details)
	case res.ContentLength < 0:
		return Degraded("remote does not report a length, truncation cannot be detected").WithDetails(details)
	}
	return Healthy("remote supports resumable reads").WithDetails(details)
}
