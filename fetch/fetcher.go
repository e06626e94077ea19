package fetch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/streamsource/auth"
)

// Request describes one probe or GET.
type Request struct {
	URL string

	// Header is sent as is; it is cloned before Range or credentials are added.
	Header http.Header

	// Credentials are applied to every attempt (optional).
	Credentials auth.Credentials

	// Offset > 0 adds "Range: bytes=<Offset>-" to a GET.
	Offset int64

	// Timeout overrides the fetcher's default when > 0.
	Timeout time.Duration
}

// ProbeResult holds what a capability probe learned.
type ProbeResult struct {
	StatusCode int
	Header     http.Header

	// ContentLength is -1 when the server did not report it.
	ContentLength int64

	// AcceptRanges reports whether Accept-Ranges mentions "bytes".
	AcceptRanges bool
}

// Response is a live streaming GET. The caller owns Body and must close it.
type Response struct {
	StatusCode int
	Header     http.Header

	// ContentLength of this response's body, -1 when unknown.
	ContentLength int64

	// Partial reports a 206 answer to a Range request.
	Partial bool

	Body io.ReadCloser
}

// Fetcher is the HTTP collaborator contract.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: both operations honor cancellation.
// - Errors: non-2xx responses are returned as *StatusError; Get never returns
//   a Response together with an error.
type Fetcher interface {
	Probe(ctx context.Context, req Request) (*ProbeResult, error)
	Get(ctx context.Context, req Request) (*Response, error)
}

// SupportsRanges reports whether an Accept-Ranges header value allows byte ranges.
func SupportsRanges(acceptRanges string) bool {
	return strings.Contains(strings.ToLower(acceptRanges), "bytes")
}
