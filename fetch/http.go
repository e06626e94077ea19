package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config configures an HTTPFetcher.
type Config struct {
	// Client performs the requests.
	// Default: a client with http.DefaultTransport and MaxRedirects.
	Client *http.Client

	// Timeout bounds response headers and each body read. Zero disables it.
	// Default: 0
	Timeout time.Duration

	// MaxRedirects caps redirects on the default client.
	// Default: 10
	MaxRedirects int

	// UserAgent is sent when the request has none.
	UserAgent string
}

// HTTPFetcher implements Fetcher over net/http.
type HTTPFetcher struct {
	config Config
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with defaults applied.
func NewHTTPFetcher(config Config) *HTTPFetcher {
	if config.MaxRedirects <= 0 {
		config.MaxRedirects = 10
	}
	client := config.Client
	if client == nil {
		limit := config.MaxRedirects
		client = &http.Client{
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= limit {
					return fmt.Errorf("fetch: stopped after %d redirects", limit)
				}
				return nil
			},
		}
	}
	return &HTTPFetcher{config: config, client: client}
}

// Probe issues a HEAD request.
func (f *HTTPFetcher) Probe(ctx context.Context, req Request) (*ProbeResult, error) {
	resp, cancel, err := f.do(ctx, http.MethodHead, req, 0)
	if err != nil {
		return nil, err
	}
	defer cancel()
	_ = resp.Body.Close()

	return &ProbeResult{
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		ContentLength: headerLength(resp),
		AcceptRanges:  SupportsRanges(resp.Header.Get("Accept-Ranges")),
	}, nil
}

// Get issues a streaming GET, resuming at req.Offset when it is positive.
func (f *HTTPFetcher) Get(ctx context.Context, req Request) (*Response, error) {
	if req.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset %d", ErrInvalidRequest, req.Offset)
	}
	resp, cancel, err := f.do(ctx, http.MethodGet, req, req.Offset)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		ContentLength: headerLength(resp),
		Partial:       resp.StatusCode == http.StatusPartialContent,
		Body: &idleTimeoutBody{
			body:    resp.Body,
			timeout: f.timeout(req),
			cancel:  cancel,
		},
	}, nil
}

func (f *HTTPFetcher) timeout(req Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return f.config.Timeout
}

// do sends the request and returns a 2xx response whose lifetime is bound to
// the returned cancel func.
func (f *HTTPFetcher) do(ctx context.Context, method string, req Request, offset int64) (*http.Response, context.CancelFunc, error) {
	u, err := url.Parse(req.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, nil, fmt.Errorf("%w: url %q", ErrInvalidRequest, req.URL)
	}

	ctx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}
	// Transparent gzip would hide Content-Length and break byte offsets.
	if httpReq.Header.Get("Accept-Encoding") == "" {
		httpReq.Header.Set("Accept-Encoding", "identity")
	}
	if f.config.UserAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", f.config.UserAgent)
	}
	if offset > 0 {
		httpReq.Header.Set("Range", "bytes="+strconv.FormatInt(offset, 10)+"-")
	}
	if req.Credentials != nil {
		if err := req.Credentials.Apply(ctx, httpReq); err != nil {
			cancel()
			return nil, nil, err
		}
	}

	var timer *time.Timer
	if d := f.timeout(req); d > 0 {
		timer = time.AfterFunc(d, cancel)
	}
	resp, err := f.client.Do(httpReq)
	timedOut := timer != nil && !timer.Stop()
	if err != nil {
		cancel()
		if timedOut {
			return nil, nil, fmt.Errorf("%w: %s %s: %w", ErrTimeout, method, req.URL, err)
		}
		return nil, nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		cancel()
		return nil, nil, &StatusError{Method: method, URL: req.URL, StatusCode: resp.StatusCode}
	}
	return resp, cancel, nil
}

func headerLength(resp *http.Response) int64 {
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	if resp.ContentLength >= 0 && resp.Request != nil && resp.Request.Method != http.MethodHead {
		return resp.ContentLength
	}
	return -1
}

// idleTimeoutBody fails a Read that blocks longer than timeout by canceling
// the request context.
type idleTimeoutBody struct {
	body    io.ReadCloser
	timeout time.Duration
	cancel  context.CancelFunc
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	if b.timeout <= 0 {
		return b.body.Read(p)
	}
	t := time.AfterFunc(b.timeout, b.cancel)
	n, err := b.body.Read(p)
	if !t.Stop() && err != nil && !errors.Is(err, io.EOF) {
		err = fmt.Errorf("%w: body read: %w", ErrTimeout, err)
	}
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	err := b.body.Close()
	b.cancel()
	return err
}

var _ Fetcher = (*HTTPFetcher)(nil)
