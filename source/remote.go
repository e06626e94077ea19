package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonwraymond/streamsource/auth"
	"github.com/jonwraymond/streamsource/fetch"
	"github.com/jonwraymond/streamsource/observe"
)

// RemoteConfig configures a Remote source.
type RemoteConfig struct {
	// URL to GET. Required.
	URL string

	// Header is sent with the request (optional).
	Header http.Header

	// Credentials are applied to the request (optional).
	Credentials auth.Credentials

	// Timeout bounds the wait for response headers and each body read.
	// Zero uses the fetcher's default.
	Timeout time.Duration

	// Fetcher performs the request.
	// Default: fetch.NewHTTPFetcher(fetch.Config{})
	Fetcher fetch.Fetcher

	Common
}

// Remote reads the body of a single HTTP GET. A dropped connection ends the
// stream with an error; see ResilientRemote for reconnection.
type Remote struct {
	core
	url     string
	header  http.Header
	creds   auth.Credentials
	timeout time.Duration
	fetcher fetch.Fetcher

	// guarded by core.mu
	length int64

	body io.ReadCloser
}

var _ Source = (*Remote)(nil)

// NewRemote creates an unopened remote source.
func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.Fetcher == nil {
		cfg.Fetcher = fetch.NewHTTPFetcher(fetch.Config{})
	}
	s := &Remote{
		url:     cfg.URL,
		header:  cfg.Header.Clone(),
		creds:   cfg.Credentials,
		timeout: cfg.Timeout,
		fetcher: cfg.Fetcher,
		length:  SizeUnknown,
	}
	s.init("remote", observe.RedactLocator(cfg.URL), cfg.Common, s.pullRemote)
	return s
}

// Check only rejects an empty URL; anything else is known after connecting.
func (s *Remote) Check(context.Context) error {
	if s.url == "" {
		return fmt.Errorf("%w: empty url", ErrValidation)
	}
	return nil
}

// Open issues the GET.
func (s *Remote) Open(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	err := s.mw.Run(ctx, s.meta, "connect", func(ctx context.Context) error {
		if err := s.Check(ctx); err != nil {
			return err
		}
		resp, err := detachedGet(ctx, s.fetcher, fetch.Request{
			URL:         s.url,
			Header:      s.header,
			Credentials: s.creds,
			Timeout:     s.timeout,
		})
		if err != nil {
			return err
		}
		s.body = resp.Body
		s.mu.Lock()
		s.length = resp.ContentLength
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		s.end()
	}
	return err
}

// Close closes the response body.
func (s *Remote) Close(ctx context.Context) {
	if !s.end() || s.body == nil {
		return
	}
	if err := s.body.Close(); err != nil {
		s.log.Warn(ctx, "closing response body failed", observe.Err(err))
	}
}

// Size returns the response's Content-Length once open, else SizeUnknown.
func (s *Remote) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.length
}

func (s *Remote) pullRemote(ctx context.Context, size int) ([]byte, error) {
	return readBody(ctx, s.body, size)
}

// State returns a "remote" snapshot.
func (s *Remote) State() State {
	st := s.state("remote")
	st["url"] = observe.RedactLocator(s.url)
	st["headers"] = observe.RedactHeaders(s.header)
	st["timeout"] = s.timeout.String()
	st["content_length"] = s.Size()
	return st
}

// ShortDesc implements Source.
func (s *Remote) ShortDesc() string {
	return fmt.Sprintf("Remote(data_read=%d, url=%q)", s.BytesRead(), observe.RedactLocator(s.url))
}

// String returns the URL with credentials redacted.
func (s *Remote) String() string { return observe.RedactLocator(s.url) }

// detachedGet issues a GET whose body outlives ctx. Cancelling ctx aborts
// the request while waiting for headers; afterwards the body lives until it
// is closed.
func detachedGet(ctx context.Context, f fetch.Fetcher, req fetch.Request) (*fetch.Response, error) {
	dctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, cancel)

	resp, err := f.Get(dctx, req)
	if !stop() {
		// ctx ended while the request was in flight.
		if resp != nil {
			resp.Body.Close()
		}
		cancel()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, context.Canceled
	}
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// readBody reads one chunk from body. Cancelling ctx closes body so a
// blocked read returns promptly; the context error is reported instead of
// the resulting read error.
func readBody(ctx context.Context, body io.ReadCloser, size int) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { body.Close() })
	data, err := readChunk(body, size)
	stop()
	if len(data) > 0 {
		return data, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		return nil, ctxErr
	}
	return nil, err
}
