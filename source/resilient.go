package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonwraymond/streamsource/auth"
	"github.com/jonwraymond/streamsource/fetch"
	"github.com/jonwraymond/streamsource/observe"
	"github.com/jonwraymond/streamsource/resilience"
)

// DefaultReconnectDelay is the pause between a stalled read and the
// reconnect that follows it.
const DefaultReconnectDelay = 10 * time.Second

var (
	errNoConnection = errors.New("source: no live connection")
	errPrematureEnd = errors.New("source: stream ended before the expected length")
)

// ResilientConfig configures a ResilientRemote source.
type ResilientConfig struct {
	// URL to read. Required.
	URL string

	// Header is sent with the probe and every GET (optional).
	Header http.Header

	// Credentials are applied to every request (optional).
	Credentials auth.Credentials

	// Timeout bounds the wait for response headers and each body read, per
	// request. Zero uses the fetcher's default.
	Timeout time.Duration

	// MaxReconnects caps the attempts of one probe or (re)connect episode.
	// The budget starts over on every episode. Zero means unbounded.
	MaxReconnects int

	// MaxTotalReconnects caps the connections made over the source's
	// lifetime. Zero means unbounded.
	MaxTotalReconnects int

	// StartOffset is the byte position of the resource to start from.
	StartOffset int64

	// Stop aborts backoff sleeps and retry loops when triggered.
	// Default: a fresh signal, triggered by ResilientRemote.Stop.
	Stop *resilience.Stop

	// BeforeReconnect runs after a stalled read and before the reconnect,
	// so the caller can persist progress (optional).
	BeforeReconnect func(ctx context.Context, s *ResilientRemote)

	// Schedule is the backoff between failed probe or connect attempts.
	// Default: resilience.DefaultSchedule
	Schedule resilience.Schedule

	// ReconnectDelay is the pause after a stalled read. Negative disables it.
	// Default: DefaultReconnectDelay
	ReconnectDelay time.Duration

	// Fetcher performs the probe and GETs.
	// Default: fetch.NewHTTPFetcher(fetch.Config{})
	Fetcher fetch.Fetcher

	// Now is the clock used for LastReconnection.
	// Default: time.Now
	Now func() time.Time

	Common
}

// Validate checks the configuration.
func (c ResilientConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: empty url", ErrValidation)
	}
	if c.StartOffset < 0 {
		return fmt.Errorf("%w: negative start offset %d", ErrValidation, c.StartOffset)
	}
	if c.MaxReconnects < 0 || c.MaxTotalReconnects < 0 {
		return fmt.Errorf("%w: negative reconnect cap", ErrValidation)
	}
	return nil
}

// ResilientRemote reads an HTTP resource and survives dropped connections.
//
// Open probes the resource with HEAD to learn its length and whether it
// accepts byte ranges, then connects. When a read fails, or comes back
// empty before the known length has been delivered, the source reconnects
// with "Range: bytes=<offset>-" where offset is StartOffset plus BytesRead,
// so the caller sees one uninterrupted stream. Failed probes and connects
// are retried with adaptive backoff.
//
// An empty read is the end of the stream when the length is unknown, or
// when StartOffset+BytesRead has reached it.
type ResilientRemote struct {
	core

	url             string
	header          http.Header
	creds           auth.Credentials
	timeout         time.Duration
	maxReconnects   int
	maxTotal        int
	startOffset     int64
	stop            *resilience.Stop
	beforeReconnect func(ctx context.Context, s *ResilientRemote)
	schedule        resilience.Schedule
	reconnectDelay  time.Duration
	fetcher         fetch.Fetcher
	now             func() time.Time
	invalid         error

	// guarded by core.mu
	contentLength      int64
	rangeSupported     bool
	headHeaders        http.Header
	currentLength      int64
	reconnections      int
	totalReconnections int
	lastReconnection   time.Time

	// Reader goroutine only.
	body   io.ReadCloser
	failed error // terminal failure, returned by every later read
}

var _ Source = (*ResilientRemote)(nil)

// NewResilientRemote creates an unopened resilient remote source. An invalid
// config is reported by Check and Open.
func NewResilientRemote(cfg ResilientConfig) *ResilientRemote {
	if cfg.Stop == nil {
		cfg.Stop = resilience.NewStop()
	}
	if cfg.Schedule == nil {
		cfg.Schedule = resilience.DefaultSchedule
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = fetch.NewHTTPFetcher(fetch.Config{})
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &ResilientRemote{
		url:             cfg.URL,
		header:          cfg.Header.Clone(),
		creds:           cfg.Credentials,
		timeout:         cfg.Timeout,
		maxReconnects:   cfg.MaxReconnects,
		maxTotal:        cfg.MaxTotalReconnects,
		startOffset:     cfg.StartOffset,
		stop:            cfg.Stop,
		beforeReconnect: cfg.BeforeReconnect,
		schedule:        cfg.Schedule,
		reconnectDelay:  cfg.ReconnectDelay,
		fetcher:         cfg.Fetcher,
		now:             cfg.Now,
		invalid:         cfg.Validate(),
		contentLength:   SizeUnknown,
		currentLength:   SizeUnknown,
	}
	s.init("resilient", observe.RedactLocator(cfg.URL), cfg.Common, s.pullResilient)
	return s
}

// Check reports an invalid configuration. Everything else is only known
// after connecting.
func (s *ResilientRemote) Check(context.Context) error {
	return s.invalid
}

// Open discovers the resource's capabilities and connects.
func (s *ResilientRemote) Open(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	if err := s.open(ctx); err != nil {
		s.end()
		return err
	}
	return nil
}

func (s *ResilientRemote) open(ctx context.Context) error {
	if err := s.Check(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.reconnections = 0
	s.mu.Unlock()

	if err := s.discover(ctx); err != nil {
		return err
	}
	return s.connect(ctx)
}

// Close closes the live connection.
func (s *ResilientRemote) Close(ctx context.Context) {
	if !s.end() {
		return
	}
	s.closeBody(ctx)
}

// Stop triggers the stop signal: pending backoff sleeps return promptly and
// the source fails with resilience.ErrStopped instead of reconnecting.
func (s *ResilientRemote) Stop() { s.stop.Stop() }

// StopSignal returns the stop signal shared with the retry loops.
func (s *ResilientRemote) StopSignal() *resilience.Stop { return s.stop }

func (s *ResilientRemote) request(offset int64) fetch.Request {
	return fetch.Request{
		URL:         s.url,
		Header:      s.header,
		Credentials: s.creds,
		Offset:      offset,
		Timeout:     s.timeout,
	}
}

// newRetry builds the backoff loop for one probe or connect episode.
func (s *ResilientRemote) newRetry(ctx context.Context, op string) *resilience.Retry {
	return resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: s.maxReconnects,
		Strategy:    resilience.BackoffStepped,
		Schedule:    s.schedule,
		Stop:        s.stop,
		RetryIf: func(err error) bool {
			return ctx.Err() == nil && !permanent(err)
		},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			s.log.Warn(ctx, "attempt failed, backing off",
				observe.F("op", op),
				observe.F("attempt", attempt),
				observe.F("delay_ms", delay.Milliseconds()),
				observe.Err(err),
			)
			s.mw.Metrics().RecordRetry(ctx, s.meta, op, delay)
		},
	})
}

// permanent reports errors that no retry can fix.
func permanent(err error) bool {
	return errors.Is(err, fetch.ErrInvalidRequest) || errors.Is(err, ErrValidation)
}

// discover probes the resource. A server that rejects HEAD outright leaves
// the length and range support unknown.
func (s *ResilientRemote) discover(ctx context.Context) error {
	var res *fetch.ProbeResult
	err := s.mw.Run(ctx, s.meta, "probe", func(ctx context.Context) error {
		return s.newRetry(ctx, "probe").Execute(ctx, func(ctx context.Context) error {
			r, err := s.fetcher.Probe(ctx, s.request(0))
			switch fetch.StatusCode(err) {
			case http.StatusMethodNotAllowed, http.StatusNotImplemented:
				return nil
			}
			if err != nil {
				s.log.Warn(ctx, "capability probe failed", observe.Err(err))
				return err
			}
			res = r
			return nil
		})
	})
	if err != nil {
		return err
	}

	if res == nil {
		s.log.Error(ctx, "remote does not support HEAD requests, end of stream cannot be verified")
		return nil
	}

	s.mu.Lock()
	s.headHeaders = res.Header.Clone()
	s.contentLength = res.ContentLength
	s.rangeSupported = res.AcceptRanges
	s.mu.Unlock()

	if res.ContentLength < 0 {
		s.log.Error(ctx, "remote does not report content length, end of stream cannot be verified")
	}
	s.log.Debug(ctx, "capabilities discovered",
		observe.F("content_length", res.ContentLength),
		observe.F("accept_ranges", res.AcceptRanges),
		observe.F("headers", res.Header),
	)
	return nil
}

// connect replaces the live connection with one resuming at the current
// offset.
func (s *ResilientRemote) connect(ctx context.Context) error {
	s.closeBody(ctx)

	offset := s.Offset()
	if length := s.ContentLength(); length >= 0 && offset >= length {
		s.log.Debug(ctx, "nothing left to fetch", observe.F("offset", offset), observe.F("content_length", length))
		s.body = http.NoBody
		return nil
	}

	if s.maxTotal > 0 && s.TotalReconnections() >= s.maxTotal {
		return fmt.Errorf("%w: lifetime cap of %d connections reached", resilience.ErrMaxRetriesExceeded, s.maxTotal)
	}

	var resp *fetch.Response
	err := s.mw.Run(ctx, s.meta, "connect", func(ctx context.Context) error {
		attempt := 0
		return s.newRetry(ctx, "connect").Execute(ctx, func(ctx context.Context) error {
			attempt++
			s.log.Info(ctx, "connecting",
				observe.F("attempt", attempt),
				observe.F("reconnections", s.Reconnections()),
				observe.F("offset", offset),
				observe.F("timeout", s.timeout.String()),
				observe.F("headers", s.header),
			)
			r, err := detachedGet(ctx, s.fetcher, s.request(offset))
			if offset > 0 && fetch.StatusCode(err) == http.StatusRequestedRangeNotSatisfiable && s.ContentLength() < 0 {
				// Without a known length, a range past the end means the
				// stream is complete.
				s.log.Info(ctx, "range not satisfiable, stream complete", observe.F("offset", offset))
				return nil
			}
			if err != nil {
				s.log.Warn(ctx, "request failed", observe.Err(err))
				return err
			}
			if offset > 0 && !r.Partial {
				if err := s.skipDelivered(ctx, r, offset); err != nil {
					return err
				}
			}
			resp = r
			return nil
		})
	})
	if err != nil {
		return err
	}
	if resp == nil {
		s.body = http.NoBody
		return nil
	}

	s.body = resp.Body
	s.mu.Lock()
	s.reconnections++
	s.totalReconnections++
	s.lastReconnection = s.now()
	s.currentLength = resp.ContentLength
	s.mu.Unlock()

	if resp.ContentLength < 0 {
		s.log.Warn(ctx, "response does not report content length")
	}
	s.mw.Metrics().RecordReconnect(ctx, s.meta, offset)
	return nil
}

// skipDelivered discards the first offset bytes of a full response sent in
// reply to a range request.
func (s *ResilientRemote) skipDelivered(ctx context.Context, r *fetch.Response, offset int64) error {
	s.log.Warn(ctx, "server ignored range request, discarding delivered bytes", observe.F("offset", offset))
	if _, err := io.CopyN(io.Discard, r.Body, offset); err != nil {
		r.Body.Close()
		return fmt.Errorf("source: discarding %d delivered bytes: %w", offset, err)
	}
	if r.ContentLength >= 0 {
		r.ContentLength -= offset
	}
	return nil
}

func (s *ResilientRemote) closeBody(ctx context.Context) {
	if s.body == nil {
		return
	}
	if err := s.body.Close(); err != nil {
		s.log.Warn(ctx, "closing connection failed", observe.Err(err))
	}
	s.body = nil
}

type stepKind int

const (
	stepData stepKind = iota
	stepEnd
	stepTransient
)

// step is the outcome of one low-level read.
type step struct {
	kind stepKind
	data []byte
	err  error
}

func (s *ResilientRemote) readStep(ctx context.Context, size int) step {
	if s.body == nil {
		return step{kind: stepTransient, err: errNoConnection}
	}
	data, err := readBody(ctx, s.body, size)
	if len(data) > 0 {
		return step{kind: stepData, data: data}
	}
	if err != nil && !isEOF(err) {
		return step{kind: stepTransient, err: err}
	}

	s.log.Info(ctx, "empty read",
		observe.F("data_read", s.BytesRead()),
		observe.F("start_offset", s.startOffset),
		observe.F("content_length", s.ContentLength()),
	)
	if s.allDelivered(ctx) {
		return step{kind: stepEnd}
	}
	return step{kind: stepTransient, err: errPrematureEnd}
}

// allDelivered reports whether an empty read ends the stream. With no known
// length it always does.
func (s *ResilientRemote) allDelivered(ctx context.Context) bool {
	length := s.ContentLength()
	if length < 0 {
		s.log.Warn(ctx, "content length unknown, treating empty read as end of stream")
		return true
	}
	return length-s.Offset() <= 0
}

// fail records err as terminal unless it only reflects the caller's ctx
// ending, which leaves the source usable with a fresh ctx.
func (s *ResilientRemote) fail(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		s.failed = err
		s.log.Error(ctx, "giving up on remote", observe.Err(err))
	}
	return err
}

func (s *ResilientRemote) pullResilient(ctx context.Context, size int) ([]byte, error) {
	if s.failed != nil {
		return nil, s.failed
	}
	for {
		if s.stop.Stopped() {
			return nil, resilience.ErrStopped
		}
		st := s.readStep(ctx, size)
		switch st.kind {
		case stepData:
			return st.data, nil
		case stepEnd:
			return nil, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.log.Error(ctx, "read failed, reconnecting",
			observe.F("data_read", s.BytesRead()),
			observe.F("offset", s.Offset()),
			observe.Err(st.err),
		)
		if s.beforeReconnect != nil {
			s.beforeReconnect(ctx, s)
		}
		if err := resilience.Sleep(ctx, s.stop, s.reconnectDelay); err != nil {
			return nil, s.fail(ctx, err)
		}
		if err := s.connect(ctx); err != nil {
			return nil, s.fail(ctx, err)
		}
	}
}

// Offset returns the resource position the next request resumes from.
func (s *ResilientRemote) Offset() int64 {
	return s.startOffset + s.BytesRead()
}

// StartOffset returns the configured start position.
func (s *ResilientRemote) StartOffset() int64 { return s.startOffset }

// ContentLength returns the length reported by the probe, or SizeUnknown.
func (s *ResilientRemote) ContentLength() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contentLength
}

// CurrentContentLength returns the live response's Content-Length, or
// SizeUnknown.
func (s *ResilientRemote) CurrentContentLength() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLength
}

// RangeSupported reports whether the probe advertised byte ranges.
func (s *ResilientRemote) RangeSupported() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rangeSupported
}

// HeadHeaders returns a copy of the probe response headers.
func (s *ResilientRemote) HeadHeaders() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headHeaders.Clone()
}

// Reconnections returns the connections made since Open.
func (s *ResilientRemote) Reconnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnections
}

// TotalReconnections returns the connections made over the source's lifetime.
func (s *ResilientRemote) TotalReconnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalReconnections
}

// LastReconnection returns when the last connection was made.
func (s *ResilientRemote) LastReconnection() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReconnection
}

// Size returns the length discovered by the probe, or SizeUnknown.
func (s *ResilientRemote) Size() int64 { return s.ContentLength() }

// State returns a "resilient" snapshot.
func (s *ResilientRemote) State() State {
	st := s.state("resilient")
	st["url"] = observe.RedactLocator(s.url)
	st["start_offset"] = s.startOffset
	st["headers"] = observe.RedactHeaders(s.header)
	st["timeout"] = s.timeout.String()
	st["max_reconnects"] = s.maxReconnects
	st["max_total_reconnects"] = s.maxTotal

	s.mu.Lock()
	defer s.mu.Unlock()
	st["content_length"] = s.contentLength
	st["current_content_length"] = s.currentLength
	st["range_bytes_supported"] = s.rangeSupported
	st["head_headers"] = observe.RedactHeaders(s.headHeaders)
	st["reconnections"] = s.reconnections
	st["total_reconnections"] = s.totalReconnections
	if !s.lastReconnection.IsZero() {
		st["last_reconnection"] = s.lastReconnection.UTC().Format(time.RFC3339Nano)
	}
	return st
}

// ShortDesc implements Source.
func (s *ResilientRemote) ShortDesc() string {
	return fmt.Sprintf("ResilientRemote(data_read=%d, offset=%d, reconnections=%d, url=%q)",
		s.BytesRead(), s.Offset(), s.Reconnections(), observe.RedactLocator(s.url))
}

// String returns the URL with credentials redacted.
func (s *ResilientRemote) String() string { return observe.RedactLocator(s.url) }
