package source

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/jonwraymond/streamsource/observe"
	"github.com/jonwraymond/streamsource/resilience"
)

// DefaultSinkRetryDelay is the pause between failed sink writes.
const DefaultSinkRetryDelay = 10 * time.Second

// TeeConfig configures a Tee source. Exactly one of Sink and Path should be
// set.
type TeeConfig struct {
	// Source is the wrapped source. Required.
	Source Source

	// Sink receives a copy of every chunk read.
	Sink io.Writer

	// CloseSink closes Sink on Close when it is an io.Closer.
	CloseSink bool

	// Path is the final name of a file sink. Data goes to a temporary file
	// next to it, renamed to Path on Close.
	Path string

	// RetryDelay is the pause between failed sink writes.
	// Default: DefaultSinkRetryDelay
	RetryDelay time.Duration

	// Now is the clock used to name the temporary file.
	// Default: time.Now
	Now func() time.Time

	Common
}

// Tee forwards reads from the wrapped source and writes the same bytes to a
// sink. Failed sink writes are retried until they succeed or ctx ends, so no
// byte read from the source is ever dropped from the copy.
type Tee struct {
	core
	inner      Source
	sink       io.Writer
	closeSink  bool
	path       string
	retryDelay time.Duration
	now        func() time.Time

	// guarded by core.mu
	tmpPath string
}

var _ Source = (*Tee)(nil)

// NewTee creates an unopened tee source.
func NewTee(cfg TeeConfig) *Tee {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultSinkRetryDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Tee{
		inner:      cfg.Source,
		sink:       cfg.Sink,
		closeSink:  cfg.CloseSink,
		path:       cfg.Path,
		retryDelay: cfg.RetryDelay,
		now:        cfg.Now,
	}
	s.init("tee", cfg.Path, cfg.Common, s.pullTee)
	return s
}

// Check validates the configuration and the wrapped source.
func (s *Tee) Check(ctx context.Context) error {
	if s.inner == nil {
		return fmt.Errorf("%w: tee has no source", ErrValidation)
	}
	if s.sink == nil && s.path == "" {
		return fmt.Errorf("%w: tee has neither sink nor path", ErrValidation)
	}
	return s.inner.Check(ctx)
}

// Open creates the temporary file when writing to Path, then opens the
// wrapped source.
func (s *Tee) Open(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	err := s.mw.Run(ctx, s.meta, "open", func(ctx context.Context) error {
		if s.inner == nil {
			return fmt.Errorf("%w: tee has no source", ErrValidation)
		}
		if s.sink == nil {
			if s.path == "" {
				return fmt.Errorf("%w: tee has neither sink nor path", ErrValidation)
			}
			tmp := fmt.Sprintf("%s.%d.%d", s.path, s.now().UnixMilli(), rand.IntN(1001))
			f, err := os.Create(tmp)
			if err != nil {
				return fmt.Errorf("source: create tee file: %w", err)
			}
			s.sink = f
			s.closeSink = true
			s.setTempPath(tmp)
		}
		if err := s.inner.Open(ctx); err != nil {
			s.discardTemp(ctx)
			return err
		}
		return nil
	})
	if err != nil {
		s.end()
	}
	return err
}

// discardTemp removes the temporary file after a failed Open.
func (s *Tee) discardTemp(ctx context.Context) {
	tmp := s.tempPath()
	if tmp == "" {
		return
	}
	if c, ok := s.sink.(io.Closer); ok {
		c.Close()
	}
	if err := os.Remove(tmp); err != nil {
		s.log.Warn(ctx, "removing tee file failed", observe.F("path", tmp), observe.Err(err))
	}
	s.sink = nil
	s.setTempPath("")
}

func (s *Tee) tempPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tmpPath
}

func (s *Tee) setTempPath(p string) {
	s.mu.Lock()
	s.tmpPath = p
	s.mu.Unlock()
}

// Close closes the wrapped source and the sink, then renames the temporary
// file into place.
func (s *Tee) Close(ctx context.Context) {
	if !s.end() {
		return
	}
	s.inner.Close(ctx)

	if s.closeSink {
		if c, ok := s.sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				s.log.Warn(ctx, "closing tee sink failed", observe.Err(err))
			}
		}
	}
	if tmp := s.tempPath(); tmp != "" {
		if err := os.Rename(tmp, s.path); err != nil {
			s.log.Error(ctx, "renaming tee file failed",
				observe.F("from", tmp),
				observe.F("to", s.path),
				observe.Err(err),
			)
		}
	}
}

// Size delegates to the wrapped source.
func (s *Tee) Size() int64 {
	if s.inner == nil {
		return SizeUnknown
	}
	return s.inner.Size()
}

func (s *Tee) pullTee(ctx context.Context, size int) ([]byte, error) {
	data, err := s.inner.Read(ctx, size)
	if len(data) == 0 {
		return nil, err
	}
	if err := s.write(ctx, data); err != nil {
		return nil, err
	}
	return data, nil
}

// write copies p to the sink, retrying failures with a fixed delay. Only
// the end of ctx stops it.
func (s *Tee) write(ctx context.Context, p []byte) error {
	for attempt := 1; ; attempt++ {
		n, err := s.sink.Write(p)
		if err == nil && n == len(p) {
			return nil
		}
		if err == nil {
			err = io.ErrShortWrite
		}
		p = p[n:]
		s.log.Error(ctx, "writing tee sink failed, retrying",
			observe.F("attempt", attempt),
			observe.F("pending", len(p)),
			observe.Err(err),
		)
		if err := resilience.Sleep(ctx, nil, s.retryDelay); err != nil {
			return err
		}
	}
}

// Flush flushes the sink when it supports Flush or Sync.
func (s *Tee) Flush() error {
	switch w := s.sink.(type) {
	case interface{ Flush() error }:
		return w.Flush()
	case interface{ Sync() error }:
		return w.Sync()
	}
	return nil
}

// State returns a "tee" snapshot nesting the wrapped source's.
func (s *Tee) State() State {
	st := s.state("tee")
	if s.path != "" {
		st["path"] = s.path
	}
	if tmp := s.tempPath(); tmp != "" {
		st["temp_path"] = tmp
	}
	if s.inner != nil {
		st["parent"] = s.inner.State()
	}
	return st
}

// ShortDesc implements Source.
func (s *Tee) ShortDesc() string {
	if s.inner == nil {
		return "Tee(parent=nil)"
	}
	return fmt.Sprintf("Tee(parent=%s)", s.inner.ShortDesc())
}

// String returns the wrapped source's description.
func (s *Tee) String() string { return fmt.Sprint(s.inner) }
