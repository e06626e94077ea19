package source

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"

	"github.com/jonwraymond/streamsource/observe"
)

// GzipConfig configures a Gzip source.
type GzipConfig struct {
	// Source holds the compressed stream. Required.
	Source Source

	Common
}

// Gzip decompresses the wrapped source. Concatenated gzip members are read
// as one stream. Lines are split on the decompressed data.
type Gzip struct {
	core
	inner Source
	in    *reader
	zr    *gzip.Reader
	br    *bufio.Reader
}

var _ Source = (*Gzip)(nil)

// NewGzip creates an unopened gzip source.
func NewGzip(cfg GzipConfig) *Gzip {
	s := &Gzip{inner: cfg.Source}
	s.init("gzip", "", cfg.Common, s.pullGzip)
	return s
}

// Check delegates to the wrapped source.
func (s *Gzip) Check(ctx context.Context) error {
	if s.inner == nil {
		return fmt.Errorf("%w: gzip has no source", ErrValidation)
	}
	return s.inner.Check(ctx)
}

// Open opens the wrapped source and reads the gzip header.
func (s *Gzip) Open(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	err := s.mw.Run(ctx, s.meta, "open", func(ctx context.Context) error {
		if s.inner == nil {
			return fmt.Errorf("%w: gzip has no source", ErrValidation)
		}
		if err := s.inner.Open(ctx); err != nil {
			return err
		}
		s.in = &reader{ctx: ctx, src: s.inner}
		zr, err := gzip.NewReader(bufio.NewReaderSize(s.in, fillChunk))
		if isEOF(err) {
			// No compressed data at all reads as an empty stream.
			s.br = bufio.NewReader(bytes.NewReader(nil))
			return nil
		}
		if err != nil {
			s.inner.Close(ctx)
			return fmt.Errorf("source: gzip header: %w", err)
		}
		s.zr = zr
		s.br = bufio.NewReaderSize(zr, fillChunk)
		return nil
	})
	if err != nil {
		s.end()
	}
	return err
}

// Close closes the decompressor and the wrapped source.
func (s *Gzip) Close(ctx context.Context) {
	if !s.end() {
		return
	}
	if s.zr != nil {
		if err := s.zr.Close(); err != nil {
			s.log.Warn(ctx, "closing gzip reader failed", observe.Err(err))
		}
	}
	s.inner.Close(ctx)
}

// Size is always SizeUnknown.
func (s *Gzip) Size() int64 { return SizeUnknown }

func (s *Gzip) pullGzip(ctx context.Context, size int) ([]byte, error) {
	s.in.ctx = ctx
	return readChunk(s.br, size)
}

// ReadLine returns the next decompressed line.
func (s *Gzip) ReadLine(ctx context.Context) ([]byte, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}
	if err := s.pending; err != nil {
		s.pending = nil
		return nil, err
	}
	s.in.ctx = ctx
	line, err := s.br.ReadBytes('\n')
	if len(line) > 0 {
		s.record(ctx, line)
		return line, nil
	}
	if err == nil || isEOF(err) {
		s.done = true
		return nil, io.EOF
	}
	return nil, err
}

// ReadLines returns all remaining decompressed lines.
func (s *Gzip) ReadLines(ctx context.Context) ([][]byte, error) {
	return collectLines(ctx, s.ReadLine)
}

// Flush delegates to the wrapped source.
func (s *Gzip) Flush() error {
	if s.inner == nil {
		return nil
	}
	return s.inner.Flush()
}

// State returns a "gzip" snapshot nesting the wrapped source's.
func (s *Gzip) State() State {
	st := s.state("gzip")
	if s.inner != nil {
		st["parent"] = s.inner.State()
	}
	return st
}

// ShortDesc implements Source.
func (s *Gzip) ShortDesc() string {
	if s.inner == nil {
		return "Gzip(parent=nil)"
	}
	return fmt.Sprintf("Gzip(parent=%s)", s.inner.ShortDesc())
}

// String returns the wrapped source's description.
func (s *Gzip) String() string { return fmt.Sprint(s.inner) }
