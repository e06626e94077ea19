package source

import (
	"context"
	"fmt"
	"io"

	"github.com/jonwraymond/streamsource/observe"
)

// HandleConfig configures a Handle source.
type HandleConfig struct {
	// Reader is an already open stream, for example a process pipe.
	Reader io.Reader

	// OpenFunc produces the stream on Open when Reader is nil.
	OpenFunc func(ctx context.Context) (io.Reader, error)

	// Description names the stream in logs and snapshots (optional).
	Description string

	Common
}

// Handle reads a caller-supplied stream. Close closes the stream when it
// implements io.Closer.
type Handle struct {
	core
	r        io.Reader
	openFunc func(ctx context.Context) (io.Reader, error)
	desc     string
}

var _ Source = (*Handle)(nil)

// NewHandle creates an unopened handle source.
func NewHandle(cfg HandleConfig) *Handle {
	s := &Handle{
		r:        cfg.Reader,
		openFunc: cfg.OpenFunc,
		desc:     cfg.Description,
	}
	s.init("handle", cfg.Description, cfg.Common, s.pullHandle)
	return s
}

// Check fails with ErrValidation when there is neither a reader nor a way to
// open one.
func (s *Handle) Check(context.Context) error {
	if s.r == nil && s.openFunc == nil {
		return fmt.Errorf("%w: handle source has no reader and no open function", ErrValidation)
	}
	return nil
}

// Open calls OpenFunc when no reader was supplied.
func (s *Handle) Open(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	err := s.mw.Run(ctx, s.meta, "open", func(ctx context.Context) error {
		if err := s.Check(ctx); err != nil {
			return err
		}
		if s.r != nil {
			return nil
		}
		r, err := s.openFunc(ctx)
		if err != nil {
			return fmt.Errorf("source: open handle: %w", err)
		}
		if r == nil {
			return fmt.Errorf("%w: open function returned no reader", ErrValidation)
		}
		s.r = r
		return nil
	})
	if err != nil {
		s.end()
	}
	return err
}

// Close closes the stream if it is an io.Closer.
func (s *Handle) Close(ctx context.Context) {
	if !s.end() {
		return
	}
	if c, ok := s.r.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.log.Warn(ctx, "closing handle failed", observe.Err(err))
		}
	}
}

// Size is always SizeUnknown.
func (s *Handle) Size() int64 { return SizeUnknown }

func (s *Handle) pullHandle(_ context.Context, size int) ([]byte, error) {
	return readChunk(s.r, size)
}

// State returns a "handle" snapshot.
func (s *Handle) State() State {
	st := s.state("handle")
	st["description"] = s.desc
	return st
}

// ShortDesc implements Source.
func (s *Handle) ShortDesc() string {
	return fmt.Sprintf("Handle(data_read=%d, desc=%q)", s.BytesRead(), s.desc)
}

// String returns the description.
func (s *Handle) String() string { return s.desc }
