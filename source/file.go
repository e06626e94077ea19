package source

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jonwraymond/streamsource/observe"
)

// maxChunk caps the buffer allocated for one read.
const maxChunk = 1 << 20

// maxEmptyReads bounds consecutive (0, nil) reads before giving up.
const maxEmptyReads = 100

// readChunk reads at most size bytes from r, skipping empty reads.
func readChunk(r io.Reader, size int) ([]byte, error) {
	if size > maxChunk {
		size = maxChunk
	}
	buf := make([]byte, size)
	for range maxEmptyReads {
		n, err := r.Read(buf)
		if n > 0 {
			return buf[:n], nil
		}
		if err != nil {
			return nil, err
		}
	}
	return nil, io.ErrNoProgress
}

// FileConfig configures a File source.
type FileConfig struct {
	// Path of the file to read. Required.
	Path string

	Common
}

// File reads a local file.
type File struct {
	core
	path string
	f    *os.File
}

var _ Source = (*File)(nil)

// NewFile creates an unopened file source.
func NewFile(cfg FileConfig) *File {
	s := &File{path: cfg.Path}
	s.init("file", cfg.Path, cfg.Common, s.pullFile)
	return s
}

// Check fails with ErrValidation when the file does not exist or is a
// directory.
func (s *File) Check(context.Context) error {
	if s.path == "" {
		return fmt.Errorf("%w: empty file path", ErrValidation)
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("%w: file %s was not found: %w", ErrValidation, s.path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrValidation, s.path)
	}
	return nil
}

// Open checks the file and opens it for reading.
func (s *File) Open(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	err := s.mw.Run(ctx, s.meta, "open", func(ctx context.Context) error {
		if err := s.Check(ctx); err != nil {
			return err
		}
		f, err := os.Open(s.path)
		if err != nil {
			return fmt.Errorf("source: open %s: %w", s.path, err)
		}
		s.f = f
		return nil
	})
	if err != nil {
		s.end()
	}
	return err
}

// Close closes the file.
func (s *File) Close(ctx context.Context) {
	if !s.end() || s.f == nil {
		return
	}
	if err := s.f.Close(); err != nil {
		s.log.Warn(ctx, "closing file failed", observe.Err(err))
	}
}

// Size returns the file size, or SizeUnknown when it cannot be stat'ed.
func (s *File) Size() int64 {
	info, err := os.Stat(s.path)
	if err != nil {
		return SizeUnknown
	}
	return info.Size()
}

func (s *File) pullFile(_ context.Context, size int) ([]byte, error) {
	return readChunk(s.f, size)
}

// State returns a "file" snapshot.
func (s *File) State() State {
	st := s.state("file")
	st["path"] = s.path
	return st
}

// ShortDesc implements Source.
func (s *File) ShortDesc() string {
	return fmt.Sprintf("File(data_read=%d, path=%q)", s.BytesRead(), s.path)
}

// String returns the path.
func (s *File) String() string { return s.path }
