package source

import (
	"context"
	"errors"
	"io"

	"github.com/jonwraymond/streamsource/observe"
)

// SizeUnknown is returned by Size when the total length is not known.
const SizeUnknown int64 = -1

// Source is a readable byte stream with digest and byte accounting.
//
// Contract:
//   - Concurrency: single reader. Read, ReadLine, ReadLines and Text must not
//     be called concurrently. State, Sum, BytesRead and Tell are safe from
//     any goroutine.
//   - Context: blocking operations honor cancellation.
//   - Errors: Read returns a nil slice and io.EOF once the stream is
//     exhausted, and never data together with an error. Close never fails;
//     close-time errors are logged.
//   - Accounting: BytesRead and Sum cover exactly the bytes pulled from the
//     stream, in order, with no duplication across reconnections.
type Source interface {
	// Open acquires the underlying handle or connection.
	Open(ctx context.Context) error

	// Close releases everything Open acquired.
	Close(ctx context.Context)

	// Check verifies the source is minimally viable. It fails with
	// ErrValidation when it cannot possibly be read.
	Check(ctx context.Context) error

	// Size returns the total length in bytes or SizeUnknown.
	Size() int64

	// Read returns the next chunk of at most size bytes. A size of zero or
	// less reads everything that remains; when the stream fails midway the
	// bytes already pulled are returned first and the failure on the next
	// call.
	Read(ctx context.Context, size int) ([]byte, error)

	// ReadLine returns the next line including its '\n' terminator. The
	// last line may lack one.
	ReadLine(ctx context.Context) ([]byte, error)

	// ReadLines returns all remaining lines.
	ReadLines(ctx context.Context) ([][]byte, error)

	// Text returns everything that remains, or nil when nothing does.
	Text(ctx context.Context) ([]byte, error)

	// Flush pushes buffered output of decorators that write a copy.
	Flush() error

	// State returns a diagnostic snapshot.
	State() State

	// Sum returns the SHA-256 digest of the bytes read so far.
	Sum() []byte

	// BytesRead returns the number of bytes read so far.
	BytesRead() int64

	// Tell returns the current position, which equals BytesRead.
	Tell() int64

	// ShortDesc returns a one-line description of progress for logs.
	ShortDesc() string
}

// State is a diagnostic snapshot of a source. Every snapshot carries a
// "type" key; decorators nest the snapshot of what they wrap.
type State map[string]any

// Type returns the snapshot's type discriminator.
func (s State) Type() string {
	t, _ := s["type"].(string)
	return t
}

// Common holds settings shared by every source config.
type Common struct {
	// Name labels the source in logs, spans and metrics (optional).
	Name string

	// Logger receives diagnostics. Nil discards them.
	Logger observe.Logger

	// Middleware wraps probe and connect operations with tracing and
	// metrics. Nil uses a middleware that only logs through Logger.
	Middleware *observe.Middleware
}

// Use opens src, runs fn and closes src on every exit path. An Open failure
// is returned without calling fn.
func Use(ctx context.Context, src Source, fn func() error) error {
	if err := src.Open(ctx); err != nil {
		return err
	}
	defer src.Close(context.WithoutCancel(ctx))
	return fn()
}

// NewReader adapts an open source to io.Reader. Reads use ctx.
func NewReader(ctx context.Context, src Source) io.Reader {
	return &reader{ctx: ctx, src: src}
}

type reader struct {
	ctx context.Context
	src Source
}

func (r *reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	data, err := r.src.Read(r.ctx, len(p))
	if err != nil {
		return 0, err
	}
	return copy(p, data), nil
}

// isEOF reports whether err marks the end of a stream.
func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
