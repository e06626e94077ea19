package source

import (
	"context"
	"crypto/sha256"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
)

// trackedReader records whether it was closed.
type trackedReader struct {
	io.Reader
	closed atomic.Bool
}

func (r *trackedReader) Close() error {
	r.closed.Store(true)
	return nil
}

// oneByteReader returns at most one byte per Read.
type oneByteReader struct {
	r io.Reader
}

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	return o.r.Read(p)
}

func newStringSource(s string) *Handle {
	return NewHandle(HandleConfig{Reader: strings.NewReader(s), Description: "string"})
}

func mustOpen(t *testing.T, src Source) {
	t.Helper()
	if err := src.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { src.Close(context.Background()) })
}

// readChunks reads src with Read(size) until io.EOF.
func readChunks(t *testing.T, src Source, size int) []string {
	t.Helper()
	var chunks []string
	for {
		data, err := src.Read(context.Background(), size)
		if errors.Is(err, io.EOF) {
			if data != nil {
				t.Fatalf("Read() returned %q with io.EOF", data)
			}
			return chunks
		}
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if len(data) == 0 {
			t.Fatal("Read() returned an empty chunk without io.EOF")
		}
		chunks = append(chunks, string(data))
	}
}

func assertAccounting(t *testing.T, src Source, want []byte) {
	t.Helper()
	if got := src.BytesRead(); got != int64(len(want)) {
		t.Errorf("BytesRead() = %d, want %d", got, len(want))
	}
	sum := sha256.Sum256(want)
	if got := src.Sum(); string(got) != string(sum[:]) {
		t.Errorf("Sum() = %x, want %x", got, sum)
	}
}
