package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTee_CopiesToSink(t *testing.T) {
	var sink bytes.Buffer
	inner := newStringSource("hello")
	src := NewTee(TeeConfig{Source: inner, Sink: &sink})

	err := Use(context.Background(), src, func() error {
		readChunks(t, src, 2)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if sink.String() != "hello" {
		t.Errorf("sink = %q, want %q", sink.String(), "hello")
	}
	assertAccounting(t, src, []byte("hello"))
	assertAccounting(t, inner, []byte("hello"))
}

func TestTee_PathRenamedOnClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "copy.txt")
	src := NewTee(TeeConfig{
		Source: newStringSource("line 1\nline 2\n"),
		Path:   path,
		Now:    func() time.Time { return time.UnixMilli(1700000000000) },
	})

	err := Use(context.Background(), src, func() error {
		tmp, _ := src.State()["temp_path"].(string)
		if !strings.HasPrefix(tmp, path+".1700000000000.") {
			t.Errorf("temp_path = %q", tmp)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("final file exists before Close: %v", err)
		}
		_, err := src.ReadLines(context.Background())
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "line 1\nline 2\n" {
		t.Errorf("file = %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the renamed file", len(entries))
	}
}

func TestTee_OpenFailureRemovesTemp(t *testing.T) {
	dir := t.TempDir()
	src := NewTee(TeeConfig{
		Source: NewFile(FileConfig{Path: filepath.Join(dir, "missing")}),
		Path:   filepath.Join(dir, "copy"),
	})
	if err := src.Open(context.Background()); !errors.Is(err, ErrValidation) {
		t.Fatalf("Open() error = %v, want ErrValidation", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("directory holds %d entries, want none", len(entries))
	}
}

// flakyWriter fails its first failures writes and accepts half of the
// following one.
type flakyWriter struct {
	buf      bytes.Buffer
	failures int
	short    bool
	flushed  int
}

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.failures > 0 {
		w.failures--
		return 0, errors.New("disk full")
	}
	if w.short && len(p) > 1 {
		w.short = false
		half := len(p) / 2
		w.buf.Write(p[:half])
		return half, errors.New("short write")
	}
	return w.buf.Write(p)
}

func (w *flakyWriter) Flush() error {
	w.flushed++
	return nil
}

func TestTee_RetriesSinkWrites(t *testing.T) {
	sink := &flakyWriter{failures: 2, short: true}
	src := NewTee(TeeConfig{
		Source:     newStringSource("hello"),
		Sink:       sink,
		RetryDelay: time.Millisecond,
	})
	mustOpen(t, src)

	got := readChunks(t, src, 10)
	if strings.Join(got, "") != "hello" {
		t.Errorf("read %q", got)
	}
	if sink.buf.String() != "hello" {
		t.Errorf("sink = %q, want exactly one copy of %q", sink.buf.String(), "hello")
	}
	if err := src.Flush(); err != nil || sink.flushed != 1 {
		t.Errorf("Flush() = %v, flushed %d times", err, sink.flushed)
	}
}

func TestTee_SinkRetryStopsOnContext(t *testing.T) {
	sink := &flakyWriter{failures: 1 << 30}
	src := NewTee(TeeConfig{Source: newStringSource("hello"), Sink: sink, RetryDelay: time.Hour})
	mustOpen(t, src)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := src.Read(ctx, 5); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Read() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestTee_CloseSink(t *testing.T) {
	r := &trackedReader{}
	sink := &closingWriter{}
	src := NewTee(TeeConfig{Source: NewHandle(HandleConfig{Reader: r}), Sink: sink, CloseSink: true})
	r.Reader = strings.NewReader("")
	if err := Use(context.Background(), src, func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if !sink.closed || !r.closed.Load() {
		t.Errorf("sink closed = %v, source closed = %v", sink.closed, r.closed.Load())
	}
}

type closingWriter struct {
	bytes.Buffer
	closed bool
}

func (w *closingWriter) Close() error {
	w.closed = true
	return nil
}

func TestTee_Validation(t *testing.T) {
	if err := NewTee(TeeConfig{Source: newStringSource("x")}).Check(context.Background()); !errors.Is(err, ErrValidation) {
		t.Errorf("Check() without sink error = %v, want ErrValidation", err)
	}
	if err := NewTee(TeeConfig{Sink: &bytes.Buffer{}}).Open(context.Background()); !errors.Is(err, ErrValidation) {
		t.Errorf("Open() without source error = %v, want ErrValidation", err)
	}
}

func TestTee_State(t *testing.T) {
	src := NewTee(TeeConfig{Source: newStringSource("abc"), Sink: &bytes.Buffer{}})
	mustOpen(t, src)
	readChunks(t, src, 0)

	st := src.State()
	parent, _ := st["parent"].(State)
	if st.Type() != "tee" || parent.Type() != "handle" || parent["data_read"] != int64(3) {
		t.Errorf("State() = %v", st)
	}
	if src.ShortDesc() != `Tee(parent=Handle(data_read=3, desc="string"))` {
		t.Errorf("ShortDesc() = %q", src.ShortDesc())
	}
}

func TestTee_StateDuringLifecycle(t *testing.T) {
	dir := t.TempDir()
	src := NewTee(TeeConfig{Source: newStringSource("abc\n"), Path: filepath.Join(dir, "out")})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 200 {
			_ = src.State()
		}
	}()

	err := Use(context.Background(), src, func() error {
		_, err := src.Text(context.Background())
		return err
	})
	<-done
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.State()["temp_path"].(string); !ok {
		t.Error("temp_path missing after Close")
	}
}
