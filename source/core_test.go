package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadLine(t *testing.T) {
	src := newStringSource("ab\ncd\nef")
	mustOpen(t, src)
	ctx := context.Background()

	for _, want := range []string{"ab\n", "cd\n", "ef"} {
		line, err := src.ReadLine(ctx)
		if err != nil {
			t.Fatalf("ReadLine() error = %v", err)
		}
		if string(line) != want {
			t.Errorf("ReadLine() = %q, want %q", line, want)
		}
	}
	for range 2 {
		line, err := src.ReadLine(ctx)
		if !errors.Is(err, io.EOF) || line != nil {
			t.Errorf("ReadLine() = %q, %v, want nil, io.EOF", line, err)
		}
	}
	assertAccounting(t, src, []byte("ab\ncd\nef"))
}

func TestReadLine_LongLinesAcrossFills(t *testing.T) {
	long := strings.Repeat("x", 3*lineGrow+17)
	content := long + "\nshort\n"
	src := NewHandle(HandleConfig{Reader: oneByteReader{strings.NewReader(content)}})
	mustOpen(t, src)

	lines, err := src.ReadLines(context.Background())
	if err != nil {
		t.Fatalf("ReadLines() error = %v", err)
	}
	if len(lines) != 2 || string(lines[0]) != long+"\n" || string(lines[1]) != "short\n" {
		t.Fatalf("ReadLines() = %d lines, want the long line then %q", len(lines), "short\n")
	}
	assertAccounting(t, src, []byte(content))
}

func TestRead_AfterReadLineDrainsBuffer(t *testing.T) {
	src := newStringSource("first\nsecond\nthird")
	mustOpen(t, src)
	ctx := context.Background()

	if _, err := src.ReadLine(ctx); err != nil {
		t.Fatal(err)
	}
	rest, err := src.Text(ctx)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if string(rest) != "second\nthird" {
		t.Errorf("Text() = %q, want %q", rest, "second\nthird")
	}
	if text, err := src.Text(ctx); text != nil || err != nil {
		t.Errorf("Text() at end = %q, %v, want nil, nil", text, err)
	}
}

func TestRead_Bounded(t *testing.T) {
	src := newStringSource("abcdefg")
	mustOpen(t, src)

	got := readChunks(t, src, 3)
	want := []string{"abc", "def", "g"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("chunks = %q, want %q", got, want)
	}
	assertAccounting(t, src, []byte("abcdefg"))
	if src.Tell() != 7 {
		t.Errorf("Tell() = %d, want 7", src.Tell())
	}
}

func TestText_ErrorFollowsDeliveredBytes(t *testing.T) {
	boom := errors.New("disk unplugged")
	src := NewHandle(HandleConfig{Reader: io.MultiReader(strings.NewReader("partial"), errAfter{boom})})
	mustOpen(t, src)
	ctx := context.Background()

	text, err := src.Text(ctx)
	if err != nil || string(text) != "partial" {
		t.Fatalf("Text() = %q, %v, want %q, nil", text, err, "partial")
	}
	assertAccounting(t, src, []byte("partial"))

	text, err = src.Text(ctx)
	if text != nil || !errors.Is(err, boom) {
		t.Errorf("Text() = %q, %v, want nil, %v", text, err, boom)
	}
}

func TestRead_All(t *testing.T) {
	content := strings.Repeat("0123456789", 10000)
	src := newStringSource(content)
	mustOpen(t, src)

	data, err := src.Read(context.Background(), 0)
	if err != nil {
		t.Fatalf("Read(0) error = %v", err)
	}
	if string(data) != content {
		t.Errorf("Read(0) returned %d bytes, want %d", len(data), len(content))
	}
	if _, err := src.Read(context.Background(), 0); !errors.Is(err, io.EOF) {
		t.Errorf("second Read(0) error = %v, want io.EOF", err)
	}
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	src := newStringSource("x")

	if _, err := src.Read(ctx, 1); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Read() before Open error = %v, want ErrNotOpen", err)
	}
	if err := src.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if err := src.Open(ctx); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("second Open() error = %v, want ErrAlreadyOpen", err)
	}
	src.Close(ctx)
	src.Close(ctx)
	if _, err := src.ReadLine(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadLine() after Close error = %v, want ErrClosed", err)
	}
	if err := src.Open(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Open() after Close error = %v, want ErrClosed", err)
	}
}

func TestUse_ClosesOnError(t *testing.T) {
	r := &trackedReader{Reader: strings.NewReader("data")}
	src := NewHandle(HandleConfig{Reader: r})
	boom := errors.New("boom")

	err := Use(context.Background(), src, func() error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("Use() error = %v, want boom", err)
	}
	if !r.closed.Load() {
		t.Error("handle was not closed")
	}
}

func TestUse_OpenFailureSkipsFn(t *testing.T) {
	src := NewFile(FileConfig{Path: "/does/not/exist"})
	called := false
	err := Use(context.Background(), src, func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Use() error = %v, want ErrValidation", err)
	}
	if called {
		t.Error("fn ran although Open failed")
	}
}

func TestNewReader(t *testing.T) {
	src := newStringSource("hello reader")
	mustOpen(t, src)

	data, err := io.ReadAll(NewReader(context.Background(), src))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "hello reader" {
		t.Errorf("ReadAll() = %q", data)
	}
	assertAccounting(t, src, data)
}

func TestState_Type(t *testing.T) {
	src := NewHandle(HandleConfig{Reader: strings.NewReader("x"), Common: Common{Name: "stdin"}})
	st := src.State()
	if st.Type() != "handle" {
		t.Errorf("Type() = %q, want handle", st.Type())
	}
	if st["name"] != "stdin" {
		t.Errorf("name = %v, want stdin", st["name"])
	}
	if (State{}).Type() != "" {
		t.Error("empty State has a type")
	}
}

func BenchmarkReadLine(b *testing.B) {
	content := strings.Repeat("a log line of moderate length, ending in a newline\n", 2000)
	ctx := context.Background()
	b.SetBytes(int64(len(content)))
	b.ReportAllocs()
	for b.Loop() {
		src := newStringSource(content)
		if err := src.Open(ctx); err != nil {
			b.Fatal(err)
		}
		if _, err := src.ReadLines(ctx); err != nil {
			b.Fatal(err)
		}
		src.Close(ctx)
	}
}
