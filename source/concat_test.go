package source

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestConcat_ReadOneByte(t *testing.T) {
	src := NewConcat(ConcatConfig{Sources: []Source{newStringSource("AB"), newStringSource("CD")}})
	mustOpen(t, src)

	got := readChunks(t, src, 1)
	if strings.Join(got, ",") != "A,B,C,D" {
		t.Errorf("chunks = %q, want A,B,C,D", got)
	}
	assertAccounting(t, src, []byte("ABCD"))
}

func TestConcat_SkipsEmptyMembers(t *testing.T) {
	src := NewConcat(ConcatConfig{Sources: []Source{
		newStringSource(""),
		newStringSource("x\ny"),
		newStringSource(""),
		newStringSource("\nz\n"),
	}})
	mustOpen(t, src)

	lines, err := src.ReadLines(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, l := range lines {
		got = append(got, string(l))
	}
	if strings.Join(got, "|") != "x\n|y\n|z\n" {
		t.Errorf("lines = %q", got)
	}
}

func TestConcat_ClosesAfterUse(t *testing.T) {
	r1 := &trackedReader{Reader: strings.NewReader("one")}
	r2 := &trackedReader{Reader: strings.NewReader("two")}
	src := NewConcat(ConcatConfig{Sources: []Source{
		NewHandle(HandleConfig{Reader: r1}),
		NewHandle(HandleConfig{Reader: r2}),
	}})
	mustOpen(t, src)
	ctx := context.Background()

	if _, err := src.Read(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if r1.closed.Load() {
		t.Error("first member closed before it was exhausted")
	}
	if _, err := src.Read(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if !r1.closed.Load() {
		t.Error("exhausted member was not closed")
	}
	if doClose := src.State()["do_close"].([]bool); doClose[0] || !doClose[1] {
		t.Errorf("do_close = %v, want [false true]", doClose)
	}
	src.Close(ctx)
	if !r2.closed.Load() {
		t.Error("last member was not closed")
	}
}

func TestConcat_KeepOpen(t *testing.T) {
	r1 := &trackedReader{Reader: strings.NewReader("one")}
	src := NewConcat(ConcatConfig{
		Sources:  []Source{NewHandle(HandleConfig{Reader: r1}), newStringSource("two")},
		KeepOpen: true,
	})
	if err := src.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	readChunks(t, src, 0)
	if r1.closed.Load() {
		t.Error("member closed before Close with KeepOpen")
	}
	src.Close(context.Background())
	if !r1.closed.Load() {
		t.Error("member not closed by Close")
	}
}

func TestConcat_Empty(t *testing.T) {
	src := NewConcat(ConcatConfig{})
	mustOpen(t, src)
	if got := readChunks(t, src, 4); len(got) != 0 {
		t.Errorf("chunks = %q, want none", got)
	}
	if src.Size() != 0 {
		t.Errorf("Size() = %d, want 0", src.Size())
	}
}

func TestConcat_MemberOpenFailure(t *testing.T) {
	src := NewConcat(ConcatConfig{Sources: []Source{
		newStringSource("ok"),
		NewFile(FileConfig{Path: "/does/not/exist"}),
	}})
	mustOpen(t, src)

	if err := src.Check(context.Background()); !errors.Is(err, ErrValidation) {
		t.Errorf("Check() error = %v, want ErrValidation", err)
	}
	ctx := context.Background()
	if data, err := src.Read(ctx, 10); err != nil || string(data) != "ok" {
		t.Fatalf("Read() = %q, %v", data, err)
	}
	if _, err := src.Read(ctx, 10); !errors.Is(err, ErrValidation) {
		t.Errorf("Read() error = %v, want ErrValidation", err)
	}
}

func TestConcat_SizeAndState(t *testing.T) {
	dir := t.TempDir()
	a := NewFile(FileConfig{Path: writeTempIn(t, dir, "a", "12345")})
	b := NewFile(FileConfig{Path: writeTempIn(t, dir, "b", "678")})
	src := NewConcat(ConcatConfig{Sources: []Source{a, b}})
	if src.Size() != 8 {
		t.Errorf("Size() = %d, want 8", src.Size())
	}
	if NewConcat(ConcatConfig{Sources: []Source{a, newStringSource("x")}}).Size() != SizeUnknown {
		t.Error("Size() with an unknown member is not SizeUnknown")
	}

	mustOpen(t, src)
	readChunks(t, src, 0)
	st := src.State()
	members, _ := st["sources"].([]State)
	current, _ := st["current"].(State)
	if st.Type() != "concat" || st["current_index"] != 1 || len(members) != 2 || current.Type() != "file" {
		t.Errorf("State() = %v", st)
	}
}
