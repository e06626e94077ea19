package source

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"sync"

	"github.com/jonwraymond/streamsource/observe"
)

const (
	// lineGrow is the minimum growth of the line buffer per fill.
	lineGrow = 512
	// fillChunk is the size of each pull while filling the line buffer or
	// reading everything.
	fillChunk = 32 * 1024
)

type phase int

const (
	phaseNew phase = iota
	phaseOpen
	phaseClosed
)

// pullFunc returns the next chunk of at most size bytes from the concrete
// stream. size is always positive. It returns data or an error, and (nil,
// io.EOF) or (nil, nil) at the end.
type pullFunc func(ctx context.Context, size int) ([]byte, error)

// core carries what every source shares: lifecycle, accounting and line
// buffering on top of a pullFunc.
type core struct {
	meta observe.SourceMeta
	log  observe.Logger
	mw   *observe.Middleware
	pull pullFunc

	mu    sync.Mutex
	phase phase
	hash  hash.Hash
	n     int64

	// Reader goroutine only.
	buf     []byte
	done    bool
	pending error // failure held back while returning earlier bytes
}

func (c *core) init(kind, locator string, common Common, pull pullFunc) {
	logger := common.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	mw := common.Middleware
	if mw == nil {
		mw = observe.NewMiddleware(nil, nil, logger)
	}
	c.meta = observe.SourceMeta{Kind: kind, Locator: locator, Name: common.Name}
	c.log = logger.WithSource(c.meta)
	c.mw = mw
	c.pull = pull
	c.hash = sha256.New()
}

// begin moves the source to the open phase.
func (c *core) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case phaseOpen:
		return ErrAlreadyOpen
	case phaseClosed:
		return ErrClosed
	}
	c.phase = phaseOpen
	return nil
}

// end moves the source to the closed phase and reports whether it was open.
func (c *core) end() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	wasOpen := c.phase == phaseOpen
	c.phase = phaseClosed
	return wasOpen
}

func (c *core) readable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case phaseNew:
		return ErrNotOpen
	case phaseClosed:
		return ErrClosed
	}
	return nil
}

func (c *core) record(ctx context.Context, p []byte) {
	c.mu.Lock()
	c.hash.Write(p)
	c.n += int64(len(p))
	c.mu.Unlock()
	c.mw.Metrics().RecordRead(ctx, c.meta, len(p))
}

// Read implements Source.
func (c *core) Read(ctx context.Context, size int) ([]byte, error) {
	if err := c.readable(); err != nil {
		return nil, err
	}
	if size <= 0 {
		return c.readAll(ctx)
	}
	if len(c.buf) > 0 {
		return c.take(size), nil
	}
	if c.done {
		return nil, io.EOF
	}
	return c.next(ctx, size)
}

// next pulls one chunk and accounts for it.
func (c *core) next(ctx context.Context, size int) ([]byte, error) {
	if err := c.pending; err != nil {
		c.pending = nil
		return nil, err
	}
	p, err := c.pull(ctx, size)
	if len(p) > 0 {
		c.record(ctx, p)
		return p, nil
	}
	if err == nil || isEOF(err) {
		c.done = true
		return nil, io.EOF
	}
	return nil, err
}

// readAll drains the buffer and the stream. A failure after some bytes were
// collected returns those bytes and holds the error for the next pull.
func (c *core) readAll(ctx context.Context) ([]byte, error) {
	out := c.take(len(c.buf))
	for !c.done {
		p, err := c.next(ctx, fillChunk)
		if isEOF(err) {
			break
		}
		if err != nil {
			if len(out) == 0 {
				return nil, err
			}
			c.pending = err
			return out, nil
		}
		out = append(out, p...)
	}
	if len(out) == 0 {
		return nil, io.EOF
	}
	return out, nil
}

// take removes up to n buffered bytes and returns a copy of them.
func (c *core) take(n int) []byte {
	if n > len(c.buf) {
		n = len(c.buf)
	}
	if n == 0 {
		return nil
	}
	out := bytes.Clone(c.buf[:n])
	c.buf = c.buf[n:]
	if len(c.buf) == 0 {
		c.buf = nil
	}
	return out
}

// fill grows the buffer to at least target bytes or until the stream ends.
func (c *core) fill(ctx context.Context, target int) error {
	for len(c.buf) < target && !c.done {
		p, err := c.next(ctx, fillChunk)
		if isEOF(err) {
			return nil
		}
		if err != nil {
			return err
		}
		c.buf = append(c.buf, p...)
	}
	return nil
}

// ReadLine implements Source.
func (c *core) ReadLine(ctx context.Context) ([]byte, error) {
	if err := c.readable(); err != nil {
		return nil, err
	}
	for bytes.IndexByte(c.buf, '\n') < 0 && !c.done {
		if err := c.fill(ctx, len(c.buf)+lineGrow); err != nil {
			return nil, err
		}
	}
	n := len(c.buf)
	if i := bytes.IndexByte(c.buf, '\n'); i >= 0 {
		n = i + 1
	}
	if n == 0 {
		return nil, io.EOF
	}
	return c.take(n), nil
}

// ReadLines implements Source.
func (c *core) ReadLines(ctx context.Context) ([][]byte, error) {
	return collectLines(ctx, c.ReadLine)
}

func collectLines(ctx context.Context, readLine func(context.Context) ([]byte, error)) ([][]byte, error) {
	var lines [][]byte
	for {
		line, err := readLine(ctx)
		if isEOF(err) {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
}

// Text implements Source.
func (c *core) Text(ctx context.Context) ([]byte, error) {
	data, err := c.Read(ctx, 0)
	if isEOF(err) {
		return nil, nil
	}
	return data, err
}

// Flush implements Source.
func (c *core) Flush() error { return nil }

// Sum implements Source.
func (c *core) Sum() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hash.Sum(nil)
}

// HexSum returns Sum hex encoded.
func (c *core) HexSum() string {
	return hex.EncodeToString(c.Sum())
}

// BytesRead implements Source.
func (c *core) BytesRead() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Tell implements Source.
func (c *core) Tell() int64 { return c.BytesRead() }

func (c *core) state(kind string) State {
	s := State{
		"type":      kind,
		"data_read": c.BytesRead(),
	}
	if c.meta.Name != "" {
		s["name"] = c.meta.Name
	}
	return s
}
