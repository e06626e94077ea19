package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ConcatConfig configures a Concat source.
type ConcatConfig struct {
	// Sources are read in order. Members must be unopened.
	Sources []Source

	// KeepOpen defers closing exhausted members to Close. By default a
	// member is closed as soon as it is exhausted.
	KeepOpen bool

	Common
}

// Concat exposes several sources as one stream. Members are opened one at a
// time as the previous one is exhausted; empty members are skipped.
type Concat struct {
	core
	sources  []Source
	keepOpen bool

	// guarded by core.mu
	cur    int
	opened []bool
}

var _ Source = (*Concat)(nil)

// NewConcat creates an unopened concat source.
func NewConcat(cfg ConcatConfig) *Concat {
	s := &Concat{
		sources:  append([]Source(nil), cfg.Sources...),
		keepOpen: cfg.KeepOpen,
		opened:   make([]bool, len(cfg.Sources)),
	}
	s.init("concat", "", cfg.Common, s.pullConcat)
	return s
}

// Check checks every member.
func (s *Concat) Check(ctx context.Context) error {
	var errs []error
	for i, src := range s.sources {
		if src == nil {
			errs = append(errs, fmt.Errorf("%w: concat member %d is nil", ErrValidation, i))
			continue
		}
		if err := src.Check(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open opens the first member.
func (s *Concat) Open(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	err := s.mw.Run(ctx, s.meta, "open", func(ctx context.Context) error {
		for i, src := range s.sources {
			if src == nil {
				return fmt.Errorf("%w: concat member %d is nil", ErrValidation, i)
			}
		}
		if len(s.sources) == 0 {
			return nil
		}
		return s.openMember(ctx, 0)
	})
	if err != nil {
		s.end()
	}
	return err
}

func (s *Concat) openMember(ctx context.Context, i int) error {
	if err := s.sources[i].Open(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.opened[i] = true
	s.mu.Unlock()
	return nil
}

func (s *Concat) closeMember(ctx context.Context, i int) {
	s.mu.Lock()
	wasOpen := s.opened[i]
	s.opened[i] = false
	s.mu.Unlock()
	if wasOpen {
		s.sources[i].Close(ctx)
	}
}

// Close closes every member still open.
func (s *Concat) Close(ctx context.Context) {
	if !s.end() {
		return
	}
	for i := range s.sources {
		s.closeMember(ctx, i)
	}
}

// Size returns the sum of the members' sizes, or SizeUnknown when any is
// unknown.
func (s *Concat) Size() int64 {
	var total int64
	for _, src := range s.sources {
		if src == nil {
			return SizeUnknown
		}
		n := src.Size()
		if n < 0 {
			return SizeUnknown
		}
		total += n
	}
	return total
}

func (s *Concat) current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func (s *Concat) pullConcat(ctx context.Context, size int) ([]byte, error) {
	if len(s.sources) == 0 {
		return nil, io.EOF
	}
	for {
		cur := s.current()
		data, err := s.sources[cur].Read(ctx, size)
		if len(data) > 0 {
			return data, nil
		}
		if err != nil && !isEOF(err) {
			return nil, err
		}
		if cur+1 >= len(s.sources) {
			return nil, io.EOF
		}

		if !s.keepOpen {
			s.closeMember(ctx, cur)
		}
		s.mu.Lock()
		s.cur = cur + 1
		s.mu.Unlock()
		if err := s.openMember(ctx, cur+1); err != nil {
			return nil, err
		}
	}
}

// Flush flushes the current member.
func (s *Concat) Flush() error {
	if len(s.sources) == 0 {
		return nil
	}
	return s.sources[s.current()].Flush()
}

// State returns a "concat" snapshot with the current member and all members.
func (s *Concat) State() State {
	st := s.state("concat")
	s.mu.Lock()
	cur := s.cur
	doClose := append([]bool(nil), s.opened...)
	s.mu.Unlock()

	st["current_index"] = cur
	st["do_close"] = doClose
	members := make([]State, 0, len(s.sources))
	for _, src := range s.sources {
		if src != nil {
			members = append(members, src.State())
		}
	}
	st["sources"] = members
	if cur < len(s.sources) && s.sources[cur] != nil {
		st["current"] = s.sources[cur].State()
	}
	return st
}

// ShortDesc implements Source.
func (s *Concat) ShortDesc() string {
	cur := s.current()
	desc := "none"
	if cur < len(s.sources) && s.sources[cur] != nil {
		desc = s.sources[cur].ShortDesc()
	}
	return fmt.Sprintf("Concat(data_read=%d, cur=%s)", s.BytesRead(), desc)
}

// String lists the members.
func (s *Concat) String() string {
	parts := make([]string, len(s.sources))
	for i, src := range s.sources {
		parts[i] = fmt.Sprint(src)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
