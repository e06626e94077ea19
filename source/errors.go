package source

import "errors"

var (
	// ErrValidation is returned when a source cannot possibly be read, for
	// example a missing file. It is never retried.
	ErrValidation = errors.New("source: validation failed")

	// ErrNotOpen is returned when reading a source before Open.
	ErrNotOpen = errors.New("source: not open")

	// ErrAlreadyOpen is returned when Open is called twice.
	ErrAlreadyOpen = errors.New("source: already open")

	// ErrClosed is returned when using a source after Close.
	ErrClosed = errors.New("source: closed")
)
