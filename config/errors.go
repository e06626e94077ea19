package config

import "errors"

var (
	// ErrInvalidConfig indicates a document that cannot describe a source.
	ErrInvalidConfig = errors.New("config: invalid source config")

	// ErrUnknownType indicates a "type" with no matching source kind.
	ErrUnknownType = errors.New("config: unknown source type")
)
