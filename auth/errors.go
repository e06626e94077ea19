package auth

import "errors"

// Sentinel errors for client credentials.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrKeyNotFound        = errors.New("auth: signing key not found")
	ErrUnsupportedMethod  = errors.New("auth: unsupported signing method")
	ErrSigningFailed      = errors.New("auth: token signing failed")
)
