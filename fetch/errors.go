package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrStatus matches every *StatusError via errors.Is.
	ErrStatus = errors.New("fetch: unexpected status")

	// ErrTimeout indicates the response headers or a body read did not arrive in time.
	ErrTimeout = errors.New("fetch: timeout")

	// ErrInvalidRequest indicates a request that cannot be sent (bad URL, negative offset).
	ErrInvalidRequest = errors.New("fetch: invalid request")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: %s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is reports whether target is ErrStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
