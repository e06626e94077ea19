package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Credentials decorate an outgoing request with authentication material.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Apply may block (e.g. to fetch a signing key) and must honor cancellation.
// - Errors: Apply returns an error wrapping a sentinel from this package.
// - Ownership: Apply only mutates req.Header.
type Credentials interface {
	// Name identifies the method (basic, bearer, api_key, jwt).
	Name() string

	// Apply adds the credentials to req.
	Apply(ctx context.Context, req *http.Request) error
}

// BasicCredentials sends HTTP basic authentication.
type BasicCredentials struct {
	Username string
	Password string
}

// NewBasicCredentials creates basic credentials.
func NewBasicCredentials(username, password string) *BasicCredentials {
	return &BasicCredentials{Username: username, Password: password}
}

// Name returns "basic".
func (c *BasicCredentials) Name() string { return "basic" }

// Apply sets the Authorization header.
func (c *BasicCredentials) Apply(_ context.Context, req *http.Request) error {
	if c.Username == "" {
		return fmt.Errorf("%w: basic username is empty", ErrMissingCredentials)
	}
	req.SetBasicAuth(c.Username, c.Password)
	return nil
}

// BearerCredentials sends a static bearer token.
type BearerCredentials struct {
	Token string

	// HeaderName defaults to "Authorization".
	HeaderName string

	// TokenPrefix defaults to "Bearer ".
	TokenPrefix string
}

// NewBearerCredentials creates bearer credentials with default header and prefix.
func NewBearerCredentials(token string) *BearerCredentials {
	return &BearerCredentials{Token: token}
}

// Name returns "bearer".
func (c *BearerCredentials) Name() string { return "bearer" }

// Apply sets the token header.
func (c *BearerCredentials) Apply(_ context.Context, req *http.Request) error {
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("%w: bearer token is empty", ErrMissingCredentials)
	}
	setToken(req, c.HeaderName, c.TokenPrefix, c.Token)
	return nil
}

// APIKeyCredentials sends a key in a dedicated header.
type APIKeyCredentials struct {
	Key string

	// HeaderName defaults to "X-API-Key".
	HeaderName string
}

// NewAPIKeyCredentials creates API key credentials sent in header (default X-API-Key).
func NewAPIKeyCredentials(key, header string) *APIKeyCredentials {
	return &APIKeyCredentials{Key: key, HeaderName: header}
}

// Name returns "api_key".
func (c *APIKeyCredentials) Name() string { return "api_key" }

// Apply sets the key header.
func (c *APIKeyCredentials) Apply(_ context.Context, req *http.Request) error {
	if c.Key == "" {
		return fmt.Errorf("%w: api key is empty", ErrMissingCredentials)
	}
	header := c.HeaderName
	if header == "" {
		header = "X-API-Key"
	}
	req.Header.Set(header, c.Key)
	return nil
}

func setToken(req *http.Request, header, prefix, token string) {
	if header == "" {
		header = "Authorization"
	}
	if prefix == "" && header == "Authorization" {
		prefix = "Bearer "
	}
	req.Header.Set(header, prefix+token)
}

// Transport is an http.RoundTripper that applies Credentials to every request.
// The request is cloned before mutation.
type Transport struct {
	Credentials Credentials
	Base        http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Credentials == nil {
		return base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	if err := t.Credentials.Apply(req.Context(), clone); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	return base.RoundTrip(clone)
}

var (
	_ Credentials       = (*BasicCredentials)(nil)
	_ Credentials       = (*BearerCredentials)(nil)
	_ Credentials       = (*APIKeyCredentials)(nil)
	_ http.RoundTripper = (*Transport)(nil)
)
