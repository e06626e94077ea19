package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures self-signed JWT credentials.
type JWTConfig struct {
	// Issuer is the iss claim.
	Issuer string

	// Subject is the sub claim.
	Subject string

	// Audience is the aud claim (optional).
	Audience string

	// KeyID is placed in the kid header and passed to the KeyProvider.
	KeyID string

	// Method is the signing algorithm name.
	// Default: "HS256"
	Method string

	// TTL is the token lifetime.
	// Default: 5m
	TTL time.Duration

	// RefreshBefore re-mints a cached token this long before it expires.
	// Default: 30s
	RefreshBefore time.Duration

	// HeaderName is the header carrying the token.
	// Default: "Authorization"
	HeaderName string

	// TokenPrefix is prepended to the token.
	// Default: "Bearer "
	TokenPrefix string

	// Now overrides the clock (tests).
	Now func() time.Time
}

// KeyProvider retrieves signing keys.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides a single signing key regardless of key ID.
type StaticKeyProvider struct {
	key any
}

// NewStaticKeyProvider creates a static key provider. HMAC methods expect a
// []byte; RSA and ECDSA methods expect the private key.
func NewStaticKeyProvider(key any) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	if p.key == nil {
		return nil, ErrKeyNotFound
	}
	if b, ok := p.key.([]byte); ok && len(b) == 0 {
		return nil, ErrKeyNotFound
	}
	return p.key, nil
}

// JWTCredentials sign short-lived tokens and cache them until near expiry.
type JWTCredentials struct {
	config      JWTConfig
	method      jwt.SigningMethod
	keyProvider KeyProvider

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewJWTCredentials creates JWT credentials.
func NewJWTCredentials(config JWTConfig, keyProvider KeyProvider) (*JWTCredentials, error) {
	if config.Method == "" {
		config.Method = "HS256"
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	if config.RefreshBefore <= 0 {
		config.RefreshBefore = 30 * time.Second
	}
	if config.RefreshBefore >= config.TTL {
		config.RefreshBefore = config.TTL / 2
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if keyProvider == nil {
		return nil, fmt.Errorf("%w: key provider is nil", ErrKeyNotFound)
	}

	method := jwt.GetSigningMethod(config.Method)
	if method == nil || method == jwt.SigningMethodNone {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, config.Method)
	}

	return &JWTCredentials{
		config:      config,
		method:      method,
		keyProvider: keyProvider,
	}, nil
}

// Name returns "jwt".
func (c *JWTCredentials) Name() string { return "jwt" }

// Apply sets the token header, minting a token if needed.
func (c *JWTCredentials) Apply(ctx context.Context, req *http.Request) error {
	token, err := c.Token(ctx)
	if err != nil {
		return err
	}
	setToken(req, c.config.HeaderName, c.config.TokenPrefix, token)
	return nil
}

// Token returns a valid signed token.
func (c *JWTCredentials) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.config.Now()
	if c.token != "" && now.Before(c.expires.Add(-c.config.RefreshBefore)) {
		return c.token, nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	key, err := c.keyProvider.GetKey(ctx, c.config.KeyID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrKeyNotFound, err)
	}

	expires := now.Add(c.config.TTL)
	claims := jwt.RegisteredClaims{
		Issuer:    c.config.Issuer,
		Subject:   c.config.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	if c.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.config.Audience}
	}

	tok := jwt.NewWithClaims(c.method, claims)
	if c.config.KeyID != "" {
		tok.Header["kid"] = c.config.KeyID
	}

	signed, err := tok.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	c.token = signed
	c.expires = expires
	return signed, nil
}

// Invalidate drops the cached token so the next Apply mints a new one.
func (c *JWTCredentials) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

var _ Credentials = (*JWTCredentials)(nil)
