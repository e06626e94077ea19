package auth

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// CredentialsFactory creates credentials from configuration.
type CredentialsFactory func(cfg map[string]any) (Credentials, error)

// Registry manages credentials factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]CredentialsFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]CredentialsFactory)}
}

// Register adds a credentials factory.
func (r *Registry) Register(name string, factory CredentialsFactory) error {
	if name == "" || factory == nil {
		return errors.New("invalid credentials registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("credentials %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates credentials by method name.
func (r *Registry) Create(name string, cfg map[string]any) (Credentials, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("credentials %q not found", name)
	}
	return factory(cfg)
}

// List returns registered method names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in credential methods.
var DefaultRegistry = NewRegistry()

func str(cfg map[string]any, key string) string {
	s, _ := cfg[key].(string)
	return s
}

func init() {
	_ = DefaultRegistry.Register("basic", func(cfg map[string]any) (Credentials, error) {
		user := str(cfg, "username")
		if user == "" {
			return nil, fmt.Errorf("%w: basic requires username", ErrInvalidCredentials)
		}
		return NewBasicCredentials(user, str(cfg, "password")), nil
	})

	_ = DefaultRegistry.Register("bearer", func(cfg map[string]any) (Credentials, error) {
		token := str(cfg, "token")
		if token == "" {
			return nil, fmt.Errorf("%w: bearer requires token", ErrInvalidCredentials)
		}
		return &BearerCredentials{
			Token:       token,
			HeaderName:  str(cfg, "header_name"),
			TokenPrefix: str(cfg, "token_prefix"),
		}, nil
	})

	_ = DefaultRegistry.Register("api_key", func(cfg map[string]any) (Credentials, error) {
		key := str(cfg, "key")
		if key == "" {
			return nil, fmt.Errorf("%w: api_key requires key", ErrInvalidCredentials)
		}
		return NewAPIKeyCredentials(key, str(cfg, "header_name")), nil
	})

	_ = DefaultRegistry.Register("jwt", func(cfg map[string]any) (Credentials, error) {
		config := JWTConfig{
			Issuer:      str(cfg, "issuer"),
			Subject:     str(cfg, "subject"),
			Audience:    str(cfg, "audience"),
			KeyID:       str(cfg, "key_id"),
			Method:      str(cfg, "method"),
			HeaderName:  str(cfg, "header_name"),
			TokenPrefix: str(cfg, "token_prefix"),
		}
		if ttl := str(cfg, "ttl"); ttl != "" {
			d, err := time.ParseDuration(ttl)
			if err != nil {
				return nil, fmt.Errorf("%w: ttl: %w", ErrInvalidCredentials, err)
			}
			config.TTL = d
		}

		secret := str(cfg, "secret")
		if secret == "" {
			return nil, fmt.Errorf("%w: jwt requires secret", ErrInvalidCredentials)
		}
		return NewJWTCredentials(config, NewStaticKeyProvider([]byte(secret)))
	})
}
