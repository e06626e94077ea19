package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonwraymond/streamsource/auth"
	"github.com/jonwraymond/streamsource/cache"
	"github.com/jonwraymond/streamsource/fetch"
	"github.com/jonwraymond/streamsource/observe"
	"github.com/jonwraymond/streamsource/resilience"
	"github.com/jonwraymond/streamsource/secret"
	"github.com/jonwraymond/streamsource/source"
)

// Source types understood by Build.
const (
	TypeFile      = "file"
	TypeRemote    = "remote"
	TypeResilient = "resilient"
	TypeTee       = "tee"
	TypeConcat    = "concat"
	TypeGzip      = "gzip"
)

// SourceConfig is the decoded form of one source description.
type SourceConfig struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`

	// file, tee
	Path string `json:"path,omitempty"`

	// remote, resilient
	URL         string            `json:"url,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Credentials map[string]any    `json:"credentials,omitempty"`
	Timeout     string            `json:"timeout,omitempty"`

	// resilient
	MaxReconnects      int    `json:"max_reconnects,omitempty"`
	MaxTotalReconnects int    `json:"max_total_reconnects,omitempty"`
	StartOffset        int64  `json:"start_offset,omitempty"`
	ReconnectDelay     string `json:"reconnect_delay,omitempty"`

	// tee
	RetryDelay string `json:"retry_delay,omitempty"`

	// concat
	KeepOpen bool `json:"keep_open,omitempty"`

	// tee, gzip
	Source *SourceConfig `json:"source,omitempty"`

	// concat
	Sources []*SourceConfig `json:"sources,omitempty"`
}

// Parse decodes and validates a JSON source description. Unknown fields are
// rejected.
func Parse(data []byte) (*SourceConfig, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var cfg SourceConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the description and every nested one.
func (c *SourceConfig) Validate() error {
	return c.validate("$")
}

func (c *SourceConfig) validate(at string) error {
	if c == nil {
		return fmt.Errorf("%w: %s: missing source", ErrInvalidConfig, at)
	}
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, at, fmt.Sprintf(format, args...))
	}

	for field, value := range map[string]string{
		"timeout":         c.Timeout,
		"reconnect_delay": c.ReconnectDelay,
		"retry_delay":     c.RetryDelay,
	} {
		if _, err := parseDuration(value); err != nil {
			return bad("%s: %v", field, err)
		}
	}
	if c.Credentials != nil {
		if t, _ := c.Credentials["type"].(string); t == "" {
			return bad("credentials: missing type")
		}
	}

	switch c.Type {
	case TypeFile:
		if c.Path == "" {
			return bad("file requires path")
		}
	case TypeRemote, TypeResilient:
		if c.URL == "" {
			return bad("%s requires url", c.Type)
		}
		if c.MaxReconnects < 0 || c.MaxTotalReconnects < 0 {
			return bad("negative reconnect cap")
		}
		if c.StartOffset < 0 {
			return bad("negative start_offset")
		}
	case TypeTee:
		if c.Path == "" {
			return bad("tee requires path")
		}
		return c.Source.validate(at + ".source")
	case TypeGzip:
		return c.Source.validate(at + ".source")
	case TypeConcat:
		if len(c.Sources) == 0 {
			return bad("concat requires sources")
		}
		for i, member := range c.Sources {
			if err := member.validate(fmt.Sprintf("%s.sources[%d]", at, i)); err != nil {
				return err
			}
		}
	case "":
		return bad("missing type")
	default:
		return fmt.Errorf("%w: %s: %q", ErrUnknownType, at, c.Type)
	}
	return nil
}

// Options carries the collaborators shared by every built source.
type Options struct {
	// Fetcher performs HTTP requests for remote sources.
	// Default: fetch.NewHTTPFetcher(fetch.Config{})
	Fetcher fetch.Fetcher

	// CacheProbes wraps the fetcher in a cache.ProbeCache so sources
	// pointing at the same URL share one HEAD probe.
	CacheProbes bool

	// Resolver expands header and credential values.
	// Default: a non-strict resolver with the env and file providers.
	Resolver *secret.Resolver

	// Credentials creates credentials from "credentials" blocks.
	// Default: auth.DefaultRegistry
	Credentials *auth.Registry

	// Stop is shared by every resilient source in the tree (optional).
	Stop *resilience.Stop

	// Logger and Middleware are passed to every source.
	Logger     observe.Logger
	Middleware *observe.Middleware
}

// Build creates the unopened source tree described by cfg.
func Build(ctx context.Context, cfg *SourceConfig, opts Options) (source.Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Fetcher == nil {
		opts.Fetcher = fetch.NewHTTPFetcher(fetch.Config{})
	}
	if opts.CacheProbes {
		opts.Fetcher = cache.NewProbeCache(opts.Fetcher, nil, nil, cache.DefaultPolicy())
	}
	if opts.Resolver == nil {
		opts.Resolver = secret.NewResolver(false, &secret.EnvProvider{}, &secret.FileProvider{})
	}
	if opts.Credentials == nil {
		opts.Credentials = auth.DefaultRegistry
	}
	b := builder{opts: opts}
	return b.build(ctx, cfg, "$")
}

type builder struct {
	opts Options
}

func (b *builder) common(cfg *SourceConfig) source.Common {
	return source.Common{
		Name:       cfg.Name,
		Logger:     b.opts.Logger,
		Middleware: b.opts.Middleware,
	}
}

func (b *builder) build(ctx context.Context, cfg *SourceConfig, at string) (source.Source, error) {
	switch cfg.Type {
	case TypeFile:
		return source.NewFile(source.FileConfig{Path: cfg.Path, Common: b.common(cfg)}), nil

	case TypeRemote:
		header, creds, err := b.request(ctx, cfg, at)
		if err != nil {
			return nil, err
		}
		timeout, _ := parseDuration(cfg.Timeout)
		return source.NewRemote(source.RemoteConfig{
			URL:         cfg.URL,
			Header:      header,
			Credentials: creds,
			Timeout:     timeout,
			Fetcher:     b.opts.Fetcher,
			Common:      b.common(cfg),
		}), nil

	case TypeResilient:
		header, creds, err := b.request(ctx, cfg, at)
		if err != nil {
			return nil, err
		}
		timeout, _ := parseDuration(cfg.Timeout)
		delay, _ := parseDuration(cfg.ReconnectDelay)
		return source.NewResilientRemote(source.ResilientConfig{
			URL:                cfg.URL,
			Header:             header,
			Credentials:        creds,
			Timeout:            timeout,
			MaxReconnects:      cfg.MaxReconnects,
			MaxTotalReconnects: cfg.MaxTotalReconnects,
			StartOffset:        cfg.StartOffset,
			Stop:               b.opts.Stop,
			ReconnectDelay:     delay,
			Fetcher:            b.opts.Fetcher,
			Common:             b.common(cfg),
		}), nil

	case TypeTee:
		inner, err := b.build(ctx, cfg.Source, at+".source")
		if err != nil {
			return nil, err
		}
		delay, _ := parseDuration(cfg.RetryDelay)
		return source.NewTee(source.TeeConfig{
			Source:     inner,
			Path:       cfg.Path,
			RetryDelay: delay,
			Common:     b.common(cfg),
		}), nil

	case TypeGzip:
		inner, err := b.build(ctx, cfg.Source, at+".source")
		if err != nil {
			return nil, err
		}
		return source.NewGzip(source.GzipConfig{Source: inner, Common: b.common(cfg)}), nil

	case TypeConcat:
		members := make([]source.Source, 0, len(cfg.Sources))
		for i, m := range cfg.Sources {
			src, err := b.build(ctx, m, fmt.Sprintf("%s.sources[%d]", at, i))
			if err != nil {
				return nil, err
			}
			members = append(members, src)
		}
		return source.NewConcat(source.ConcatConfig{
			Sources:  members,
			KeepOpen: cfg.KeepOpen,
			Common:   b.common(cfg),
		}), nil
	}
	return nil, fmt.Errorf("%w: %s: %q", ErrUnknownType, at, cfg.Type)
}

// request resolves the header map and credential block of a remote source.
func (b *builder) request(ctx context.Context, cfg *SourceConfig, at string) (http.Header, auth.Credentials, error) {
	var header http.Header
	if len(cfg.Headers) > 0 {
		h, err := b.opts.Resolver.ResolveHeader(ctx, cfg.Headers)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: headers: %w", at, err)
		}
		header = h
	}
	if cfg.Credentials == nil {
		return header, nil, nil
	}

	method, _ := cfg.Credentials["type"].(string)
	fields := make(map[string]any, len(cfg.Credentials))
	for k, v := range cfg.Credentials {
		if k != "type" {
			fields[k] = v
		}
	}
	resolved, err := b.opts.Resolver.ResolveAny(ctx, fields)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: credentials: %w", at, err)
	}
	creds, err := b.opts.Credentials.Create(method, resolved.(map[string]any))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: credentials: %w", at, err)
	}
	return header, creds, nil
}

// parseDuration accepts "" as zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
