package cache

import "time"

// Policy configures how long probe results are kept.
type Policy struct {
	// DefaultTTL applies when a probe carries no freshness hint.
	// If zero, caching is disabled.
	DefaultTTL time.Duration

	// MaxTTL clamps every TTL, including ones derived from Cache-Control.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration

	// HonorCacheControl derives the TTL from a probe's Cache-Control max-age
	// and skips caching for no-store / no-cache responses.
	HonorCacheControl bool
}

// DefaultPolicy returns the default policy.
// DefaultTTL: 1 minute, MaxTTL: 10 minutes, HonorCacheControl: true
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL:        time.Minute,
		MaxTTL:            10 * time.Minute,
		HonorCacheControl: true,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0
}

// EffectiveTTL returns override (or DefaultTTL when override <= 0) clamped to MaxTTL.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}
