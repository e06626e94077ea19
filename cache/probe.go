package cache

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/streamsource/fetch"
)

// ProbeCache is a fetch.Fetcher that caches successful probes.
type ProbeCache struct {
	next   fetch.Fetcher
	cache  Cache
	keyer  Keyer
	policy Policy
	group  singleflight.Group
}

// NewProbeCache wraps next. Nil cache and keyer default to an unbounded
// MemoryCache and DefaultKeyer.
func NewProbeCache(next fetch.Fetcher, c Cache, keyer Keyer, policy Policy) *ProbeCache {
	if c == nil {
		c = NewMemoryCache(0)
	}
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	return &ProbeCache{
		next:   next,
		cache:  c,
		keyer:  keyer,
		policy: policy,
	}
}

type probeRecord struct {
	StatusCode    int         `json:"status"`
	Header        http.Header `json:"header"`
	ContentLength int64       `json:"content_length"`
	AcceptRanges  bool        `json:"accept_ranges"`
}

// Probe returns a cached result when one is live, otherwise probes upstream
// once per key no matter how many callers are waiting.
func (p *ProbeCache) Probe(ctx context.Context, req fetch.Request) (*fetch.ProbeResult, error) {
	if !p.policy.ShouldCache() {
		return p.next.Probe(ctx, req)
	}
	key, err := p.keyer.Key(req)
	if err != nil {
		return p.next.Probe(ctx, req)
	}

	if data, ok := p.cache.Get(ctx, key); ok {
		var rec probeRecord
		if json.Unmarshal(data, &rec) == nil {
			return rec.result(), nil
		}
		_ = p.cache.Delete(ctx, key)
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		res, err := p.next.Probe(ctx, req)
		if err != nil {
			return nil, err
		}
		if ttl := p.ttl(res.Header); ttl > 0 {
			rec := probeRecord{
				StatusCode:    res.StatusCode,
				Header:        res.Header,
				ContentLength: res.ContentLength,
				AcceptRanges:  res.AcceptRanges,
			}
			if data, err := json.Marshal(rec); err == nil {
				_ = p.cache.Set(ctx, key, data, ttl)
			}
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneResult(v.(*fetch.ProbeResult)), nil
}

// Get passes through to the wrapped fetcher.
func (p *ProbeCache) Get(ctx context.Context, req fetch.Request) (*fetch.Response, error) {
	return p.next.Get(ctx, req)
}

// Invalidate drops the cached probe for req.
func (p *ProbeCache) Invalidate(ctx context.Context, req fetch.Request) error {
	key, err := p.keyer.Key(req)
	if err != nil {
		return err
	}
	return p.cache.Delete(ctx, key)
}

func (p *ProbeCache) ttl(h http.Header) time.Duration {
	if !p.policy.HonorCacheControl {
		return p.policy.EffectiveTTL(0)
	}
	cc := strings.ToLower(h.Get("Cache-Control"))
	if cc == "" {
		return p.policy.EffectiveTTL(0)
	}
	for _, directive := range strings.Split(cc, ",") {
		directive = strings.TrimSpace(directive)
		switch {
		case directive == "no-store", directive == "no-cache":
			return 0
		case strings.HasPrefix(directive, "max-age="):
			secs, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age="))
			if err != nil {
				continue
			}
			if secs <= 0 {
				return 0
			}
			return p.policy.EffectiveTTL(time.Duration(secs) * time.Second)
		}
	}
	return p.policy.EffectiveTTL(0)
}

func (r probeRecord) result() *fetch.ProbeResult {
	return &fetch.ProbeResult{
		StatusCode:    r.StatusCode,
		Header:        r.Header,
		ContentLength: r.ContentLength,
		AcceptRanges:  r.AcceptRanges,
	}
}

func cloneResult(r *fetch.ProbeResult) *fetch.ProbeResult {
	c := *r
	c.Header = r.Header.Clone()
	return &c
}

var _ fetch.Fetcher = (*ProbeCache)(nil)
