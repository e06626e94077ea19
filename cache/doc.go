// Package cache stores capability probe results so that many sources reading
// the same endpoint, or one source reopened repeatedly, do not each pay for a
// HEAD request.
//
// ProbeCache decorates a fetch.Fetcher: probes are keyed by URL and request
// headers, served from a TTL Cache, and concurrent misses for one key share a
// single upstream request. Failed probes are never cached. Get passes through.
package cache
