// Package fetch is the HTTP collaborator used by remote sources.
//
// A Fetcher performs two operations: Probe, a HEAD request reporting content
// length and byte-range support, and Get, a streaming GET optionally resumed
// from a byte offset with a Range header. Redirects are followed, credentials
// from package auth are applied to every attempt, and non-2xx responses are
// returned as *StatusError.
//
// Timeouts are per request. Config.Timeout bounds the wait for response
// headers and, separately, each individual body read, so a stalled transfer
// fails without capping the duration of a healthy one.
package fetch
