// Package auth attaches client credentials to outgoing HTTP requests made by
// remote sources.
//
// Credentials are applied once per request, so a resilient source that
// reconnects re-authenticates on every attempt. JWT credentials mint a fresh
// token whenever the cached one is close to expiry.
//
// Supported methods: HTTP basic, static bearer token, API key header and
// self-signed JWT. A Registry builds credentials from loose configuration maps.
package auth
