package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/jonwraymond/streamsource/fetch"
)

// Keyer derives cache keys for probe requests.
//
// Contract:
// - Determinism: equal requests produce equal keys regardless of header order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(req fetch.Request) (string, error)
}

// DefaultKeyer hashes the URL, the request headers and the credentials method.
// Range is ignored because probes never send it.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key returns probe:<first 16 hex chars of sha256(canonical request)>.
func (k *DefaultKeyer) Key(req fetch.Request) (string, error) {
	if req.URL == "" {
		return "", ErrInvalidKey
	}
	canon := struct {
		URL         string     `json:"url"`
		Header      [][]string `json:"header,omitempty"`
		Credentials string     `json:"credentials,omitempty"`
	}{
		URL:    req.URL,
		Header: canonicalHeader(req.Header),
	}
	if req.Credentials != nil {
		canon.Credentials = req.Credentials.Name()
	}

	data, err := json.Marshal(canon)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize request: %w", err)
	}
	sum := sha256.Sum256(data)
	return "probe:" + hex.EncodeToString(sum[:8]), nil
}

// canonicalHeader flattens h into sorted [name, values...] rows.
func canonicalHeader(h http.Header) [][]string {
	if len(h) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(h))
	for name, values := range h {
		name = http.CanonicalHeaderKey(name)
		if name == "Range" {
			continue
		}
		row := append([]string{name}, values...)
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return strings.Compare(rows[i][0], rows[j][0]) < 0
	})
	return rows
}

var _ Keyer = (*DefaultKeyer)(nil)
