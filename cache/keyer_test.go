package cache

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/jonwraymond/streamsource/auth"
	"github.com/jonwraymond/streamsource/fetch"
)

func TestDefaultKeyer_Deterministic(t *testing.T) {
	k := NewDefaultKeyer()

	h1 := http.Header{}
	h1.Set("Accept", "text/plain")
	h1.Set("X-Tenant", "t1")
	h2 := http.Header{}
	h2.Set("x-tenant", "t1")
	h2.Set("accept", "text/plain")

	a, err := k.Key(fetch.Request{URL: "https://example.com/a", Header: h1})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := k.Key(fetch.Request{URL: "https://example.com/a", Header: h2})
	if a != b {
		t.Errorf("keys differ for equal headers: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "probe:") || len(a) != len("probe:")+16 {
		t.Errorf("key format = %q", a)
	}
	if err := ValidateKey(a); err != nil {
		t.Errorf("generated key invalid: %v", err)
	}
}

func TestDefaultKeyer_Distinguishes(t *testing.T) {
	k := NewDefaultKeyer()
	base, _ := k.Key(fetch.Request{URL: "https://example.com/a"})

	other, _ := k.Key(fetch.Request{URL: "https://example.com/b"})
	if base == other {
		t.Error("different URLs share a key")
	}

	withCreds, _ := k.Key(fetch.Request{URL: "https://example.com/a", Credentials: auth.NewBearerCredentials("x")})
	if base == withCreds {
		t.Error("credentials not part of the key")
	}

	withRange, _ := k.Key(fetch.Request{URL: "https://example.com/a", Header: http.Header{"Range": {"bytes=5-"}}, Offset: 5})
	if base != withRange {
		t.Error("Range/offset should not affect the probe key")
	}

	if _, err := k.Key(fetch.Request{}); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("empty URL error = %v", err)
	}
}
