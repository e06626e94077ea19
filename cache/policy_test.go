package cache

import (
	"testing"
	"time"
)

func TestPolicy_EffectiveTTL(t *testing.T) {
	p := Policy{DefaultTTL: time.Minute, MaxTTL: 5 * time.Minute}
	tests := []struct {
		override time.Duration
		want     time.Duration
	}{
		{0, time.Minute},
		{-time.Second, time.Minute},
		{2 * time.Minute, 2 * time.Minute},
		{time.Hour, 5 * time.Minute},
	}
	for _, tc := range tests {
		if got := p.EffectiveTTL(tc.override); got != tc.want {
			t.Errorf("EffectiveTTL(%v) = %v, want %v", tc.override, got, tc.want)
		}
	}

	unbounded := Policy{DefaultTTL: time.Minute}
	if got := unbounded.EffectiveTTL(time.Hour); got != time.Hour {
		t.Errorf("no MaxTTL: EffectiveTTL(1h) = %v", got)
	}
}

func TestPolicy_ShouldCache(t *testing.T) {
	if !DefaultPolicy().ShouldCache() {
		t.Error("DefaultPolicy should cache")
	}
	if NoCachePolicy().ShouldCache() {
		t.Error("NoCachePolicy should not cache")
	}
}
