package cache

import (
	"testing"
	"time"
)

func TestPolicy_TTLFor(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		category string
		want     time.Duration
	}{
		{CategoryVisualization, 2 * time.Hour},
		{CategoryAPIResponse, 30 * time.Minute},
		{"other", 1 * time.Hour},
		{"", 1 * time.Hour},
	}

	for _, tt := range tests {
		if got := p.TTLFor(tt.category); got != tt.want {
			t.Errorf("TTLFor(%q) = %v, want %v", tt.category, got, tt.want)
		}
	}
}

func TestPolicy_EffectiveTTL(t *testing.T) {
	p := DefaultPolicy()

	// Override applies
	if got := p.EffectiveTTL(CategoryVisualization, 10*time.Minute); got != 10*time.Minute {
		t.Errorf("EffectiveTTL override = %v, want 10m", got)
	}

	// Non-positive override falls back to category TTL
	if got := p.EffectiveTTL(CategoryAPIResponse, 0); got != 30*time.Minute {
		t.Errorf("EffectiveTTL fallback = %v, want 30m", got)
	}
	if got := p.EffectiveTTL(CategoryAPIResponse, -time.Minute); got != 30*time.Minute {
		t.Errorf("EffectiveTTL negative fallback = %v, want 30m", got)
	}

	// Clamped to MaxTTL
	if got := p.EffectiveTTL(CategoryVisualization, 48*time.Hour); got != 24*time.Hour {
		t.Errorf("EffectiveTTL clamp = %v, want 24h", got)
	}
}

func TestPolicy_NoMaxTTL(t *testing.T) {
	p := Policy{VisualizationTTL: time.Hour, DefaultTTL: time.Hour}

	if got := p.EffectiveTTL(CategoryVisualization, 100*time.Hour); got != 100*time.Hour {
		t.Errorf("EffectiveTTL without MaxTTL = %v, want 100h", got)
	}
}
