package cache

import "time"

// Policy configures per-category time-to-live behavior.
//
// Visualization artifacts get a longer TTL than generic API-response
// caching because their inputs change less often than, say, search
// results.
type Policy struct {
	// VisualizationTTL applies to entries in CategoryVisualization.
	VisualizationTTL time.Duration

	// APIResponseTTL applies to entries in CategoryAPIResponse.
	APIResponseTTL time.Duration

	// DefaultTTL applies to any other category.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Override TTLs are clamped to
	// this. If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns the default TTL policy:
// visualization 2h, api_response 30m, default 1h, max 24h.
func DefaultPolicy() Policy {
	return Policy{
		VisualizationTTL: 2 * time.Hour,
		APIResponseTTL:   30 * time.Minute,
		DefaultTTL:       1 * time.Hour,
		MaxTTL:           24 * time.Hour,
	}
}

// TTLFor returns the TTL for a category, with clamping applied.
func (p Policy) TTLFor(category string) time.Duration {
	var ttl time.Duration
	switch category {
	case CategoryVisualization:
		ttl = p.VisualizationTTL
	case CategoryAPIResponse:
		ttl = p.APIResponseTTL
	}
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	return p.clamp(ttl)
}

// EffectiveTTL returns the TTL to use for a category given an optional
// override. A non-positive override falls back to the category TTL.
func (p Policy) EffectiveTTL(category string, override time.Duration) time.Duration {
	if override <= 0 {
		return p.TTLFor(category)
	}
	return p.clamp(override)
}

func (p Policy) clamp(ttl time.Duration) time.Duration {
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		return p.MaxTTL
	}
	return ttl
}
