package health

import (
	"context"

	"github.com/abzanganeh/mlsite/cache"
)

// CacheCheckerConfig configures the cache health checker.
type CacheCheckerConfig struct {
	// DegradedBacklog is the number of expired-but-unswept entries that
	// flips the status to degraded. The cache still serves correctly
	// with a backlog; it signals the sweeper has fallen behind.
	// Default: 1000
	DegradedBacklog int
}

// CacheChecker reports the artifact cache's occupancy and sweep backlog.
type CacheChecker struct {
	config CacheCheckerConfig
	store  cache.Store
}

var _ Checker = (*CacheChecker)(nil)

// NewCacheChecker creates a checker over a cache store.
func NewCacheChecker(config CacheCheckerConfig, store cache.Store) *CacheChecker {
	if config.DegradedBacklog <= 0 {
		config.DegradedBacklog = 1000
	}
	return &CacheChecker{config: config, store: store}
}

// Check reads live statistics from the store.
func (c *CacheChecker) Check(ctx context.Context) Result {
	if c.store == nil {
		return Unhealthy("no cache store", ErrCheckFailed)
	}

	stats, err := c.store.Stats(ctx)
	if err != nil {
		return Unhealthy("cache stats unavailable", err)
	}

	details := map[string]any{
		"total":   stats.Total,
		"active":  stats.Active,
		"expired": stats.Expired,
	}
	if stats.Expired >= c.config.DegradedBacklog {
		return Degraded("expired-entry backlog exceeds threshold").WithDetails(details)
	}
	return Healthy("cache available").WithDetails(details)
}
