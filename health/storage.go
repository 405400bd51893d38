package health

import (
	"context"
	"database/sql"
)

// StorageChecker reports whether the backing database answers a ping.
type StorageChecker struct {
	db *sql.DB
}

var _ Checker = (*StorageChecker)(nil)

// NewStorageChecker creates a checker over a database handle.
func NewStorageChecker(db *sql.DB) *StorageChecker {
	return &StorageChecker{db: db}
}

// Check pings the database.
func (c *StorageChecker) Check(ctx context.Context) Result {
	if c.db == nil {
		return Unhealthy("no database handle", ErrCheckFailed)
	}
	if err := c.db.PingContext(ctx); err != nil {
		return Unhealthy("database unreachable", err)
	}

	stats := c.db.Stats()
	return Healthy("database reachable").WithDetails(map[string]any{
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"wait_count":       stats.WaitCount,
	})
}
