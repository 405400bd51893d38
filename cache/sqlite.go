package cache

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const artifactSchema = `
CREATE TABLE IF NOT EXISTS artifact_cache (
	cache_key  TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	category   TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifact_cache_expires ON artifact_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_artifact_cache_category ON artifact_cache(category);
`

// SQLiteStore persists cache entries in SQLite. Expiry instants are
// stored as Unix milliseconds so comparisons happen in Go time, not in
// the database's clock.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) a SQLite-backed store at path and
// ensures the schema exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cache: storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: ping sqlite db: %w", err)
	}
	if _, err := db.Exec(artifactSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: ensure schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStore wraps an existing database handle. The schema is
// ensured on first use via EnsureSchema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("cache: db handle is required")
	}
	if _, err := db.Exec(artifactSchema); err != nil {
		return nil, fmt.Errorf("cache: ensure schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle for health checks.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the underlying handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get retrieves an entry. Returns (nil, false, nil) on miss or expiry;
// the read never mutates stored rows.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload, category, expires_at FROM artifact_cache WHERE cache_key = ?`, key)

	var payload []byte
	var category string
	var expiresAt int64
	if err := row.Scan(&payload, &category, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: get %q: %w", key, err)
	}

	expiry := time.UnixMilli(expiresAt).UTC()
	if !time.Now().Before(expiry) {
		return nil, false, nil
	}

	return &Entry{Payload: payload, Category: category, ExpiresAt: expiry}, true, nil
}

// Put stores a payload with expiry now+ttl, overwriting any existing row.
func (s *SQLiteStore) Put(ctx context.Context, key string, payload []byte, category string, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	expiresAt := time.Now().Add(ttl).UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifact_cache (cache_key, payload, category, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		   payload = excluded.payload,
		   category = excluded.category,
		   expires_at = excluded.expires_at`,
		key, payload, category, expiresAt)
	if err != nil {
		return fmt.Errorf("cache: put %q: %w", key, err)
	}
	return nil
}

// Delete removes an entry, reporting whether a row was removed.
func (s *SQLiteStore) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM artifact_cache WHERE cache_key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("cache: delete %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cache: delete %q: %w", key, err)
	}
	return n > 0, nil
}

// SweepExpired removes rows whose expiry precedes the sweep time.
func (s *SQLiteStore) SweepExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM artifact_cache WHERE expires_at <= ?`, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("cache: sweep expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cache: sweep expired: %w", err)
	}
	return int(n), nil
}

// Stats computes live statistics from the current rows.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	now := time.Now().UnixMilli()
	stats := Stats{ActiveByCategory: make(map[string]int)}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0)
		 FROM artifact_cache`, now)
	if err := row.Scan(&stats.Total, &stats.Expired); err != nil {
		return Stats{}, fmt.Errorf("cache: stats: %w", err)
	}
	stats.Active = stats.Total - stats.Expired

	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM artifact_cache WHERE expires_at > ? GROUP BY category`, now)
	if err != nil {
		return Stats{}, fmt.Errorf("cache: stats by category: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return Stats{}, fmt.Errorf("cache: stats by category: %w", err)
		}
		stats.ActiveByCategory[category] = count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("cache: stats by category: %w", err)
	}
	return stats, nil
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
