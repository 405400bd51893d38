package session

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const demoStateSchema = `
CREATE TABLE IF NOT EXISTS demo_states (
	session_id TEXT NOT NULL,
	demo_type  TEXT NOT NULL,
	parameters TEXT,
	results    TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (session_id, demo_type)
);
CREATE INDEX IF NOT EXISTS idx_demo_states_session ON demo_states(session_id);
`

// SQLiteStore persists demo state in SQLite. Parameters and results are
// stored as raw JSON text; timestamps as Unix milliseconds.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens (or creates) a SQLite-backed store at path and
// ensures the schema exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("session: storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("session: open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: ping sqlite db: %w", err)
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an existing database handle and ensures the
// schema exists.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("session: db handle is required")
	}
	if _, err := db.Exec(demoStateSchema); err != nil {
		return nil, fmt.Errorf("session: ensure schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
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

// Save creates or replaces the state for its (session, demo) key. On
// replace the original created_at is kept.
func (s *SQLiteStore) Save(ctx context.Context, state State) (State, error) {
	if state.SessionID == "" || state.DemoType == "" {
		return State{}, ErrMissingKey
	}

	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO demo_states (session_id, demo_type, parameters, results, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, demo_type) DO UPDATE SET
		   parameters = excluded.parameters,
		   results = excluded.results,
		   updated_at = excluded.updated_at`,
		state.SessionID, state.DemoType,
		nullableJSON(state.Parameters), nullableJSON(state.Results),
		now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return State{}, fmt.Errorf("session: save %s/%s: %w", state.SessionID, state.DemoType, err)
	}

	stored, ok, err := s.Load(ctx, state.SessionID, state.DemoType)
	if err != nil {
		return State{}, err
	}
	if !ok {
		return State{}, fmt.Errorf("session: save %s/%s: row vanished after write", state.SessionID, state.DemoType)
	}
	return *stored, nil
}

// Load retrieves the state for one (session, demo) key.
func (s *SQLiteStore) Load(ctx context.Context, sessionID, demoType string) (*State, bool, error) {
	if sessionID == "" || demoType == "" {
		return nil, false, ErrMissingKey
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT parameters, results, created_at, updated_at
		 FROM demo_states
		 WHERE session_id = ? AND demo_type = ?`,
		sessionID, demoType)

	var params, results sql.NullString
	var createdAt, updatedAt int64
	if err := row.Scan(&params, &results, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("session: load %s/%s: %w", sessionID, demoType, err)
	}

	state := &State{
		SessionID: sessionID,
		DemoType:  demoType,
		CreatedAt: time.UnixMilli(createdAt).UTC(),
		UpdatedAt: time.UnixMilli(updatedAt).UTC(),
	}
	if params.Valid {
		state.Parameters = []byte(params.String)
	}
	if results.Valid {
		state.Results = []byte(results.String)
	}
	return state, true, nil
}

// Delete removes the state for one key.
func (s *SQLiteStore) Delete(ctx context.Context, sessionID, demoType string) (bool, error) {
	if sessionID == "" || demoType == "" {
		return false, ErrMissingKey
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM demo_states WHERE session_id = ? AND demo_type = ?`, sessionID, demoType)
	if err != nil {
		return false, fmt.Errorf("session: delete %s/%s: %w", sessionID, demoType, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("session: delete %s/%s: %w", sessionID, demoType, err)
	}
	return n > 0, nil
}

// DeleteSession removes all demo state for a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, ErrMissingKey
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM demo_states WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("session: delete session %s: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("session: delete session %s: %w", sessionID, err)
	}
	return int(n), nil
}

// nullableJSON maps empty raw JSON to NULL so absent fields stay absent.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
