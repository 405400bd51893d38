package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abzanganeh/mlsite/observe"
)

const progressSchema = `
CREATE TABLE IF NOT EXISTS tutorial_progress (
	user_id      TEXT NOT NULL,
	course_id    TEXT NOT NULL,
	unit_id      TEXT NOT NULL,
	percentage   REAL NOT NULL DEFAULT 0,
	quiz_results TEXT NOT NULL DEFAULT '{}',
	completed_at INTEGER,
	last_touched INTEGER NOT NULL,
	PRIMARY KEY (user_id, course_id, unit_id)
);
CREATE INDEX IF NOT EXISTS idx_tutorial_progress_user_course ON tutorial_progress(user_id, course_id);
`

// SQLiteStore persists progress records in SQLite. Quiz results are
// stored as a JSON object column; timestamps as Unix milliseconds.
type SQLiteStore struct {
	db     *sql.DB
	logger observe.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens (or creates) a SQLite-backed store at path and
// ensures the schema exists. A nil logger defaults to a no-op.
func OpenSQLiteStore(path string, logger observe.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("progress: storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("progress: open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("progress: ping sqlite db: %w", err)
	}
	store, err := NewSQLiteStore(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an existing database handle and ensures the
// schema exists. A nil logger defaults to a no-op.
func NewSQLiteStore(db *sql.DB, logger observe.Logger) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("progress: db handle is required")
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	if _, err := db.Exec(progressSchema); err != nil {
		return nil, fmt.Errorf("progress: ensure schema: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger.With(observe.F("component", "progress.sqlite"))}, nil
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

// Get retrieves the record for one (user, course, unit) key.
func (s *SQLiteStore) Get(ctx context.Context, user, course, unit string) (*Record, bool, error) {
	if user == "" || course == "" || unit == "" {
		return nil, false, ErrMissingKey
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT percentage, quiz_results, completed_at, last_touched
		 FROM tutorial_progress
		 WHERE user_id = ? AND course_id = ? AND unit_id = ?`,
		user, course, unit)

	rec, err := s.scanRecord(ctx, row, user, course, unit)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("progress: get %s/%s/%s: %w", user, course, unit, err)
	}
	return rec, true, nil
}

// List returns all records for a (user, course) pair, sorted by unit ID.
func (s *SQLiteStore) List(ctx context.Context, user, course string) ([]Record, error) {
	if user == "" || course == "" {
		return nil, ErrMissingKey
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT unit_id, percentage, quiz_results, completed_at, last_touched
		 FROM tutorial_progress
		 WHERE user_id = ? AND course_id = ?
		 ORDER BY unit_id`,
		user, course)
	if err != nil {
		return nil, fmt.Errorf("progress: list %s/%s: %w", user, course, err)
	}
	defer rows.Close()

	out := make([]Record, 0, 8)
	for rows.Next() {
		var unit string
		var pct float64
		var quizJSON string
		var completedAt sql.NullInt64
		var lastTouched int64
		if err := rows.Scan(&unit, &pct, &quizJSON, &completedAt, &lastTouched); err != nil {
			return nil, fmt.Errorf("progress: list %s/%s: %w", user, course, err)
		}
		out = append(out, s.buildRecord(ctx, user, course, unit, pct, quizJSON, completedAt, lastTouched))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("progress: list %s/%s: %w", user, course, err)
	}
	return out, nil
}

// Upsert creates or replaces the record for its natural key.
func (s *SQLiteStore) Upsert(ctx context.Context, rec Record) error {
	if rec.UserID == "" || rec.CourseID == "" || rec.UnitID == "" {
		return ErrMissingKey
	}

	quiz := rec.QuizResults
	if quiz == nil {
		quiz = map[string]QuizResult{}
	}
	quizJSON, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("progress: encode quiz results: %w", err)
	}

	var completedAt any
	if rec.CompletedAt != nil {
		completedAt = rec.CompletedAt.UnixMilli()
	}
	lastTouched := rec.LastTouched
	if lastTouched.IsZero() {
		lastTouched = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tutorial_progress (user_id, course_id, unit_id, percentage, quiz_results, completed_at, last_touched)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, course_id, unit_id) DO UPDATE SET
		   percentage = excluded.percentage,
		   quiz_results = excluded.quiz_results,
		   completed_at = excluded.completed_at,
		   last_touched = excluded.last_touched`,
		rec.UserID, rec.CourseID, rec.UnitID, rec.Percentage, string(quizJSON), completedAt, lastTouched.UnixMilli())
	if err != nil {
		return fmt.Errorf("progress: upsert %s/%s/%s: %w", rec.UserID, rec.CourseID, rec.UnitID, err)
	}
	return nil
}

// DeleteCourse removes every record for a (user, course) pair.
func (s *SQLiteStore) DeleteCourse(ctx context.Context, user, course string) (int, error) {
	if user == "" || course == "" {
		return 0, ErrMissingKey
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tutorial_progress WHERE user_id = ? AND course_id = ?`, user, course)
	if err != nil {
		return 0, fmt.Errorf("progress: delete course %s/%s: %w", user, course, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("progress: delete course %s/%s: %w", user, course, err)
	}
	return int(n), nil
}

// CourseAverages returns per-course mean completion, sorted by course ID.
func (s *SQLiteStore) CourseAverages(ctx context.Context, user string) ([]CourseAverage, error) {
	if user == "" {
		return nil, ErrMissingKey
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT course_id, AVG(percentage)
		 FROM tutorial_progress
		 WHERE user_id = ?
		 GROUP BY course_id
		 ORDER BY course_id`,
		user)
	if err != nil {
		return nil, fmt.Errorf("progress: course averages for %s: %w", user, err)
	}
	defer rows.Close()

	out := make([]CourseAverage, 0, 4)
	for rows.Next() {
		var avg CourseAverage
		if err := rows.Scan(&avg.CourseID, &avg.Average); err != nil {
			return nil, fmt.Errorf("progress: course averages for %s: %w", user, err)
		}
		out = append(out, avg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("progress: course averages for %s: %w", user, err)
	}
	return out, nil
}

func (s *SQLiteStore) scanRecord(ctx context.Context, row *sql.Row, user, course, unit string) (*Record, error) {
	var pct float64
	var quizJSON string
	var completedAt sql.NullInt64
	var lastTouched int64
	if err := row.Scan(&pct, &quizJSON, &completedAt, &lastTouched); err != nil {
		return nil, err
	}
	rec := s.buildRecord(ctx, user, course, unit, pct, quizJSON, completedAt, lastTouched)
	return &rec, nil
}

// buildRecord assembles a record from raw columns. A malformed
// quiz_results blob degrades to an empty map so one bad row cannot
// poison the whole course view.
func (s *SQLiteStore) buildRecord(ctx context.Context, user, course, unit string, pct float64, quizJSON string, completedAt sql.NullInt64, lastTouched int64) Record {
	rec := Record{
		UserID:      user,
		CourseID:    course,
		UnitID:      unit,
		Percentage:  pct,
		QuizResults: map[string]QuizResult{},
		LastTouched: time.UnixMilli(lastTouched).UTC(),
	}
	if completedAt.Valid {
		t := time.UnixMilli(completedAt.Int64).UTC()
		rec.CompletedAt = &t
	}
	if quizJSON != "" {
		if err := json.Unmarshal([]byte(quizJSON), &rec.QuizResults); err != nil {
			s.logger.Warn(ctx, "discarding malformed quiz results",
				observe.F("user", user),
				observe.F("course", course),
				observe.F("unit", unit),
				observe.F("error", err.Error()),
			)
			rec.QuizResults = map[string]QuizResult{}
		}
	}
	return rec
}
