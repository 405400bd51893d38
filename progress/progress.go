package progress

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for progress operations.
var (
	ErrNilStore   = errors.New("progress: store is nil")
	ErrMissingKey = errors.New("progress: user, course, and unit are required")
)

// QuizResult is one scored quiz submission.
type QuizResult struct {
	Score   float64        `json:"score"`
	Answers map[string]any `json:"answers"`
}

// Record tracks one user's progress through one unit of a course.
type Record struct {
	UserID   string
	CourseID string
	UnitID   string

	// Percentage is the unit completion in [0, 100].
	Percentage float64

	// QuizResults maps quiz IDs to their latest scored submission.
	QuizResults map[string]QuizResult

	// CompletedAt is set exactly when Percentage reaches 100. Whether
	// a later regression clears it is a Tracker policy decision.
	CompletedAt *time.Time

	// LastTouched is refreshed on every write.
	LastTouched time.Time
}

// Summary is the derived per-course view: all unit records plus the
// mean completion percentage. It is computed, never stored.
type Summary struct {
	CourseID string
	Units    []Record

	// Overall is the mean completion percentage across units;
	// 0 when the course has no records.
	Overall float64
}

// CourseAverage is one course's mean completion for a user.
type CourseAverage struct {
	CourseID string
	Average  float64
}

// Recommendation tiers, ordered by urgency.
const (
	TierStart    = "start"
	TierContinue = "continue"
	TierFinish   = "finish"
)

// Recommendation is a per-course learning suggestion derived from the
// user's overall progress. Completed courses produce none.
type Recommendation struct {
	CourseID string `json:"course_id"`
	Tier     string `json:"recommendation"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
}

// Store is the persistence contract for progress records.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use; the
//     later write wins on a racing upsert for the same key.
//   - Errors: storage failures propagate; a missing record is
//     (nil, false, nil).
type Store interface {
	// Get retrieves the record for one (user, course, unit) key.
	Get(ctx context.Context, user, course, unit string) (*Record, bool, error)

	// List returns all records for a (user, course) pair, sorted by
	// unit ID. An untouched course yields an empty slice, not an error.
	List(ctx context.Context, user, course string) ([]Record, error)

	// Upsert creates or replaces the record for its natural key.
	Upsert(ctx context.Context, rec Record) error

	// DeleteCourse removes every record for a (user, course) pair and
	// returns the removed count.
	DeleteCourse(ctx context.Context, user, course string) (int, error)

	// CourseAverages returns the mean completion percentage of every
	// course the user has touched, sorted by course ID.
	CourseAverages(ctx context.Context, user string) ([]CourseAverage, error)
}
