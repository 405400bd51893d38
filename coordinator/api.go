package coordinator

import (
	"encoding/json"
	"time"

	"github.com/abzanganeh/mlsite/cache"
	"github.com/abzanganeh/mlsite/progress"
	"github.com/abzanganeh/mlsite/session"
)

// GenerationRequest asks for one visualization artifact.
type GenerationRequest struct {
	Type       string         `json:"type"`
	Parameters map[string]any `json:"parameters"`
}

// GenerationResponse carries a generated (or cached) artifact.
type GenerationResponse struct {
	Success       bool            `json:"success"`
	Type          string          `json:"type"`
	Visualization json.RawMessage `json:"visualization"`
	RequestID     string          `json:"request_id"`
}

// UnitProgress is the client view of one unit's record.
type UnitProgress struct {
	UnitID      string             `json:"unit_id"`
	Percentage  float64            `json:"percentage"`
	Completed   bool               `json:"completed"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	QuizScores  map[string]float64 `json:"quiz_scores,omitempty"`
}

// ProgressResponse is the per-course progress view.
type ProgressResponse struct {
	Success         bool           `json:"success"`
	CourseID        string         `json:"course_id"`
	OverallProgress float64        `json:"overall_progress"`
	Units           []UnitProgress `json:"units"`
	RequestID       string         `json:"request_id"`
}

// UpdateProgressRequest records completion of part of a unit.
type UpdateProgressRequest struct {
	UserID      string                         `json:"user_id"`
	CourseID    string                         `json:"course_id"`
	UnitID      string                         `json:"unit_id"`
	Percentage  float64                        `json:"percentage"`
	QuizResults map[string]progress.QuizResult `json:"quiz_results,omitempty"`
}

// UpdateProgressResponse acknowledges a progress write.
type UpdateProgressResponse struct {
	Success    bool    `json:"success"`
	UnitID     string  `json:"unit_id"`
	Percentage float64 `json:"percentage"`
	Completed  bool    `json:"completed"`
	RequestID  string  `json:"request_id"`
}

// QuizSubmissionRequest submits answers for grading.
type QuizSubmissionRequest struct {
	UserID   string         `json:"user_id"`
	CourseID string         `json:"course_id"`
	UnitID   string         `json:"unit_id"`
	QuizID   string         `json:"quiz_id"`
	Answers  map[string]any `json:"answers"`
}

// QuizSubmissionResponse carries the graded outcome.
type QuizSubmissionResponse struct {
	Success        bool           `json:"success"`
	QuizID         string         `json:"quiz_id"`
	Score          float64        `json:"score"`
	Feedback       string         `json:"feedback"`
	CorrectAnswers map[string]any `json:"correct_answers,omitempty"`
	RequestID      string         `json:"request_id"`
}

// RecommendationsResponse lists per-course suggestions.
type RecommendationsResponse struct {
	Success         bool                      `json:"success"`
	Recommendations []progress.Recommendation `json:"recommendations"`
	RequestID       string                    `json:"request_id"`
}

// ResetProgressResponse acknowledges a course reset.
type ResetProgressResponse struct {
	Success        bool   `json:"success"`
	RemovedRecords int    `json:"removed_records"`
	RequestID      string `json:"request_id"`
}

// SaveDemoRequest stores demo widget state for a session.
type SaveDemoRequest struct {
	SessionID  string          `json:"session_id"`
	DemoType   string          `json:"demo_type"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	Results    json.RawMessage `json:"results,omitempty"`
}

// DemoStateResponse carries saved demo state. State is nil when the
// session has none for the demo.
type DemoStateResponse struct {
	Success   bool           `json:"success"`
	State     *session.State `json:"state,omitempty"`
	RequestID string         `json:"request_id"`
}

// SweepResponse reports an explicit cache sweep.
type SweepResponse struct {
	Success        bool   `json:"success"`
	ClearedEntries int    `json:"cleared_entries"`
	RequestID      string `json:"request_id"`
}

// CacheStatsResponse reports cache occupancy.
type CacheStatsResponse struct {
	Success   bool        `json:"success"`
	Stats     cache.Stats `json:"stats"`
	RequestID string      `json:"request_id"`
}
