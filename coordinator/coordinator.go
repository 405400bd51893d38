package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/abzanganeh/mlsite/auth"
	"github.com/abzanganeh/mlsite/cache"
	"github.com/abzanganeh/mlsite/dispatch"
	"github.com/abzanganeh/mlsite/observe"
	"github.com/abzanganeh/mlsite/progress"
	"github.com/abzanganeh/mlsite/resilience"
	"github.com/abzanganeh/mlsite/session"
)

// Sentinel errors for coordinator operations.
var (
	// ErrBadRequest marks a client-side fault: missing fields, unknown
	// generation type. Operational failures are returned unwrapped.
	ErrBadRequest = errors.New("coordinator: bad request")

	ErrMissingDependency = errors.New("coordinator: missing dependency")
)

// Deps are the collaborators a coordinator delegates to.
type Deps struct {
	Dispatcher *dispatch.Dispatcher
	Tracker    *progress.Tracker
	Sessions   session.Store
	Cache      cache.Store

	// Optional; nil defaults to no-ops.
	Logger  observe.Logger
	Metrics observe.Metrics
	Tracer  observe.Tracer
}

// Coordinator is the stateless service layer over the site's core
// collaborators. Construct one per process or per request; both are
// cheap.
type Coordinator struct {
	dispatcher *dispatch.Dispatcher
	tracker    *progress.Tracker
	sessions   session.Store
	cache      cache.Store
	retry      *resilience.Retry
	logger     observe.Logger
	metrics    observe.Metrics
	tracer     observe.Tracer
}

// New creates a coordinator over the given collaborators.
func New(deps Deps) (*Coordinator, error) {
	switch {
	case deps.Dispatcher == nil:
		return nil, fmt.Errorf("%w: dispatcher", ErrMissingDependency)
	case deps.Tracker == nil:
		return nil, fmt.Errorf("%w: tracker", ErrMissingDependency)
	case deps.Sessions == nil:
		return nil, fmt.Errorf("%w: session store", ErrMissingDependency)
	case deps.Cache == nil:
		return nil, fmt.Errorf("%w: cache store", ErrMissingDependency)
	}
	if deps.Logger == nil {
		deps.Logger = observe.NopLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.NopMetrics()
	}
	if deps.Tracer == nil {
		deps.Tracer = observe.NopTracer()
	}

	return &Coordinator{
		dispatcher: deps.Dispatcher,
		tracker:    deps.Tracker,
		sessions:   deps.Sessions,
		cache:      deps.Cache,
		retry: resilience.NewRetry(resilience.RetryConfig{
			RetryIf: isTransientStorageErr,
		}),
		logger:  deps.Logger.With(observe.F("component", "coordinator")),
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
	}, nil
}

// isTransientStorageErr matches the failures a retried write can fix: a
// SQLite handle briefly held by another writer.
func isTransientStorageErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// newRequestID mints a ULID for log correlation.
func newRequestID() string {
	return ulid.Make().String()
}

// Generate resolves a visualization request through the cache and
// dispatcher. Unknown types are client errors; generator and storage
// failures pass through for the caller to shape.
func (c *Coordinator) Generate(ctx context.Context, req GenerationRequest) (GenerationResponse, error) {
	rid := newRequestID()
	ctx, span := c.tracer.StartSpan(ctx, "site.coordinator.generate",
		attribute.String("generation.type", req.Type),
		attribute.String("request.id", rid),
	)
	var err error
	defer func() { c.tracer.EndSpan(span, err) }()

	if strings.TrimSpace(req.Type) == "" {
		err = fmt.Errorf("%w: generation type is required", ErrBadRequest)
		return GenerationResponse{RequestID: rid}, err
	}

	payload, err := c.dispatcher.Dispatch(ctx, dispatch.Type(req.Type), req.Parameters)
	if err != nil {
		if errors.Is(err, dispatch.ErrUnknownType) {
			err = fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		c.logger.Warn(ctx, "generation request failed",
			observe.F("request_id", rid),
			observe.F("type", req.Type),
			observe.F("error", err.Error()),
		)
		return GenerationResponse{RequestID: rid}, err
	}

	return GenerationResponse{
		Success:       true,
		Type:          req.Type,
		Visualization: payload,
		RequestID:     rid,
	}, nil
}

// GetProgress returns the per-course progress view for a user.
func (c *Coordinator) GetProgress(ctx context.Context, userID, courseID string) (ProgressResponse, error) {
	rid := newRequestID()
	if userID == "" || courseID == "" {
		return ProgressResponse{RequestID: rid}, fmt.Errorf("%w: user and course are required", ErrBadRequest)
	}

	summary, err := c.tracker.GetProgress(ctx, userID, courseID)
	if err != nil {
		c.logger.Error(ctx, "progress read failed",
			observe.F("request_id", rid),
			observe.F("user", userID),
			observe.F("course", courseID),
			observe.F("error", err.Error()),
		)
		return ProgressResponse{RequestID: rid}, err
	}

	units := make([]UnitProgress, 0, len(summary.Units))
	for _, rec := range summary.Units {
		unit := UnitProgress{
			UnitID:      rec.UnitID,
			Percentage:  rec.Percentage,
			Completed:   rec.CompletedAt != nil,
			CompletedAt: rec.CompletedAt,
		}
		if len(rec.QuizResults) > 0 {
			unit.QuizScores = make(map[string]float64, len(rec.QuizResults))
			for id, qr := range rec.QuizResults {
				unit.QuizScores[id] = qr.Score
			}
		}
		units = append(units, unit)
	}

	return ProgressResponse{
		Success:         true,
		CourseID:        summary.CourseID,
		OverallProgress: summary.Overall,
		Units:           units,
		RequestID:       rid,
	}, nil
}

// UpdateProgress records a progress write, retrying transient storage
// contention.
func (c *Coordinator) UpdateProgress(ctx context.Context, req UpdateProgressRequest) (UpdateProgressResponse, error) {
	rid := newRequestID()
	if req.UserID == "" || req.CourseID == "" || req.UnitID == "" {
		return UpdateProgressResponse{RequestID: rid}, fmt.Errorf("%w: user, course, and unit are required", ErrBadRequest)
	}

	var rec progress.Record
	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		var err error
		rec, err = c.tracker.UpdateProgress(ctx, req.UserID, req.CourseID, req.UnitID, req.Percentage, req.QuizResults)
		return err
	})
	if err != nil {
		if errors.Is(err, progress.ErrMissingKey) {
			err = fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		c.logger.Error(ctx, "progress write failed",
			observe.F("request_id", rid),
			observe.F("user", req.UserID),
			observe.F("course", req.CourseID),
			observe.F("unit", req.UnitID),
			observe.F("error", err.Error()),
		)
		return UpdateProgressResponse{RequestID: rid}, err
	}

	return UpdateProgressResponse{
		Success:    true,
		UnitID:     rec.UnitID,
		Percentage: rec.Percentage,
		Completed:  rec.CompletedAt != nil,
		RequestID:  rid,
	}, nil
}

// SubmitQuiz grades a submission and records it against the unit.
func (c *Coordinator) SubmitQuiz(ctx context.Context, req QuizSubmissionRequest) (QuizSubmissionResponse, error) {
	rid := newRequestID()
	if req.UserID == "" || req.CourseID == "" || req.UnitID == "" || req.QuizID == "" {
		return QuizSubmissionResponse{RequestID: rid}, fmt.Errorf("%w: user, course, unit, and quiz are required", ErrBadRequest)
	}

	var outcome progress.QuizOutcome
	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		var err error
		outcome, err = c.tracker.SubmitQuiz(ctx, req.UserID, req.CourseID, req.UnitID, req.QuizID, req.Answers)
		return err
	})
	if err != nil {
		c.logger.Error(ctx, "quiz submission failed",
			observe.F("request_id", rid),
			observe.F("user", req.UserID),
			observe.F("quiz", req.QuizID),
			observe.F("error", err.Error()),
		)
		return QuizSubmissionResponse{RequestID: rid}, err
	}

	return QuizSubmissionResponse{
		Success:        true,
		QuizID:         outcome.QuizID,
		Score:          outcome.Score,
		Feedback:       outcome.Feedback,
		CorrectAnswers: outcome.CorrectAnswers,
		RequestID:      rid,
	}, nil
}

// GetRecommendations suggests what a user should work on next.
func (c *Coordinator) GetRecommendations(ctx context.Context, userID string) (RecommendationsResponse, error) {
	rid := newRequestID()
	if userID == "" {
		return RecommendationsResponse{RequestID: rid}, fmt.Errorf("%w: user is required", ErrBadRequest)
	}

	recs, err := c.tracker.GetRecommendations(ctx, userID)
	if err != nil {
		return RecommendationsResponse{RequestID: rid}, err
	}
	return RecommendationsResponse{Success: true, Recommendations: recs, RequestID: rid}, nil
}

// ResetProgress deletes a user's records for one course. Operator only.
func (c *Coordinator) ResetProgress(ctx context.Context, userID, courseID string) (ResetProgressResponse, error) {
	rid := newRequestID()
	if err := auth.RequireRole(ctx, auth.RoleOperator); err != nil {
		return ResetProgressResponse{RequestID: rid}, err
	}
	if userID == "" || courseID == "" {
		return ResetProgressResponse{RequestID: rid}, fmt.Errorf("%w: user and course are required", ErrBadRequest)
	}

	removed, err := c.tracker.ResetCourse(ctx, userID, courseID)
	if err != nil {
		return ResetProgressResponse{RequestID: rid}, err
	}
	return ResetProgressResponse{Success: true, RemovedRecords: removed, RequestID: rid}, nil
}

// SaveDemoState upserts demo widget state for a session.
func (c *Coordinator) SaveDemoState(ctx context.Context, req SaveDemoRequest) (DemoStateResponse, error) {
	rid := newRequestID()
	if req.SessionID == "" || req.DemoType == "" {
		return DemoStateResponse{RequestID: rid}, fmt.Errorf("%w: session and demo type are required", ErrBadRequest)
	}

	saved, err := c.sessions.Save(ctx, session.State{
		SessionID:  req.SessionID,
		DemoType:   req.DemoType,
		Parameters: req.Parameters,
		Results:    req.Results,
	})
	if err != nil {
		c.logger.Error(ctx, "demo state save failed",
			observe.F("request_id", rid),
			observe.F("session", req.SessionID),
			observe.F("demo", req.DemoType),
			observe.F("error", err.Error()),
		)
		return DemoStateResponse{RequestID: rid}, err
	}
	return DemoStateResponse{Success: true, State: &saved, RequestID: rid}, nil
}

// LoadDemoState retrieves demo widget state for a session. A session
// with no saved state succeeds with a nil State.
func (c *Coordinator) LoadDemoState(ctx context.Context, sessionID, demoType string) (DemoStateResponse, error) {
	rid := newRequestID()
	if sessionID == "" || demoType == "" {
		return DemoStateResponse{RequestID: rid}, fmt.Errorf("%w: session and demo type are required", ErrBadRequest)
	}

	state, ok, err := c.sessions.Load(ctx, sessionID, demoType)
	if err != nil {
		return DemoStateResponse{RequestID: rid}, err
	}
	resp := DemoStateResponse{Success: true, RequestID: rid}
	if ok {
		resp.State = state
	}
	return resp, nil
}

// Sweep removes expired cache entries. Operator only.
func (c *Coordinator) Sweep(ctx context.Context) (SweepResponse, error) {
	rid := newRequestID()
	if err := auth.RequireRole(ctx, auth.RoleOperator); err != nil {
		return SweepResponse{RequestID: rid}, err
	}

	removed, err := c.cache.SweepExpired(ctx)
	if err != nil {
		c.logger.Error(ctx, "cache sweep failed",
			observe.F("request_id", rid),
			observe.F("error", err.Error()),
		)
		return SweepResponse{RequestID: rid}, err
	}
	c.metrics.RecordSweep(ctx, removed)
	c.logger.Info(ctx, "cache sweep completed",
		observe.F("request_id", rid),
		observe.F("removed", removed),
	)
	return SweepResponse{Success: true, ClearedEntries: removed, RequestID: rid}, nil
}

// CacheStats reports live cache occupancy. Operator only.
func (c *Coordinator) CacheStats(ctx context.Context) (CacheStatsResponse, error) {
	rid := newRequestID()
	if err := auth.RequireRole(ctx, auth.RoleOperator); err != nil {
		return CacheStatsResponse{RequestID: rid}, err
	}

	stats, err := c.cache.Stats(ctx)
	if err != nil {
		return CacheStatsResponse{RequestID: rid}, err
	}
	return CacheStatsResponse{Success: true, Stats: stats, RequestID: rid}, nil
}
