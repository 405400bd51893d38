package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/abzanganeh/mlsite/auth"
	"github.com/abzanganeh/mlsite/cache"
	"github.com/abzanganeh/mlsite/dispatch"
	"github.com/abzanganeh/mlsite/progress"
	"github.com/abzanganeh/mlsite/session"
)

type testEnv struct {
	coordinator *Coordinator
	cache       cache.Store
	genCalls    *int
}

func newTestEnv(t *testing.T, progressStore progress.Store) *testEnv {
	t.Helper()

	registry := dispatch.NewRegistry()
	calls := 0
	err := registry.Register(dispatch.TypeClustering, func(ctx context.Context, params map[string]any) ([]byte, error) {
		calls++
		return []byte(`{"plot":"clusters"}`), nil
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	store := cache.NewMemoryStore()
	dispatcher, err := dispatch.NewDispatcher(dispatch.DispatcherConfig{}, store, nil, cache.DefaultPolicy(), registry, nil, nil)
	if err != nil {
		t.Fatalf("NewDispatcher failed: %v", err)
	}

	if progressStore == nil {
		progressStore = progress.NewMemoryStore()
	}
	tracker, err := progress.NewTracker(progress.TrackerConfig{}, progressStore, nil, nil)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	c, err := New(Deps{
		Dispatcher: dispatcher,
		Tracker:    tracker,
		Sessions:   session.NewMemoryStore(),
		Cache:      store,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return &testEnv{coordinator: c, cache: store, genCalls: &calls}
}

func operatorContext() context.Context {
	return auth.WithIdentity(context.Background(), &auth.Identity{
		Principal: "ops",
		Roles:     []string{auth.RoleOperator},
	})
}

func TestNew_MissingDependencies(t *testing.T) {
	if _, err := New(Deps{}); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("New with no deps = %v, want ErrMissingDependency", err)
	}
}

func TestGenerate(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	resp, err := env.coordinator.Generate(ctx, GenerationRequest{
		Type:       "clustering",
		Parameters: map[string]any{"k": 3},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !resp.Success {
		t.Error("response not marked successful")
	}
	if string(resp.Visualization) != `{"plot":"clusters"}` {
		t.Errorf("visualization = %s", resp.Visualization)
	}
	if resp.RequestID == "" {
		t.Error("request id missing")
	}

	// Identical parameters are served from the cache.
	resp2, err := env.coordinator.Generate(ctx, GenerationRequest{
		Type:       "clustering",
		Parameters: map[string]any{"k": 3},
	})
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}
	if *env.genCalls != 1 {
		t.Errorf("generator calls = %d, want 1", *env.genCalls)
	}
	if resp2.RequestID == resp.RequestID {
		t.Error("request ids should be unique per call")
	}
}

func TestGenerate_ClientErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if _, err := env.coordinator.Generate(ctx, GenerationRequest{Type: ""}); !errors.Is(err, ErrBadRequest) {
		t.Errorf("empty type = %v, want ErrBadRequest", err)
	}

	_, err := env.coordinator.Generate(ctx, GenerationRequest{Type: "hologram"})
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("unknown type = %v, want ErrBadRequest", err)
	}
	if !errors.Is(err, dispatch.ErrUnknownType) {
		t.Errorf("unknown type = %v, should preserve dispatch.ErrUnknownType", err)
	}
}

func TestProgressRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	update, err := env.coordinator.UpdateProgress(ctx, UpdateProgressRequest{
		UserID:     "user-1",
		CourseID:   "clustering",
		UnitID:     "unit-3",
		Percentage: 50,
	})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if !update.Success || update.Completed {
		t.Errorf("update = %+v, want success and not completed", update)
	}

	resp, err := env.coordinator.GetProgress(ctx, "user-1", "clustering")
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if resp.OverallProgress != 50 {
		t.Errorf("overall = %v, want 50", resp.OverallProgress)
	}
	if len(resp.Units) != 1 || resp.Units[0].UnitID != "unit-3" {
		t.Errorf("units = %+v", resp.Units)
	}
}

func TestSubmitQuiz(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	resp, err := env.coordinator.SubmitQuiz(ctx, QuizSubmissionRequest{
		UserID:   "user-1",
		CourseID: "clustering",
		UnitID:   "unit-2",
		QuizID:   "quiz-1",
		Answers:  map[string]any{"q1": "A", "q2": "B"},
	})
	if err != nil {
		t.Fatalf("SubmitQuiz failed: %v", err)
	}
	if resp.QuizID != "quiz-1" {
		t.Errorf("quiz id = %q", resp.QuizID)
	}
	if resp.Score != 100 {
		t.Errorf("score = %v, want 100", resp.Score)
	}
	if resp.Feedback != "Excellent! You have a strong understanding of this topic." {
		t.Errorf("feedback = %q", resp.Feedback)
	}

	prog, err := env.coordinator.GetProgress(ctx, "user-1", "clustering")
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	unit := prog.Units[0]
	if !unit.Completed || unit.Percentage != 100 {
		t.Errorf("unit after quiz = %+v, want completed at 100", unit)
	}
	if unit.QuizScores["quiz-1"] != 100 {
		t.Errorf("quiz scores = %v", unit.QuizScores)
	}
}

// flakyProgressStore fails the first Upsert with a transient storage
// error, as a briefly locked SQLite handle would.
type flakyProgressStore struct {
	progress.Store
	failures int
}

func (s *flakyProgressStore) Upsert(ctx context.Context, rec progress.Record) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("progress: upsert: database is locked (5) (SQLITE_BUSY)")
	}
	return s.Store.Upsert(ctx, rec)
}

func TestUpdateProgress_RetriesTransientFailure(t *testing.T) {
	flaky := &flakyProgressStore{Store: progress.NewMemoryStore(), failures: 1}
	env := newTestEnv(t, flaky)

	resp, err := env.coordinator.UpdateProgress(context.Background(), UpdateProgressRequest{
		UserID:     "user-1",
		CourseID:   "clustering",
		UnitID:     "unit-1",
		Percentage: 25,
	})
	if err != nil {
		t.Fatalf("UpdateProgress should survive one transient failure: %v", err)
	}
	if !resp.Success {
		t.Error("response not marked successful")
	}
}

func TestUpdateProgress_BadRequest(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.coordinator.UpdateProgress(context.Background(), UpdateProgressRequest{UserID: "user-1"})
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("missing fields = %v, want ErrBadRequest", err)
	}
}

func TestRecommendations(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if _, err := env.coordinator.UpdateProgress(ctx, UpdateProgressRequest{
		UserID: "user-1", CourseID: "clustering", UnitID: "unit-1", Percentage: 45,
	}); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	resp, err := env.coordinator.GetRecommendations(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetRecommendations failed: %v", err)
	}
	if len(resp.Recommendations) != 1 || resp.Recommendations[0].Tier != progress.TierContinue {
		t.Errorf("recommendations = %+v", resp.Recommendations)
	}
}

func TestDemoState(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	saved, err := env.coordinator.SaveDemoState(ctx, SaveDemoRequest{
		SessionID:  "sess-1",
		DemoType:   "kmeans",
		Parameters: json.RawMessage(`{"k":4}`),
	})
	if err != nil {
		t.Fatalf("SaveDemoState failed: %v", err)
	}
	if saved.State == nil || saved.State.CreatedAt.IsZero() {
		t.Errorf("saved state = %+v", saved.State)
	}

	loaded, err := env.coordinator.LoadDemoState(ctx, "sess-1", "kmeans")
	if err != nil {
		t.Fatalf("LoadDemoState failed: %v", err)
	}
	if loaded.State == nil || string(loaded.State.Parameters) != `{"k":4}` {
		t.Errorf("loaded state = %+v", loaded.State)
	}

	// Absent state is a successful empty response, not an error.
	missing, err := env.coordinator.LoadDemoState(ctx, "sess-1", "dendrogram")
	if err != nil {
		t.Fatalf("LoadDemoState for absent state failed: %v", err)
	}
	if !missing.Success || missing.State != nil {
		t.Errorf("missing state response = %+v", missing)
	}
}

func TestMaintenanceOpsRequireOperator(t *testing.T) {
	env := newTestEnv(t, nil)
	anon := context.Background()
	viewer := auth.WithIdentity(context.Background(), &auth.Identity{Principal: "v", Roles: []string{"viewer"}})

	if _, err := env.coordinator.Sweep(anon); !errors.Is(err, auth.ErrMissingCredentials) {
		t.Errorf("anonymous Sweep = %v, want ErrMissingCredentials", err)
	}
	if _, err := env.coordinator.Sweep(viewer); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("viewer Sweep = %v, want ErrForbidden", err)
	}
	if _, err := env.coordinator.CacheStats(anon); !errors.Is(err, auth.ErrMissingCredentials) {
		t.Errorf("anonymous CacheStats = %v, want ErrMissingCredentials", err)
	}
	if _, err := env.coordinator.ResetProgress(viewer, "user-1", "clustering"); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("viewer ResetProgress = %v, want ErrForbidden", err)
	}
}

func TestSweepAndStats(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := operatorContext()

	if err := env.cache.Put(ctx, "visualization:live", []byte("x"), cache.CategoryVisualization, time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := env.cache.Put(ctx, "visualization:stale", []byte("y"), cache.CategoryVisualization, -time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	stats, err := env.coordinator.CacheStats(ctx)
	if err != nil {
		t.Fatalf("CacheStats failed: %v", err)
	}
	if stats.Stats.Total != 2 || stats.Stats.Expired != 1 {
		t.Errorf("stats = %+v, want total 2 expired 1", stats.Stats)
	}

	swept, err := env.coordinator.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if swept.ClearedEntries != 1 {
		t.Errorf("cleared = %d, want 1", swept.ClearedEntries)
	}

	after, err := env.coordinator.CacheStats(ctx)
	if err != nil {
		t.Fatalf("CacheStats failed: %v", err)
	}
	if after.Stats.Total != 1 || after.Stats.Expired != 0 {
		t.Errorf("stats after sweep = %+v", after.Stats)
	}
}

func TestResetProgress(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := operatorContext()

	if _, err := env.coordinator.UpdateProgress(ctx, UpdateProgressRequest{
		UserID: "user-1", CourseID: "clustering", UnitID: "unit-1", Percentage: 60,
	}); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	resp, err := env.coordinator.ResetProgress(ctx, "user-1", "clustering")
	if err != nil {
		t.Fatalf("ResetProgress failed: %v", err)
	}
	if resp.RemovedRecords != 1 {
		t.Errorf("removed = %d, want 1", resp.RemovedRecords)
	}
}
