package progress

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests and single-process use.
type MemoryStore struct {
	mu sync.RWMutex
	// user -> course -> unit -> record
	records map[string]map[string]map[string]Record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[string]map[string]Record),
	}
}

// Get retrieves the record for one (user, course, unit) key.
func (s *MemoryStore) Get(ctx context.Context, user, course, unit string) (*Record, bool, error) {
	if user == "" || course == "" || unit == "" {
		return nil, false, ErrMissingKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[user][course][unit]
	if !ok {
		return nil, false, nil
	}
	out := cloneRecord(rec)
	return &out, true, nil
}

// List returns all records for a (user, course) pair, sorted by unit ID.
func (s *MemoryStore) List(ctx context.Context, user, course string) ([]Record, error) {
	if user == "" || course == "" {
		return nil, ErrMissingKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	units := s.records[user][course]
	out := make([]Record, 0, len(units))
	for _, rec := range units {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnitID < out[j].UnitID })
	return out, nil
}

// Upsert creates or replaces the record for its natural key.
func (s *MemoryStore) Upsert(ctx context.Context, rec Record) error {
	if rec.UserID == "" || rec.CourseID == "" || rec.UnitID == "" {
		return ErrMissingKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	courses, ok := s.records[rec.UserID]
	if !ok {
		courses = make(map[string]map[string]Record)
		s.records[rec.UserID] = courses
	}
	units, ok := courses[rec.CourseID]
	if !ok {
		units = make(map[string]Record)
		courses[rec.CourseID] = units
	}
	units[rec.UnitID] = cloneRecord(rec)
	return nil
}

// DeleteCourse removes every record for a (user, course) pair.
func (s *MemoryStore) DeleteCourse(ctx context.Context, user, course string) (int, error) {
	if user == "" || course == "" {
		return 0, ErrMissingKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.records[user][course])
	delete(s.records[user], course)
	return removed, nil
}

// CourseAverages returns per-course mean completion, sorted by course ID.
func (s *MemoryStore) CourseAverages(ctx context.Context, user string) ([]CourseAverage, error) {
	if user == "" {
		return nil, ErrMissingKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]CourseAverage, 0, len(s.records[user]))
	for course, units := range s.records[user] {
		if len(units) == 0 {
			continue
		}
		var sum float64
		for _, rec := range units {
			sum += rec.Percentage
		}
		out = append(out, CourseAverage{CourseID: course, Average: sum / float64(len(units))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

// cloneRecord deep-copies a record so callers cannot mutate stored state.
func cloneRecord(rec Record) Record {
	out := rec
	if rec.QuizResults != nil {
		out.QuizResults = make(map[string]QuizResult, len(rec.QuizResults))
		for id, qr := range rec.QuizResults {
			out.QuizResults[id] = cloneQuizResult(qr)
		}
	}
	if rec.CompletedAt != nil {
		t := *rec.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

func cloneQuizResult(qr QuizResult) QuizResult {
	out := qr
	if qr.Answers != nil {
		out.Answers = make(map[string]any, len(qr.Answers))
		for k, v := range qr.Answers {
			out.Answers[k] = v
		}
	}
	return out
}
