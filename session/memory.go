package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-process use.
type MemoryStore struct {
	mu sync.RWMutex
	// session -> demo -> state
	states map[string]map[string]State
	now    func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]map[string]State),
		now:    time.Now,
	}
}

// Save creates or replaces the state for its (session, demo) key.
func (s *MemoryStore) Save(ctx context.Context, state State) (State, error) {
	if state.SessionID == "" || state.DemoType == "" {
		return State{}, ErrMissingKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	demos, ok := s.states[state.SessionID]
	if !ok {
		demos = make(map[string]State)
		s.states[state.SessionID] = demos
	}

	stored := cloneState(state)
	stored.UpdatedAt = now
	if prev, ok := demos[state.DemoType]; ok {
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	demos[state.DemoType] = stored
	return cloneState(stored), nil
}

// Load retrieves the state for one (session, demo) key.
func (s *MemoryStore) Load(ctx context.Context, sessionID, demoType string) (*State, bool, error) {
	if sessionID == "" || demoType == "" {
		return nil, false, ErrMissingKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[sessionID][demoType]
	if !ok {
		return nil, false, nil
	}
	out := cloneState(state)
	return &out, true, nil
}

// Delete removes the state for one key.
func (s *MemoryStore) Delete(ctx context.Context, sessionID, demoType string) (bool, error) {
	if sessionID == "" || demoType == "" {
		return false, ErrMissingKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	demos := s.states[sessionID]
	if _, ok := demos[demoType]; !ok {
		return false, nil
	}
	delete(demos, demoType)
	if len(demos) == 0 {
		delete(s.states, sessionID)
	}
	return true, nil
}

// DeleteSession removes all demo state for a session.
func (s *MemoryStore) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, ErrMissingKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.states[sessionID])
	delete(s.states, sessionID)
	return removed, nil
}

// cloneState copies a state so callers cannot mutate stored bytes.
func cloneState(state State) State {
	out := state
	if state.Parameters != nil {
		out.Parameters = append([]byte(nil), state.Parameters...)
	}
	if state.Results != nil {
		out.Results = append([]byte(nil), state.Results...)
	}
	return out
}
