// Package session stores interactive demo state keyed by browser
// session and demo type. Saving is an upsert; state has no expiry and
// lives until explicitly deleted.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Sentinel errors for session operations.
var (
	ErrMissingKey = errors.New("session: session id and demo type are required")
)

// State is the saved configuration and output of one demo widget for
// one browser session. Parameters and Results are opaque JSON; the
// store never interprets them.
type State struct {
	SessionID  string          `json:"session_id"`
	DemoType   string          `json:"demo_type"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	Results    json.RawMessage `json:"results,omitempty"`

	// CreatedAt is set on first save and never changes; UpdatedAt is
	// refreshed on every save.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistence contract for demo state.
//
// Contract:
//   - Save is an upsert on (session_id, demo_type): the same session can
//     hold independent state for different demos.
//   - A missing state is (nil, false, nil), never an error.
type Store interface {
	// Save creates or replaces the state for its (session, demo) key
	// and returns the stored value with timestamps applied.
	Save(ctx context.Context, state State) (State, error)

	// Load retrieves the state for one (session, demo) key.
	Load(ctx context.Context, sessionID, demoType string) (*State, bool, error)

	// Delete removes the state for one key, reporting whether anything
	// was removed.
	Delete(ctx context.Context, sessionID, demoType string) (bool, error)

	// DeleteSession removes all demo state for a session and returns
	// the removed count.
	DeleteSession(ctx context.Context, sessionID string) (int, error)
}
