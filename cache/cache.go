package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Well-known entry categories.
const (
	CategoryVisualization = "visualization"
	CategoryAPIResponse   = "api_response"
)

// Sentinel errors for store operations.
var (
	ErrNilStore   = errors.New("cache: store is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Entry is a stored artifact together with its classification and expiry.
type Entry struct {
	// Payload is the serialized artifact or API response.
	Payload []byte

	// Category is the coarse classification used for statistics
	// and bulk operations (e.g. "visualization", "api_response").
	Category string

	// ExpiresAt is the absolute expiry instant. Entries past this
	// instant are logically absent even if physically present.
	ExpiresAt time.Time
}

// Expired reports whether the entry is logically absent at the given instant.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Stats summarizes the current state of a store. Active is computed as
// Total minus Expired at the moment of the call.
type Stats struct {
	Total            int            `json:"total_entries"`
	Expired          int            `json:"expired_entries"`
	Active           int            `json:"active_entries"`
	ActiveByCategory map[string]int `json:"by_category"`
}

// Store is the keyed persistence contract for generated artifacts.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Expiry: Get must report expired entries as absent without mutating
//     state; physical removal happens only through SweepExpired.
//   - Errors: storage failures propagate; a miss is (nil, false, nil).
type Store interface {
	// Get retrieves an entry. Returns (nil, false, nil) both when no
	// entry exists and when the entry has expired.
	Get(ctx context.Context, key string) (*Entry, bool, error)

	// Put stores a payload with expiry now+ttl, overwriting any
	// existing entry for the key. A non-positive ttl stores an
	// already-expired entry, which behaves as absent on Get.
	Put(ctx context.Context, key string, payload []byte, category string, ttl time.Duration) error

	// Delete removes an entry, reporting whether one was removed.
	Delete(ctx context.Context, key string) (bool, error)

	// SweepExpired removes every entry whose expiry precedes the sweep
	// time and returns the removed count. Non-expired entries are
	// never removed, even under concurrent writes.
	SweepExpired(ctx context.Context) (int, error)

	// Stats computes live statistics from the current state. Best
	// effort with respect to concurrent writers.
	Stats(ctx context.Context) (Stats, error)
}

// ValidateKey checks if a key is valid for storage.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
