package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation. Expired entries stay
// physically present until SweepExpired removes them; Get treats them as
// absent without mutating the map.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
}

type memEntry struct {
	payload   []byte
	category  string
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memEntry),
	}
}

// Get retrieves an entry. Returns (nil, false, nil) on miss or expiry.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || !time.Now().Before(e.expiresAt) {
		return nil, false, nil
	}

	payload := make([]byte, len(e.payload))
	copy(payload, e.payload)

	return &Entry{
		Payload:   payload,
		Category:  e.category,
		ExpiresAt: e.expiresAt,
	}, true, nil
}

// Put stores a payload with expiry now+ttl, overwriting any existing
// entry for the key.
func (s *MemoryStore) Put(_ context.Context, key string, payload []byte, category string, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	stored := make([]byte, len(payload))
	copy(stored, payload)

	s.mu.Lock()
	s.entries[key] = &memEntry{
		payload:   stored,
		category:  category,
		expiresAt: time.Now().Add(ttl),
	}
	s.mu.Unlock()

	return nil
}

// Delete removes an entry, reporting whether one was removed.
func (s *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	s.mu.Unlock()
	return ok, nil
}

// SweepExpired removes every expired entry and returns the removed count.
func (s *MemoryStore) SweepExpired(_ context.Context) (int, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Stats computes live statistics from the current state.
func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		ActiveByCategory: make(map[string]int),
	}
	for _, e := range s.entries {
		stats.Total++
		if !now.Before(e.expiresAt) {
			stats.Expired++
			continue
		}
		stats.ActiveByCategory[e.category]++
	}
	stats.Active = stats.Total - stats.Expired
	return stats, nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
