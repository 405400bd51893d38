// Package cache provides the artifact store and fingerprint derivation
// for generated visualizations and API responses.
//
// It provides a Store interface with in-memory and SQLite
// implementations, SHA-256-based identity derivation over canonicalized
// parameters, per-category TTL policies, and an optional periodic
// expiry sweeper.
package cache
