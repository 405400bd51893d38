// Package dispatch routes typed generation requests through the
// artifact cache, invoking the registered external generator on a miss
// and storing successful results. Failures are surfaced to the caller
// and never cached.
package dispatch
