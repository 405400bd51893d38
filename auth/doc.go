// Package auth guards the operator maintenance surface: cache sweeps,
// statistics, and progress resets. Callers authenticate with an API key
// or a JWT bearer token; the resulting identity travels in the context
// and is checked for the operator role before a maintenance operation
// runs.
package auth
