// Package coordinator is the request-facing service layer. It owns no
// state of its own: every operation validates its input, tags it with a
// request ID, and delegates to the dispatcher, progress tracker, or
// session store. Maintenance operations require an operator identity in
// the context.
package coordinator
