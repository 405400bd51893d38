// Package progress tracks learner completion of tutorial courses: unit
// percentages, graded quiz submissions, and derived per-course
// recommendations. The Tracker carries the policy; Store implementations
// carry the rows.
package progress
