// Package resilience provides timeout and retry wrappers for the slow
// external collaborators: the chart generators and the storage backend.
package resilience
