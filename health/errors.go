package health

import "errors"

var (
	// ErrCheckFailed indicates a check could not run against its target.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a check did not finish in time.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrUnknownCheck indicates no check is registered under the name.
	ErrUnknownCheck = errors.New("health: unknown check")
)
