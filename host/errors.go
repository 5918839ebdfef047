package host

import "errors"

var (
	// ErrRunning is returned by Run when the driver is already running.
	ErrRunning = errors.New("driver already running")

	// ErrStopped is returned when submitting to, or running, a driver whose
	// Run has returned.
	ErrStopped = errors.New("driver stopped")

	// ErrInvalidInterval is returned by Open for a non-positive tick interval.
	ErrInvalidInterval = errors.New("tick interval must be positive")
)
