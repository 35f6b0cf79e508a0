package scheduler

import "errors"

var (
	// ErrWarmerStopped means a manual run was requested while the warmer is not started
	ErrWarmerStopped = errors.New("cache warmer is stopped")

	ErrWarmerConfig = errors.New("invalid cache warmer configuration")
)
