package scheduler

import "errors"

var (
	// ErrNoNodeAvailable is returned when no node is admitted for a build
	ErrNoNodeAvailable = errors.New("no node available for build")
)
