package analysis

import "errors"

var (
	// ErrJobNotFound signals an unknown job id.
	ErrJobNotFound = errors.New("analysis job not found")

	// ErrConflict signals a transition that expected a different current
	// status. Terminal states absorb everything, so a worker racing a
	// replaced job sees this instead of clobbering state.
	ErrConflict = errors.New("analysis job state conflict")
)
