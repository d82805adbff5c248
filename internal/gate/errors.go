package gate

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned by New when no persister is supplied.
	ErrNotConfigured = errors.New("gate: persistence collaborator not configured")
	// ErrSubmissionInFlight is returned when the session already has a submission in progress.
	ErrSubmissionInFlight = errors.New("gate: submission already in flight")
)

// CollaboratorError wraps a failure of the persistence store or the rate limit backend.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("gate: %s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
