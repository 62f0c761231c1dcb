package wizard

import "errors"

var (
	// ErrNotAdmin is returned when a principal without admin rights tries
	// a mutating step. The user sees the fixed not-admin reply and no side
	// effect happens.
	ErrNotAdmin = errors.New("wizard: not a chat administrator")
	// ErrValidation marks malformed user input; the session stays in its
	// current state so the same step can be retried.
	ErrValidation = errors.New("wizard: invalid input")
)
