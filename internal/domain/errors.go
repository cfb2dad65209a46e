package domain

import "errors"

var (
	// ErrNotFound is returned when the referenced simulation or agent has no record.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a transition is not allowed from the current status.
	ErrConflict = errors.New("conflict")
	// ErrNotCompleted is returned when results are requested before completion.
	ErrNotCompleted = errors.New("simulation not completed")
	// ErrInvalidInput is returned when a request fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPolicyDenied is returned when the admission policy blocks a request.
	ErrPolicyDenied = errors.New("denied by policy")
)
