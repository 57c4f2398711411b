package types

import "errors"

var (
	// AuthRejected: bad or expired credential, no session is created
	ErrAuthRejected = errors.New("authentication rejected")

	// MalformedEvent: missing or invalid fields, acknowledged to the sender only
	ErrMalformedEvent = errors.New("malformed event")

	// PolicyViolation: role not permitted for the action
	ErrPolicyViolation = errors.New("action not permitted")

	// TerminalStateViolation: schedule already completed or cancelled
	ErrTerminalState = errors.New("schedule already finalized")

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStatusConflict    = errors.New("schedule status changed concurrently")
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrInvalidRoom       = errors.New("invalid room")
	ErrRateLimited       = errors.New("too many events")

	// CollaboratorFailure: a persistence call failed, the live path is unaffected
	ErrCollaboratorFailure = errors.New("persistence failed")
)
