package actions

import "errors"

var (
	// ErrValidation covers malformed proposals: unknown action type, wrong
	// or missing parameter variant, confidence out of range.
	ErrValidation = errors.New("invalid action proposal")

	// ErrNotFound means no action exists with the given id.
	ErrNotFound = errors.New("action not found")

	// ErrForbidden means the action exists but the caller does not own it.
	ErrForbidden = errors.New("action belongs to another user")

	// ErrInvalidState means the action already left the pending state. A
	// failed execution is not retryable through Confirm; a fresh proposal
	// is required.
	ErrInvalidState = errors.New("action is not pending")

	// ErrDisabled is returned by Propose when AI features are turned off.
	ErrDisabled = errors.New("ai features are disabled")
)
