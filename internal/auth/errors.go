package auth

import "errors"

var (
	// ErrInvalidRole is returned for unknown role names or values.
	ErrInvalidRole = errors.New("auth: invalid role")

	// ErrClientNotFound is returned when a client id is not in the roster.
	ErrClientNotFound = errors.New("auth: client not found")

	// ErrEmptyClientID is returned when an operation receives an empty id.
	ErrEmptyClientID = errors.New("auth: client id is required")

	// ErrNoPendingRequest is returned when approving or denying a request
	// that was never made.
	ErrNoPendingRequest = errors.New("auth: no pending access request")
)
