package remote

import "errors"

var (
	// ErrReadOnly is returned for commands when the configured role cannot
	// edit.
	ErrReadOnly = errors.New("remote: role does not allow changes")

	// ErrUnknownCommand is returned for topics outside the command set.
	ErrUnknownCommand = errors.New("remote: unknown command topic")

	// ErrInvalidPayload is returned when a command payload cannot be parsed.
	ErrInvalidPayload = errors.New("remote: invalid payload")
)
