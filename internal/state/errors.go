package state

import "errors"

var (
	// ErrUnknownFixture is returned for updates naming a fixture that is
	// not patched.
	ErrUnknownFixture = errors.New("state: unknown fixture")

	// ErrUnknownChannel is returned for updates naming a channel the
	// fixture's profile does not have.
	ErrUnknownChannel = errors.New("state: unknown channel")

	// ErrUnknownLook is returned for updates naming a look that does not
	// exist.
	ErrUnknownLook = errors.New("state: unknown look")

	// ErrInvalidValue is returned for NaN or infinite values.
	ErrInvalidValue = errors.New("state: invalid value")

	// ErrEmptyUpdate is returned by DecodeUpdate for an empty payload.
	ErrEmptyUpdate = errors.New("state: update has no data")
)
