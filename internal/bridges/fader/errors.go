package fader

import "errors"

var (
	// ErrInvalidTarget is returned for mapping targets that cannot be parsed.
	ErrInvalidTarget = errors.New("fader: invalid target")

	// ErrPortNotFound is returned when no input port matches the configured
	// name.
	ErrPortNotFound = errors.New("fader: no MIDI input port matches")
)
