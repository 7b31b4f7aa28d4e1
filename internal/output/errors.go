package output

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when the engine is running.
	ErrAlreadyRunning = errors.New("output: engine already running")

	// ErrUnknownProtocol is returned for an output protocol the engine
	// cannot transmit.
	ErrUnknownProtocol = errors.New("output: unknown protocol")

	// ErrInvalidDestination is returned when a destination address cannot
	// be resolved.
	ErrInvalidDestination = errors.New("output: invalid destination")

	// ErrInvalidUniverse marks a universe outside the range a protocol can
	// address.
	ErrInvalidUniverse = errors.New("output: invalid universe")
)
