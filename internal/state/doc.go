// Package state holds the Lumen runtime state: direct channel values, look
// levels, fixture overrides and the blackout flag.
//
// The Store is the only writer. Client updates are validated against the
// show model (unknown fixtures, channels and looks are rejected) and merged
// last-write-wins per field. Every successful write is followed by a
// notification carrying the full resulting state; the WebSocket hub and the
// bridges subscribe to it.
package state
