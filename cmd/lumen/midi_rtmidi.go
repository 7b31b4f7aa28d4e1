//go:build rtmidi

package main

// The rtmidi driver needs cgo and a working ALSA/CoreMIDI/WinMM backend, and
// panics at init without one. Build with -tags rtmidi on hosts that have a
// MIDI surface attached.
import _ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
