// Package fader drives looks, fixture channels and blackout from a MIDI
// control surface.
//
// Each configured mapping binds a (channel, controller) control-change pair
// to one target:
//
//	look:<id>                  level = value/127
//	fixture:<id>:<channel>     value = value/127*100
//	blackout                   on when value >= 64
//
// The input port is found by case-insensitive substring match against the
// names the MIDI driver reports. Fader moves are applied as ordinary state
// updates, so they mix with every other input under HTP.
package fader
