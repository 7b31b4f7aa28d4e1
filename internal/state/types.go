package state

import (
	"bytes"
	"encoding/json"

	"github.com/nerrad567/lumen-core/internal/show"
)

// ChannelValues maps channel names to direct values on the 0-100 scale.
type ChannelValues map[show.ChannelName]float64

// OverrideLook records a look that was active when a fixture was taken
// over, so the UI can show what the override is hiding.
type OverrideLook struct {
	ID    string `json:"id"`
	Color string `json:"color,omitempty"`
}

// Override marks a fixture whose direct values replace every look.
type Override struct {
	Active bool           `json:"active"`
	Looks  []OverrideLook `json:"looks"`
}

// RuntimeState is the live, mutable part of the show.
type RuntimeState struct {
	Blackout           bool                     `json:"blackout"`
	Fixtures           map[string]ChannelValues `json:"fixtures"`
	Looks              map[string]float64       `json:"looks"`
	OverriddenFixtures map[string]Override      `json:"overriddenFixtures"`
}

// Clone returns a deep copy.
func (s RuntimeState) Clone() RuntimeState {
	out := RuntimeState{
		Blackout:           s.Blackout,
		Fixtures:           make(map[string]ChannelValues, len(s.Fixtures)),
		Looks:              make(map[string]float64, len(s.Looks)),
		OverriddenFixtures: make(map[string]Override, len(s.OverriddenFixtures)),
	}
	for id, vals := range s.Fixtures {
		cp := make(ChannelValues, len(vals))
		for ch, v := range vals {
			cp[ch] = v
		}
		out.Fixtures[id] = cp
	}
	for id, v := range s.Looks {
		out.Looks[id] = v
	}
	for id, o := range s.OverriddenFixtures {
		out.OverriddenFixtures[id] = Override{
			Active: o.Active,
			Looks:  append([]OverrideLook(nil), o.Looks...),
		}
	}
	return out
}

// Overridden reports whether looks are excluded for a fixture.
func (s RuntimeState) Overridden(fixtureID string) bool {
	return s.OverriddenFixtures[fixtureID].Active
}

// Update is a partial state change from a client.
//
// Blackout replaces when set. Looks and Fixtures merge per key, leaving
// unspecified keys untouched. OverriddenFixtures replaces per fixture; a
// null or inactive entry clears the override.
type Update struct {
	Blackout           *bool                    `json:"blackout,omitempty"`
	Fixtures           map[string]ChannelValues `json:"fixtures,omitempty"`
	Looks              map[string]float64       `json:"looks,omitempty"`
	OverriddenFixtures map[string]*Override     `json:"overriddenFixtures,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.Blackout == nil && len(u.Fixtures) == 0 && len(u.Looks) == 0 && len(u.OverriddenFixtures) == 0
}

// DecodeUpdate parses an update from JSON, rejecting unknown fields and
// empty input.
func DecodeUpdate(data []byte) (Update, error) {
	var u Update
	if len(bytes.TrimSpace(data)) == 0 {
		return u, ErrEmptyUpdate
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&u); err != nil {
		return u, err
	}
	return u, nil
}
