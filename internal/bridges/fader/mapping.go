package fader

import (
	"fmt"
	"strings"

	"github.com/nerrad567/lumen-core/internal/infrastructure/config"
	"github.com/nerrad567/lumen-core/internal/show"
	"github.com/nerrad567/lumen-core/internal/state"
)

// TargetKind says what a control drives.
type TargetKind int

const (
	TargetLook TargetKind = iota + 1
	TargetFixture
	TargetBlackout
)

const (
	ccMax            = 127
	blackoutOnValue  = 64
	directValueScale = 100
)

// Target is a parsed mapping target.
type Target struct {
	Kind      TargetKind
	LookID    string
	FixtureID string
	Channel   show.ChannelName
}

// ParseTarget parses "look:<id>", "fixture:<id>:<channel>" or "blackout".
func ParseTarget(s string) (Target, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	switch {
	case len(parts) == 1 && parts[0] == "blackout":
		return Target{Kind: TargetBlackout}, nil
	case len(parts) == 2 && parts[0] == "look" && parts[1] != "":
		return Target{Kind: TargetLook, LookID: parts[1]}, nil
	case len(parts) == 3 && parts[0] == "fixture" && parts[1] != "" && parts[2] != "":
		return Target{Kind: TargetFixture, FixtureID: parts[1], Channel: show.ChannelName(parts[2])}, nil
	default:
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}
}

// Update converts a control value (0-127) into a state update.
func (t Target) Update(value uint8) state.Update {
	if value > ccMax {
		value = ccMax
	}
	switch t.Kind {
	case TargetLook:
		return state.Update{Looks: map[string]float64{t.LookID: float64(value) / ccMax}}
	case TargetFixture:
		return state.Update{Fixtures: map[string]state.ChannelValues{
			t.FixtureID: {t.Channel: float64(value) / ccMax * directValueScale},
		}}
	case TargetBlackout:
		on := value >= blackoutOnValue
		return state.Update{Blackout: &on}
	default:
		return state.Update{}
	}
}

type controlKey struct {
	channel    uint8
	controller uint8
}

// Mapper resolves control changes to targets.
type Mapper struct {
	targets map[controlKey]Target
}

// NewMapper parses every mapping. A later mapping for the same control
// replaces an earlier one.
func NewMapper(mappings []config.MIDIMapping) (*Mapper, error) {
	m := &Mapper{targets: make(map[controlKey]Target, len(mappings))}
	var errs []string
	for i, mm := range mappings {
		if mm.Channel < 0 || mm.Channel > 15 || mm.Controller < 0 || mm.Controller > ccMax {
			errs = append(errs, fmt.Sprintf("mapping %d: channel %d controller %d out of range", i, mm.Channel, mm.Controller))
			continue
		}
		t, err := ParseTarget(mm.Target)
		if err != nil {
			errs = append(errs, fmt.Sprintf("mapping %d: %v", i, err))
			continue
		}
		// #nosec G115 -- ranges checked above
		m.targets[controlKey{uint8(mm.Channel), uint8(mm.Controller)}] = t
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, strings.Join(errs, "; "))
	}
	return m, nil
}

// Len returns the number of mapped controls.
func (m *Mapper) Len() int {
	return len(m.targets)
}

// Resolve returns the update for a control change, or false when the control
// is not mapped.
func (m *Mapper) Resolve(channel, controller, value uint8) (state.Update, bool) {
	t, ok := m.targets[controlKey{channel, controller}]
	if !ok {
		return state.Update{}, false
	}
	return t.Update(value), true
}
