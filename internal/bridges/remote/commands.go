package remote

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/lumen-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/lumen-core/internal/state"
)

// ParseCommand turns a command topic and payload into a state update.
func ParseCommand(topics mqtt.Topics, topic string, payload []byte) (state.Update, error) {
	switch topic {
	case topics.CommandUpdate():
		u, err := state.DecodeUpdate(payload)
		if err != nil {
			return state.Update{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		return u, nil
	case topics.CommandBlackout():
		on, err := ParseSwitch(string(payload))
		if err != nil {
			return state.Update{}, err
		}
		return state.Update{Blackout: &on}, nil
	}

	if lookID, ok := topics.LookID(topic); ok {
		level, err := ParseLevel(string(payload))
		if err != nil {
			return state.Update{}, err
		}
		return state.Update{Looks: map[string]float64{lookID: level}}, nil
	}
	return state.Update{}, fmt.Errorf("%w: %s", ErrUnknownCommand, topic)
}

// ParseSwitch accepts true|false|on|off|1|0 in any case.
func ParseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "1":
		return true, nil
	case "false", "off", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q is not a switch value", ErrInvalidPayload, s)
	}
}

// ParseLevel parses a look level. Values outside 0..1 are left for the
// state store to clamp.
func ParseLevel(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a level", ErrInvalidPayload, s)
	}
	return v, nil
}
