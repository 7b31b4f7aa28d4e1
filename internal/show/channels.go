package show

import "sort"

// Channel is one DMX channel of a profile, flattened out of its control block.
type Channel struct {
	Name ChannelName   `json:"name"`
	Type ComponentType `json:"type"`

	// Offset is the channel position within the fixture footprint, from 0.
	Offset int `json:"offset"`

	// Control is the index of the owning block in Profile.Controls.
	Control int `json:"control"`

	// Default is the rest value on the 0-100 scale.
	Default float64 `json:"default"`
}

// ChannelsOf lists the profile's channels ordered by absolute offset. A
// control's base offset is the sum of the channel counts before it.
func ChannelsOf(p Profile) []Channel {
	var out []Channel
	base := 0
	for ci, ctrl := range p.Controls {
		comps := append([]Component(nil), ctrl.Components...)
		sort.SliceStable(comps, func(i, j int) bool { return comps[i].Offset < comps[j].Offset })
		for _, comp := range comps {
			out = append(out, Channel{
				Name:    comp.Name,
				Type:    comp.Type,
				Offset:  base + comp.Offset,
				Control: ci,
				Default: DefaultOf(ctrl, comp),
			})
		}
		base += ctrl.ChannelCount
	}
	return out
}

// Footprint is the number of DMX channels a profile occupies.
func Footprint(p Profile) int {
	n := 0
	for _, ctrl := range p.Controls {
		n += ctrl.ChannelCount
	}
	return n
}

// DefaultOf returns the rest value (0-100) of a component within its block.
//
// The declared default covers the components it names: a scalar covers every
// component (only the intensity channel of a dimmer_rgb block), rgb and rgbw
// cover their colour channels, xy covers pan/tilt or the first two channels.
// Anything not covered falls back by type: colour channels rest at full,
// everything else at zero.
func DefaultOf(ctrl ControlBlock, comp Component) float64 {
	if d := ctrl.Default; d != nil {
		if v, ok := declaredDefault(*d, ctrl, comp); ok {
			return clampUnit(v) * 100
		}
	}
	return fallbackDefault(comp.Type)
}

func declaredDefault(d DefaultValue, ctrl ControlBlock, comp Component) (float64, bool) {
	switch d.Kind {
	case DefaultScalar:
		if ctrl.Type == ControlDimmerRGB && comp.Type != ComponentIntensity {
			return 0, false
		}
		return d.V, true
	case DefaultRGB, DefaultRGBW:
		switch comp.Type {
		case ComponentRed:
			return d.R, true
		case ComponentGreen:
			return d.G, true
		case ComponentBlue:
			return d.B, true
		case ComponentWhite:
			if d.Kind == DefaultRGBW {
				return d.W, true
			}
		}
	case DefaultXY:
		switch {
		case comp.Type == ComponentPan:
			return d.X, true
		case comp.Type == ComponentTilt:
			return d.Y, true
		case comp.Offset == 0:
			return d.X, true
		case comp.Offset == 1:
			return d.Y, true
		}
	}
	return 0, false
}

func fallbackDefault(t ComponentType) float64 {
	if t.IsColor() {
		return 100
	}
	return 0
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
