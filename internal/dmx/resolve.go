package dmx

import (
	"math"

	"github.com/nerrad567/lumen-core/internal/show"
	"github.com/nerrad567/lumen-core/internal/state"
)

// Resolved holds the winning 0-100 value of every patched channel, keyed by
// fixture id.
type Resolved map[string]state.ChannelValues

// Resolve computes the HTP result for every fixture channel.
//
// Sources for a channel are the direct value when it is above zero, and, for
// fixtures that are not overridden, every look with a level above zero that
// targets the channel. A look contributes default + (target-default)*level.
// The result is the largest source, never below zero.
func Resolve(model *show.Model, st state.RuntimeState) Resolved {
	out := make(Resolved, len(model.Fixtures()))
	looks := model.Looks()

	for _, pf := range model.Fixtures() {
		id := pf.Fixture.ID
		direct := st.Fixtures[id]
		overridden := st.Overridden(id)

		vals := make(state.ChannelValues, len(pf.Channels))
		for _, ch := range pf.Channels {
			v := 0.0
			if d, ok := direct[ch.Name]; ok && d > 0 {
				v = d
			}
			if !overridden {
				for _, l := range looks {
					level := st.Looks[l.ID]
					if level <= 0 {
						continue
					}
					target, ok := l.Targets[id][ch.Name]
					if !ok {
						continue
					}
					if eff := blend(ch.Default, target, level); eff > v {
						v = eff
					}
				}
			}
			vals[ch.Name] = v
		}
		out[id] = vals
	}
	return out
}

func blend(def, target, level float64) float64 {
	if level > 1 {
		level = 1
	}
	return def + (target-def)*level
}

// ToDMX scales a 0-100 value to a DMX level.
func ToDMX(v float64) byte {
	n := math.Round(v / 100 * 255)
	switch {
	case math.IsNaN(n) || n < 0:
		return 0
	case n > 255:
		return 255
	}
	return byte(n)
}
