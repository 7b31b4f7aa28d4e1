package show

import (
	"fmt"
	"math"
	"net"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Output limits.
const (
	MinFrameRate    = 10
	MaxFrameRate    = 60
	MaxSACNPriority = 200
	DMXSlots        = 512
)

// Validate checks the document and reports every problem at once.
// Malformed profiles are rejected here so the resolver never sees them.
// Universe ranges are not checked: an out-of-range universe is skipped at
// output time without affecting the rest of the show.
func (d *Document) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	validateOutput(d.Output, add)

	profiles := make(map[string]*Profile, len(d.Profiles))
	for i := range d.Profiles {
		p := &d.Profiles[i]
		if p.ID == "" {
			add("profiles[%d].id is required", i)
			continue
		}
		if _, dup := profiles[p.ID]; dup {
			add("profile %q is defined twice", p.ID)
			continue
		}
		profiles[p.ID] = p
		validateProfile(*p, add)
	}

	fixtures := make(map[string]map[ChannelName]bool, len(d.Fixtures))
	for i, f := range d.Fixtures {
		if f.ID == "" {
			add("fixtures[%d].id is required", i)
			continue
		}
		if _, dup := fixtures[f.ID]; dup {
			add("fixture %q is defined twice", f.ID)
			continue
		}
		p, ok := profiles[f.ProfileID]
		if !ok {
			add("fixture %q references unknown profile %q", f.ID, f.ProfileID)
			continue
		}
		if f.StartAddress < 1 || f.StartAddress > DMXSlots {
			add("fixture %q start address %d must be between 1 and %d", f.ID, f.StartAddress, DMXSlots)
		}
		if f.Universe < 0 {
			add("fixture %q universe must not be negative", f.ID)
		}
		if a := f.ArtNet; a != nil {
			if a.Net < 0 || a.Net > 0x7F {
				add("fixture %q artnet net %d must be between 0 and 127", f.ID, a.Net)
			}
			if a.Subnet < 0 || a.Subnet > 0x0F {
				add("fixture %q artnet subnet %d must be between 0 and 15", f.ID, a.Subnet)
			}
			if a.Universe < 0 || a.Universe > 0x0F {
				add("fixture %q artnet universe %d must be between 0 and 15", f.ID, a.Universe)
			}
		}
		names := make(map[ChannelName]bool)
		for _, ch := range ChannelsOf(*p) {
			names[ch.Name] = true
		}
		fixtures[f.ID] = names
	}

	looks := make(map[string]bool, len(d.Looks))
	for i, l := range d.Looks {
		if l.ID == "" {
			add("looks[%d].id is required", i)
			continue
		}
		if looks[l.ID] {
			add("look %q is defined twice", l.ID)
			continue
		}
		looks[l.ID] = true
		if l.Color != "" {
			if _, err := colorful.Hex(l.Color); err != nil {
				add("look %q color %q is not a hex colour", l.ID, l.Color)
			}
		}
		for fid, targets := range l.Targets {
			channels, ok := fixtures[fid]
			if !ok {
				add("look %q targets unknown fixture %q", l.ID, fid)
				continue
			}
			for ch, v := range targets {
				if !channels[ch] {
					add("look %q targets unknown channel %q of fixture %q", l.ID, ch, fid)
				}
				if math.IsNaN(v) || v < 0 || v > 100 {
					add("look %q target %s/%s = %v must be between 0 and 100", l.ID, fid, ch, v)
				}
			}
		}
	}

	dashboards := make(map[string]bool, len(d.Dashboards))
	for i, db := range d.Dashboards {
		if db.ID == "" {
			add("dashboards[%d].id is required", i)
			continue
		}
		if dashboards[db.ID] {
			add("dashboard %q is defined twice", db.ID)
		}
		dashboards[db.ID] = true
	}
	if d.ActiveLayout != "" && !dashboards[d.ActiveLayout] {
		add("activeLayout %q is not a defined dashboard", d.ActiveLayout)
	}

	if !d.Access.DefaultRole.Valid() {
		add("access.defaultRole is invalid")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(errs, "; "))
	}
	return nil
}

func validateOutput(o OutputSettings, add func(string, ...any)) {
	switch o.Protocol {
	case ProtocolSACN, ProtocolArtNet:
	default:
		add("output.protocol %q must be %q or %q", o.Protocol, ProtocolSACN, ProtocolArtNet)
	}
	if o.FrameRate < MinFrameRate || o.FrameRate > MaxFrameRate {
		add("output.frameRate %d must be between %d and %d", o.FrameRate, MinFrameRate, MaxFrameRate)
	}
	if o.SACN.Priority < 0 || o.SACN.Priority > MaxSACNPriority {
		add("output.sacn.priority %d must be between 0 and %d", o.SACN.Priority, MaxSACNPriority)
	}
	for _, dst := range o.SACN.UnicastDestinations {
		if net.ParseIP(strings.TrimSpace(dst)) == nil {
			add("output.sacn.unicastDestinations entry %q is not an IP address", dst)
		}
	}
	if b := o.SACN.BindAddress; b != "" && net.ParseIP(b) == nil {
		add("output.sacn.bindAddress %q is not an IP address", b)
	}
	if ip := net.ParseIP(o.ArtNet.Destination); ip == nil || ip.To4() == nil {
		add("output.artnet.destination %q is not an IPv4 address", o.ArtNet.Destination)
	}
	if o.ArtNet.Port < 1 || o.ArtNet.Port > 65535 {
		add("output.artnet.port %d must be between 1 and 65535", o.ArtNet.Port)
	}
	if b := o.ArtNet.BindAddress; b != "" && net.ParseIP(b) == nil {
		add("output.artnet.bindAddress %q is not an IP address", b)
	}
}

// validateProfile checks that components tile each block exactly and that
// channel names are unique, which makes the whole profile a gapless layout
// from offset 0.
func validateProfile(p Profile, add func(string, ...any)) {
	if len(p.Controls) == 0 {
		add("profile %q has no controls", p.ID)
		return
	}
	names := make(map[ChannelName]bool)
	hasIntensity := false
	for _, c := range p.Controls {
		if c.Type == ControlIntensity {
			hasIntensity = true
		}
	}

	for ci, c := range p.Controls {
		where := fmt.Sprintf("profile %q control %d (%s)", p.ID, ci, c.Name)
		if !validControlTypes[c.Type] {
			add("%s has unknown type %q", where, c.Type)
		}
		if c.ChannelCount < 1 {
			add("%s channelCount must be at least 1", where)
			continue
		}
		if len(c.Components) != c.ChannelCount {
			add("%s has %d components for %d channels", where, len(c.Components), c.ChannelCount)
		}
		seen := make([]bool, c.ChannelCount)
		for _, comp := range c.Components {
			if !validComponentTypes[comp.Type] {
				add("%s component %q has unknown type %q", where, comp.Name, comp.Type)
			}
			if comp.Name == "" {
				add("%s has a component without a name", where)
			} else if names[comp.Name] {
				add("profile %q channel name %q is used twice", p.ID, comp.Name)
			}
			names[comp.Name] = true
			if comp.Offset < 0 || comp.Offset >= c.ChannelCount {
				add("%s component %q offset %d is outside 0..%d", where, comp.Name, comp.Offset, c.ChannelCount-1)
				continue
			}
			if seen[comp.Offset] {
				add("%s offset %d is used twice", where, comp.Offset)
			}
			seen[comp.Offset] = true
		}
		if d := c.Default; d != nil {
			validateDefault(*d, where, add)
		}
		if c.BrightnessFromIntensity && !hasIntensity {
			add("%s takes brightness from an intensity block the profile does not have", where)
		}
	}
}

func validateDefault(d DefaultValue, where string, add func(string, ...any)) {
	var vals []float64
	switch d.Kind {
	case DefaultScalar:
		vals = []float64{d.V}
	case DefaultRGB:
		vals = []float64{d.R, d.G, d.B}
	case DefaultRGBW:
		vals = []float64{d.R, d.G, d.B, d.W}
	case DefaultXY:
		vals = []float64{d.X, d.Y}
	default:
		add("%s default has unknown type %q", where, d.Kind)
		return
	}
	for _, v := range vals {
		if math.IsNaN(v) || v < 0 || v > 1 {
			add("%s default value %v must be between 0 and 1", where, v)
			return
		}
	}
}

// Normalize rewrites look colours to lower-case #rrggbb and trims
// destination lists. Call before Validate on documents from clients.
func (d *Document) Normalize() {
	for i := range d.Looks {
		if d.Looks[i].Color == "" {
			continue
		}
		if c, err := colorful.Hex(strings.TrimSpace(d.Looks[i].Color)); err == nil {
			d.Looks[i].Color = c.Hex()
		}
	}
	dsts := d.Output.SACN.UnicastDestinations[:0]
	for _, dst := range d.Output.SACN.UnicastDestinations {
		if s := strings.TrimSpace(dst); s != "" {
			dsts = append(dsts, s)
		}
	}
	d.Output.SACN.UnicastDestinations = dsts
	if len(dsts) == 0 {
		d.Output.SACN.UnicastDestinations = nil
	}
	for id, rec := range d.Clients {
		if rec.DashboardRoles != nil && len(rec.DashboardRoles) == 0 {
			rec.DashboardRoles = nil
			d.Clients[id] = rec
		}
	}
}
