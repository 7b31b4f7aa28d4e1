package show

import (
	"encoding/json"

	"github.com/nerrad567/lumen-core/internal/auth"
)

// ChannelName identifies a channel within a fixture. It is the name of the
// profile component that produces the channel.
type ChannelName string

// ComponentType is the semantic type of a single DMX channel.
type ComponentType string

// Component types.
const (
	ComponentIntensity  ComponentType = "intensity"
	ComponentRed        ComponentType = "red"
	ComponentGreen      ComponentType = "green"
	ComponentBlue       ComponentType = "blue"
	ComponentWhite      ComponentType = "white"
	ComponentAmber      ComponentType = "amber"
	ComponentUV         ComponentType = "uv"
	ComponentPan        ComponentType = "pan"
	ComponentTilt       ComponentType = "tilt"
	ComponentZoom       ComponentType = "zoom"
	ComponentCCT        ComponentType = "cct"
	ComponentTint       ComponentType = "tint"
	ComponentHue        ComponentType = "hue"
	ComponentSaturation ComponentType = "saturation"
	ComponentGeneric    ComponentType = "generic"
)

var validComponentTypes = map[ComponentType]bool{
	ComponentIntensity: true, ComponentRed: true, ComponentGreen: true,
	ComponentBlue: true, ComponentWhite: true, ComponentAmber: true,
	ComponentUV: true, ComponentPan: true, ComponentTilt: true,
	ComponentZoom: true, ComponentCCT: true, ComponentTint: true,
	ComponentHue: true, ComponentSaturation: true, ComponentGeneric: true,
}

// IsColor reports whether the component is an additive colour emitter.
// Colour channels rest at full when no default is declared.
func (t ComponentType) IsColor() bool {
	switch t {
	case ComponentRed, ComponentGreen, ComponentBlue, ComponentWhite, ComponentAmber:
		return true
	}
	return false
}

// ControlType is the semantic type of a control block.
type ControlType string

// Control block types.
const (
	ControlIntensity ControlType = "intensity"
	ControlRGB       ControlType = "rgb"
	ControlRGBW      ControlType = "rgbw"
	ControlGeneric   ControlType = "generic"
	ControlZoom      ControlType = "zoom"
	ControlCCT       ControlType = "cct"
	ControlTint      ControlType = "tint"
	ControlDimmerRGB ControlType = "dimmer_rgb"
	ControlPanTilt   ControlType = "pan_tilt"
)

var validControlTypes = map[ControlType]bool{
	ControlIntensity: true, ControlRGB: true, ControlRGBW: true,
	ControlGeneric: true, ControlZoom: true, ControlCCT: true,
	ControlTint: true, ControlDimmerRGB: true, ControlPanTilt: true,
}

// DefaultKind tags which fields of a DefaultValue are meaningful.
type DefaultKind string

// Default value kinds.
const (
	DefaultScalar DefaultKind = "scalar"
	DefaultRGB    DefaultKind = "rgb"
	DefaultRGBW   DefaultKind = "rgbw"
	DefaultXY     DefaultKind = "xy"
)

// DefaultValue is the rest value of a control block, normalised 0-1.
type DefaultValue struct {
	Kind DefaultKind `json:"type"`
	V    float64     `json:"v,omitempty"`
	R    float64     `json:"r,omitempty"`
	G    float64     `json:"g,omitempty"`
	B    float64     `json:"b,omitempty"`
	W    float64     `json:"w,omitempty"`
	X    float64     `json:"x,omitempty"`
	Y    float64     `json:"y,omitempty"`
}

// Component is one channel of a control block. Offset is relative to the
// block's first channel.
type Component struct {
	Type   ComponentType `json:"type"`
	Name   ChannelName   `json:"name"`
	Offset int           `json:"offset"`
}

// ControlBlock groups components that share one purpose, e.g. an RGB cell.
type ControlBlock struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Type         ControlType   `json:"type"`
	ChannelCount int           `json:"channelCount"`
	Components   []Component   `json:"components"`
	Default      *DefaultValue `json:"defaultValue,omitempty"`

	// BrightnessFromIntensity marks a colour block whose brightness is set
	// by a sibling intensity block rather than its own values.
	BrightnessFromIntensity bool `json:"brightnessFromIntensity,omitempty"`
}

// Profile describes the channel layout of a fixture model.
type Profile struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Controls []ControlBlock `json:"controls"`
}

// ArtNetAddress is the Art-Net net/subnet/universe triple.
type ArtNetAddress struct {
	Net      int `json:"net"`
	Subnet   int `json:"subnet"`
	Universe int `json:"universe"`
}

// Fixture is one patched instance of a profile.
type Fixture struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProfileID string `json:"profileId"`

	// Universe is the sACN universe.
	Universe int `json:"universe"`

	// ArtNet is the Art-Net address. When nil it is derived from Universe
	// read as a 15-bit port address.
	ArtNet *ArtNetAddress `json:"artnet,omitempty"`

	// StartAddress is the 1-based DMX address of the first channel.
	StartAddress int `json:"startAddress"`
}

// ArtNetAddr returns the fixture's Art-Net triple.
func (f Fixture) ArtNetAddr() ArtNetAddress {
	if f.ArtNet != nil {
		return *f.ArtNet
	}
	return ArtNetAddress{
		Net:      (f.Universe >> 8) & 0x7F,
		Subnet:   (f.Universe >> 4) & 0x0F,
		Universe: f.Universe & 0x0F,
	}
}

// Look is a named preset of channel targets on the 0-100 scale.
type Look struct {
	ID      string                             `json:"id"`
	Name    string                             `json:"name"`
	Color   string                             `json:"color,omitempty"`
	Targets map[string]map[ChannelName]float64 `json:"targets"`
}

// Dashboard is a UI layout clients connect to. Per-dashboard roles are keyed
// by its ID. Layout is opaque to the server.
type Dashboard struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Layout json.RawMessage `json:"layout,omitempty"`
}

// Protocol selects the wire protocol of the output engine.
type Protocol string

// Output protocols.
const (
	ProtocolSACN   Protocol = "sacn"
	ProtocolArtNet Protocol = "artnet"
)

// OutputSettings configures the output engine.
type OutputSettings struct {
	Protocol  Protocol       `json:"protocol"`
	FrameRate int            `json:"frameRate"`
	SACN      SACNSettings   `json:"sacn"`
	ArtNet    ArtNetSettings `json:"artnet"`
}

// SACNSettings configures E1.31 output.
type SACNSettings struct {
	Priority            int      `json:"priority"`
	Multicast           bool     `json:"multicast"`
	UnicastDestinations []string `json:"unicastDestinations,omitempty"`
	BindAddress         string   `json:"bindAddress,omitempty"`
	SourceName          string   `json:"sourceName,omitempty"`
}

// ArtNetSettings configures Art-Net output.
type ArtNetSettings struct {
	Destination string `json:"destination"`
	Port        int    `json:"port"`
	BindAddress string `json:"bindAddress,omitempty"`
}

// AccessSettings holds roster-wide options.
type AccessSettings struct {
	// DefaultRole is given to clients seen for the first time.
	DefaultRole auth.Role `json:"defaultRole"`

	// ShowConnectedUsers lets every client see the active connection list.
	ShowConnectedUsers bool `json:"showConnectedUsers"`
}

// Document is the whole persisted show: output settings, patch, looks,
// dashboards and client roster.
type Document struct {
	Output       OutputSettings               `json:"output"`
	Profiles     []Profile                    `json:"profiles"`
	Fixtures     []Fixture                    `json:"fixtures"`
	Looks        []Look                       `json:"looks"`
	Dashboards   []Dashboard                  `json:"dashboards,omitempty"`
	ActiveLayout string                       `json:"activeLayout,omitempty"`
	Access       AccessSettings               `json:"access"`
	Clients      map[string]auth.ClientRecord `json:"clients,omitempty"`
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	data, err := json.Marshal(d)
	if err != nil {
		// Every field is JSON-safe; a failure here is a programming error.
		panic("show: cloning document: " + err.Error())
	}
	out := &Document{}
	if err := json.Unmarshal(data, out); err != nil {
		panic("show: cloning document: " + err.Error())
	}
	return out
}

// Profile returns the profile with the given id.
func (d *Document) Profile(id string) (*Profile, bool) {
	for i := range d.Profiles {
		if d.Profiles[i].ID == id {
			return &d.Profiles[i], true
		}
	}
	return nil, false
}

// Dashboard returns the dashboard with the given id.
func (d *Document) Dashboard(id string) (*Dashboard, bool) {
	for i := range d.Dashboards {
		if d.Dashboards[i].ID == id {
			return &d.Dashboards[i], true
		}
	}
	return nil, false
}
