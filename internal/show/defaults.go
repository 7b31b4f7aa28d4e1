package show

import "github.com/nerrad567/lumen-core/internal/auth"

// Output defaults.
const (
	DefaultFrameRate         = 40
	DefaultSACNPriority      = 100
	DefaultArtNetPort        = 6454
	DefaultArtNetDestination = "255.255.255.255"
)

// DefaultOutput returns output settings for a fresh show: sACN multicast at
// the default rate and priority.
func DefaultOutput() OutputSettings {
	return OutputSettings{
		Protocol:  ProtocolSACN,
		FrameRate: DefaultFrameRate,
		SACN: SACNSettings{
			Priority:  DefaultSACNPriority,
			Multicast: true,
		},
		ArtNet: ArtNetSettings{
			Destination: DefaultArtNetDestination,
			Port:        DefaultArtNetPort,
		},
	}
}

// Default returns the document used on first start and by reset: default
// output settings, the built-in profiles, no fixtures, no looks and an empty
// roster.
func Default() *Document {
	return &Document{
		Output:   DefaultOutput(),
		Profiles: BuiltinProfiles(),
		Fixtures: []Fixture{},
		Looks:    []Look{},
		Dashboards: []Dashboard{
			{ID: "main", Name: "Main"},
		},
		ActiveLayout: "main",
		Access: AccessSettings{
			DefaultRole:        auth.RoleViewer,
			ShowConnectedUsers: true,
		},
	}
}

// BuiltinProfiles returns the generic profiles every show starts with.
func BuiltinProfiles() []Profile {
	return []Profile{
		{
			ID:   "dimmer",
			Name: "Dimmer",
			Controls: []ControlBlock{
				intensityBlock(),
			},
		},
		{
			ID:   "rgb",
			Name: "RGB",
			Controls: []ControlBlock{
				{
					ID: "color", Name: "Color", Type: ControlRGB, ChannelCount: 3,
					Components: []Component{
						{Type: ComponentRed, Name: "red", Offset: 0},
						{Type: ComponentGreen, Name: "green", Offset: 1},
						{Type: ComponentBlue, Name: "blue", Offset: 2},
					},
				},
			},
		},
		{
			ID:   "rgbw",
			Name: "RGBW",
			Controls: []ControlBlock{
				{
					ID: "color", Name: "Color", Type: ControlRGBW, ChannelCount: 4,
					Components: []Component{
						{Type: ComponentRed, Name: "red", Offset: 0},
						{Type: ComponentGreen, Name: "green", Offset: 1},
						{Type: ComponentBlue, Name: "blue", Offset: 2},
						{Type: ComponentWhite, Name: "white", Offset: 3},
					},
				},
			},
		},
		{
			ID:   "dimmer-rgb",
			Name: "Dimmer + RGB",
			Controls: []ControlBlock{
				intensityBlock(),
				{
					ID: "color", Name: "Color", Type: ControlRGB, ChannelCount: 3,
					Components: []Component{
						{Type: ComponentRed, Name: "red", Offset: 0},
						{Type: ComponentGreen, Name: "green", Offset: 1},
						{Type: ComponentBlue, Name: "blue", Offset: 2},
					},
					BrightnessFromIntensity: true,
				},
			},
		},
	}
}

func intensityBlock() ControlBlock {
	return ControlBlock{
		ID: "intensity", Name: "Intensity", Type: ControlIntensity, ChannelCount: 1,
		Components: []Component{
			{Type: ComponentIntensity, Name: "intensity", Offset: 0},
		},
	}
}
