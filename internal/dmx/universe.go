package dmx

import (
	"fmt"

	"github.com/nerrad567/lumen-core/internal/show"
)

// Slots is the number of channels in a universe.
const Slots = 512

// Universe is one output buffer with the addressing the encoders need.
type Universe struct {
	Key string `json:"key"`

	// Number is the sACN universe. For Art-Net it is the 15-bit port
	// address.
	Number int `json:"number"`

	ArtNet show.ArtNetAddress `json:"artnet"`
	Data   [Slots]byte        `json:"-"`
}

// IsZero reports whether every slot is zero.
func (u *Universe) IsZero() bool {
	for _, b := range u.Data {
		if b != 0 {
			return false
		}
	}
	return true
}

// UniverseKey groups a fixture's channels into a universe: the plain
// universe number for sACN, "net:subnet:universe" for Art-Net.
func UniverseKey(protocol show.Protocol, f show.Fixture) string {
	if protocol == show.ProtocolArtNet {
		a := f.ArtNetAddr()
		return fmt.Sprintf("%d:%d:%d", a.Net, a.Subnet, a.Universe)
	}
	return fmt.Sprintf("%d", f.Universe)
}

func newUniverse(protocol show.Protocol, f show.Fixture) *Universe {
	u := &Universe{Key: UniverseKey(protocol, f)}
	if protocol == show.ProtocolArtNet {
		u.ArtNet = f.ArtNetAddr()
		u.Number = u.ArtNet.Net<<8 | u.ArtNet.Subnet<<4 | u.ArtNet.Universe
	} else {
		u.Number = f.Universe
	}
	return u
}
