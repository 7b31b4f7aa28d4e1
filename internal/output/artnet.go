package output

import (
	"encoding/binary"

	"github.com/nerrad567/lumen-core/internal/dmx"
)

// Art-Net constants.
const (
	ArtNetHeaderSize = 18
	ArtDMXSize       = ArtNetHeaderSize + dmx.Slots

	opDMX            = 0x5000
	artNetProtVerHi  = 0
	artNetProtVerLo  = 14
	artNetDataLength = dmx.Slots
)

var artNetID = [8]byte{'A', 'r', 't', '-', 'N', 'e', 't', 0}

// PortAddress packs net, subnet and universe into the 15-bit Art-Net port
// address.
func PortAddress(net, subnet, universe int) uint16 {
	return uint16((net&0x7F)<<8 | (subnet&0x0F)<<4 | (universe & 0x0F))
}

// EncodeArtDMX builds an ArtDmx packet for port address addr. data is
// copied into the 512-slot payload and zero padded. The sequence and
// physical fields are left at 0.
func EncodeArtDMX(addr uint16, data []byte) []byte {
	buf := make([]byte, ArtDMXSize)
	encodeArtDMXInto(buf, addr, data)
	return buf
}

func encodeArtDMXInto(buf []byte, addr uint16, data []byte) {
	copy(buf[0:8], artNetID[:])
	binary.LittleEndian.PutUint16(buf[8:], opDMX)
	buf[10] = artNetProtVerHi
	buf[11] = artNetProtVerLo
	buf[12] = 0 // sequence disabled
	buf[13] = 0 // physical
	binary.LittleEndian.PutUint16(buf[14:], addr)
	binary.BigEndian.PutUint16(buf[16:], artNetDataLength)
	n := copy(buf[ArtNetHeaderSize:], data)
	clear(buf[ArtNetHeaderSize+n:])
}
