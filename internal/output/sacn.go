package output

import (
	"encoding/binary"
	"fmt"
	"net"
)

// sACN constants (ANSI E1.31-2018).
const (
	SACNPort        = 5568
	SACNPacketSize  = 638
	SACNMinUniverse = 1
	SACNMaxUniverse = 63999

	sacnSourceNameLen = 64

	vectorRootE131Data    = 0x00000004
	vectorE131DataPacket  = 0x00000002
	vectorDMPSetProperty  = 0x02
	dmpAddressAndDataType = 0xa1
)

// Offsets into the data packet.
const (
	sacnOffRootFlags   = 16
	sacnOffRootVector  = 18
	sacnOffCID         = 22
	sacnOffFrameFlags  = 38
	sacnOffFrameVector = 40
	sacnOffSourceName  = 44
	sacnOffPriority    = 108
	sacnOffSyncAddr    = 109
	sacnOffSequence    = 111
	sacnOffOptions     = 112
	sacnOffUniverse    = 113
	sacnOffDMPFlags    = 115
	sacnOffDMPVector   = 117
	sacnOffAddrType    = 118
	sacnOffFirstAddr   = 119
	sacnOffAddrInc     = 121
	sacnOffValueCount  = 123
	sacnOffStartCode   = 125
	sacnOffData        = 126
)

var acnPacketIdentifier = [12]byte{'A', 'S', 'C', '-', 'E', '1', '.', '1', '7', 0, 0, 0}

// SACNSession encodes the packet stream for one universe to one
// destination. The header is written once; each Encode copies the DMX data,
// stamps the sequence number and advances it modulo 256.
//
// A session is not safe for concurrent use and must not be shared between
// destinations.
type SACNSession struct {
	universe uint16
	seq      uint8
	packet   [SACNPacketSize]byte
}

// NewSACNSession prepares a session. sourceName is truncated to 63 bytes.
func NewSACNSession(cid [16]byte, sourceName string, priority uint8, universe uint16) *SACNSession {
	s := &SACNSession{universe: universe}
	p := s.packet[:]

	// Root layer.
	binary.BigEndian.PutUint16(p[0:], 0x0010)
	binary.BigEndian.PutUint16(p[2:], 0x0000)
	copy(p[4:], acnPacketIdentifier[:])
	binary.BigEndian.PutUint16(p[sacnOffRootFlags:], flagsAndLength(SACNPacketSize-sacnOffRootFlags))
	binary.BigEndian.PutUint32(p[sacnOffRootVector:], vectorRootE131Data)
	copy(p[sacnOffCID:], cid[:])

	// Framing layer.
	binary.BigEndian.PutUint16(p[sacnOffFrameFlags:], flagsAndLength(SACNPacketSize-sacnOffFrameFlags))
	binary.BigEndian.PutUint32(p[sacnOffFrameVector:], vectorE131DataPacket)
	name := []byte(sourceName)
	if len(name) > sacnSourceNameLen-1 {
		name = name[:sacnSourceNameLen-1]
	}
	copy(p[sacnOffSourceName:], name)
	p[sacnOffPriority] = priority
	binary.BigEndian.PutUint16(p[sacnOffSyncAddr:], 0)
	p[sacnOffOptions] = 0
	binary.BigEndian.PutUint16(p[sacnOffUniverse:], universe)

	// DMP layer.
	binary.BigEndian.PutUint16(p[sacnOffDMPFlags:], flagsAndLength(SACNPacketSize-sacnOffDMPFlags))
	p[sacnOffDMPVector] = vectorDMPSetProperty
	p[sacnOffAddrType] = dmpAddressAndDataType
	binary.BigEndian.PutUint16(p[sacnOffFirstAddr:], 0)
	binary.BigEndian.PutUint16(p[sacnOffAddrInc:], 1)
	binary.BigEndian.PutUint16(p[sacnOffValueCount:], 513)
	p[sacnOffStartCode] = 0

	return s
}

// Encode fills the packet with data (at most 512 bytes, zero padded) and
// returns it. The returned slice is reused by the next call.
func (s *SACNSession) Encode(data []byte) []byte {
	slots := s.packet[sacnOffData:]
	n := copy(slots, data)
	clear(slots[n:])
	s.packet[sacnOffSequence] = s.seq
	s.seq++
	return s.packet[:]
}

// MulticastAddr returns the sACN multicast group for a universe.
func MulticastAddr(universe int) *net.UDPAddr {
	return &net.UDPAddr{
		IP:   net.IPv4(239, 255, byte(universe>>8), byte(universe)),
		Port: SACNPort,
	}
}

// ValidSACNUniverse reports whether universe can be carried by sACN.
func ValidSACNUniverse(universe int) bool {
	return universe >= SACNMinUniverse && universe <= SACNMaxUniverse
}

func checkSACNUniverse(universe int) error {
	if !ValidSACNUniverse(universe) {
		return fmt.Errorf("%w: sACN universe %d outside %d-%d", ErrInvalidUniverse, universe, SACNMinUniverse, SACNMaxUniverse)
	}
	return nil
}

func flagsAndLength(n int) uint16 {
	return 0x7000 | uint16(n&0x0FFF)
}
