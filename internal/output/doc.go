// Package output streams DMX frames onto the lighting network.
//
// Two wire protocols are supported:
//
//   - sACN (ANSI E1.31) data packets to UDP port 5568, either multicast to
//     239.255.hi.lo or unicast to a configured destination list. Every
//     (universe, destination) stream has its own SACNSession holding the
//     packet buffer and sequence counter.
//   - Art-Net ArtDmx packets, one socket per net/subnet/universe, sent to a
//     configured destination (broadcast when it is a broadcast address).
//
// The Engine owns one ticker goroutine per run. Each tick reads the model
// and state, builds the frame with a dmx.Builder and hands every universe
// to the active transmitter. Send failures are logged once per run and
// counted; they never stop the engine.
package output
