// Package dmx turns the show model and runtime state into DMX frames.
//
// Resolve applies Highest-Takes-Precedence per channel: the direct value and
// the blended contribution of every active look compete, and the largest
// wins. A Builder then lays the resolved values into 512-slot universe
// buffers keyed by protocol addressing. Both are pure with respect to their
// inputs; the Builder only keeps its buffers between passes.
package dmx
