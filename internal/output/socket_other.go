//go:build !unix

package output

import "syscall"

// The runtime enables broadcast on UDP sockets by default here.
func socketControl(SocketConfig) func(network, address string, c syscall.RawConn) error {
	return nil
}
