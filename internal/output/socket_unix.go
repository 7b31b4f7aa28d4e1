//go:build unix

package output

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func socketControl(cfg SocketConfig) func(network, address string, c syscall.RawConn) error {
	return func(_, _ string, c syscall.RawConn) error {
		var opErr error
		err := c.Control(func(fd uintptr) {
			opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			if opErr != nil {
				return
			}
			broadcast := 0
			if cfg.Broadcast {
				broadcast = 1
			}
			opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, broadcast)
		})
		if err != nil {
			return err
		}
		return opErr
	}
}
