//go:build windows

package transport

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// broadcastControl enables SO_BROADCAST on a socket before it is bound, so
// packets may be sent to the limited broadcast address.
func broadcastControl(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
