//go:build windows

package netutil

import "syscall"

// control sets SO_REUSEADDR on the sockets.  Windows doesn't support
// SO_REUSEPORT.
func (lc listenControl) control(_, _ string, c syscall.RawConn) (err error) {
	var opErr error
	err = c.Control(func(fd uintptr) {
		opErr = syscall.SetsockoptInt(syscall.Handle(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}

	return opErr
}
