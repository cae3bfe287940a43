//go:build linux || darwin

package worker

import (
	"net"
	"syscall"
)

// connFD extracts the raw file descriptor behind a *net.TCPConn so it can be
// registered with the platform readiness poller. ok is false for any
// net.Conn that doesn't expose a syscall.RawConn (e.g. net.Pipe).
func connFD(conn net.Conn) (fd int, ok bool) {
	sc, isConner := conn.(interface {
		SyscallConn() (syscall.RawConn, error)
	})
	if !isConner {
		return 0, false
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, false
	}
	var extracted int
	if err := raw.Control(func(fdVal uintptr) { extracted = int(fdVal) }); err != nil {
		return 0, false
	}
	return extracted, true
}
