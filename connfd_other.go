//go:build !linux && !darwin

package worker

import "net"

// connFD has no implementation outside linux/darwin; always reports ok=false,
// consistent with poller_other.go's noopPoller never actually polling a fd.
func connFD(conn net.Conn) (fd int, ok bool) { return 0, false }
