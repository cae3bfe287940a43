//go:build !linux && !darwin

package worker

// noopPoller is installed on platforms without an epoll/kqueue binding.
// TCPAllocator still works: Receive's poll becomes a pure no-op and a
// Decode error simply ends that connection's readLoop, the same fallback the teacher's own poller_windows.go takes
// (eventloop ships a parked/no-op poller there rather than a native
// binding).
type noopPoller struct{}

func newPoller() readinessPoller { return noopPoller{} }

func (noopPoller) Init() error                          { return nil }
func (noopPoller) Close() error                         { return nil }
func (noopPoller) RegisterFD(fd int, events IOEvents) error { return nil }
func (noopPoller) UnregisterFD(fd int) error            { return nil }
func (noopPoller) Poll(timeoutMs int) ([]int, error)    { return nil, nil }
