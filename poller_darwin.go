//go:build darwin

package worker

import (
	"sync"

	"golang.org/x/sys/unix"
)

// fastPoller is a kqueue-backed readinessPoller, the Darwin counterpart of
// poller_linux.go. Adapted from eventloop/poller_darwin.go: the
// Kqueue/Kevent lifecycle and EV_ADD/EV_DELETE filter construction are kept;
// the growable [fdInfo] slice and inline callback dispatch are dropped for
// the same reason as the Linux side (TCPAllocator owns its own connection
// bookkeeping).
type fastPoller struct {
	mu     sync.Mutex
	kq     int
	events [256]unix.Kevent_t
	closed bool
}

func newPoller() readinessPoller { return &fastPoller{} }

func (p *fastPoller) Init() error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = kq
	return nil
}

func (p *fastPoller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.kq)
}

func (p *fastPoller) RegisterFD(fd int, events IOEvents) error {
	kevents := eventsToKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE)
	if len(kevents) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, kevents, nil, nil)
	return err
}

func (p *fastPoller) UnregisterFD(fd int) error {
	kevents := eventsToKevents(fd, EventRead|EventWrite, unix.EV_DELETE)
	if len(kevents) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, kevents, nil, nil)
	return err
}

func (p *fastPoller) Poll(timeoutMs int) ([]int, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * int64(1e6))
		ts = &t
	}
	n, err := unix.Kevent(p.kq, nil, p.events[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	ready := make([]int, n)
	for i := 0; i < n; i++ {
		ready[i] = int(p.events[i].Ident)
	}
	return ready, nil
}

func eventsToKevents(fd int, events IOEvents, flags uint16) []unix.Kevent_t {
	var out []unix.Kevent_t
	if events&EventRead != 0 {
		out = append(out, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&EventWrite != 0 {
		out = append(out, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return out
}
