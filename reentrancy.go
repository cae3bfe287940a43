package worker

import (
	"runtime"
	"sync/atomic"
)

// stepGuard detects reentrant calls into Worker.Step/StepWhile, the Go
// translation of the teacher's loopGoroutineID/isLoopThread pattern
// (eventloop/loop.go): Step is not reentrant (spec.md §5 "single logical
// thread of control"), and a dataflow calling back into Step from inside its
// own ScheduleOnce is a programming error, not a race to be tolerated.
type stepGuard struct {
	goroutineID atomic.Uint64
}

// enter records the calling goroutine as "inside Step" and panics if one is
// already recorded, i.e. Step called Step. Returns a function that must be
// deferred to clear the record.
func (g *stepGuard) enter() func() {
	if g.goroutineID.Load() != 0 {
		fatalf(ErrReentrantStep)
	}
	g.goroutineID.Store(currentGoroutineID())
	return func() { g.goroutineID.Store(0) }
}

// currentGoroutineID parses the running goroutine's numeric ID out of a
// runtime.Stack trace header ("goroutine 123 ["). There is no public API for
// this; the approach is lifted verbatim from the teacher's getGoroutineID.
func currentGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
