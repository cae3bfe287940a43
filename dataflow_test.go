package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingSchedule struct {
	live    bool
	stopped bool
}

func (s *recordingSchedule) ScheduleOnce() bool {
	active := s.live
	if !active {
		s.stopped = true
	}
	return active
}

func (s *recordingSchedule) GetInternalSummary() {}
func (s *recordingSchedule) SetExternalSummary() {}

func TestDataflowWrapperStepReleasesOperatorBeforeResources(t *testing.T) {
	resources := &struct{ name string }{name: "res"}
	w := &dataflowWrapper{
		index:     0,
		operator:  &recordingSchedule{live: false},
		resources: resources,
	}

	assert.True(t, w.active())
	live := w.step()
	assert.False(t, live)
	assert.False(t, w.active())
	assert.Nil(t, w.operator)
	assert.Nil(t, w.resources)
}

func TestDataflowWrapperStaysActiveWhileOperatorReportsLive(t *testing.T) {
	sched := &recordingSchedule{live: true}
	w := &dataflowWrapper{operator: sched}

	assert.True(t, w.step())
	assert.True(t, w.active())
	assert.False(t, sched.stopped)
}

func TestDataflowWrapperStepOnRetiredPanics(t *testing.T) {
	w := &dataflowWrapper{}
	assert.Panics(t, func() { w.step() })
}

func TestDataflowWrapperRetireForcesTeardownRegardlessOfLiveness(t *testing.T) {
	w := &dataflowWrapper{
		operator:  &recordingSchedule{live: true},
		resources: "owned",
	}
	w.retire()
	assert.False(t, w.active())
	assert.Nil(t, w.operator)
	assert.Nil(t, w.resources)
}

// Boundary behavior 10: a dataflow whose first schedule reports inactive is
// retired within the same Step it was registered in, not a subsequent one.
func TestDataflowRetiresWithinRegisteringStep(t *testing.T) {
	w, done := newTestWorker(t)
	defer done()

	Dataflow(w, "stillborn", func(c *Child) struct{} {
		c.AddOperator(func() bool { return false })
		return struct{}{}
	})

	assert.Len(t, w.dataflows, 1, "registered but not yet stepped")

	live := w.Step()
	assert.False(t, live)
	assert.Empty(t, w.dataflows, "must retire in the very step it was registered")
}
