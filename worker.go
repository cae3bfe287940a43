package worker

import (
	"context"
	"time"
)

// Worker is the per-OS-thread root of a dataflow computation: it owns a
// communication substrate, a set of live dataflows, and the activation
// bookkeeping that decides which operators deserve CPU on the next Step.
// Exactly one goroutine is expected to ever call Step/StepWhile/Dataflow on
// a given Worker (spec.md §5); stepGuard panics when a Step call begins
// while another Step on the same Worker is still in progress, but a Step
// from a different goroutine that does not overlap is not detected. This is the direct translation of Worker<A: Allocate> in
// original_source/worker.rs, with the Rc<RefCell<>> fields there replaced by
// plain pointers: Go's single-goroutine-ownership discipline makes the
// interior-mutability ceremony unnecessary (SPEC_FULL.md §5/§9).
type Worker struct {
	timer time.Time

	alloc typedAllocator
	paths *pathRegistry

	identifiers     int
	dataflowCounter int

	dataflows   []*dataflowWrapper
	activations *Activations
	logging     *LogRegistry
	metrics     *stepMetrics

	subgraphBuilder SubgraphBuilder

	guard stepGuard

	// lastStepEvents is the number of ChannelEvents drained by the most
	// recently completed Step call. Run consults it to decide whether the
	// worker is still busy (keep stepping immediately) or idle (sleep up to
	// idle before the next Step).
	lastStepEvents int
}

// New binds a freshly constructed Worker to allocator, capturing the
// monotonic epoch and initializing every counter and collection at its zero
// value (spec.md §4.1 construct).
func New(allocator Allocator, options ...Option) *Worker {
	ta, ok := allocator.(typedAllocator)
	if !ok {
		fatalf(ErrAllocatorUnsupported)
	}
	w := &Worker{
		timer:           time.Now(),
		alloc:           ta,
		paths:           newPathRegistry(),
		dataflows:       nil,
		activations:     NewActivations(),
		logging:         NewLogRegistry(),
		metrics:         newStepMetrics(),
		subgraphBuilder: NewTestSubgraphBuilder(),
	}
	for _, o := range options {
		o.apply(w)
	}
	return w
}

// Index forwards to the allocator; constant for the worker's lifetime.
func (w *Worker) Index() int { return w.alloc.Index() }

// Peers forwards to the allocator; constant for the worker's lifetime.
func (w *Worker) Peers() int { return w.alloc.Peers() }

// Timer returns the monotonic epoch captured at construction, so all
// operators in this worker share a common reference instant.
func (w *Worker) Timer() time.Time { return w.timer }

// NewIdentifier post-increments the identifier counter and returns the
// pre-increment value. Shares its namespace with dataflow indices only in
// spirit (they are separate counters, per spec.md §3), never with each
// other's values.
func (w *Worker) NewIdentifier() int {
	id := w.identifiers
	w.identifiers++
	return id
}

// LogRegister returns the worker's logging registry, the capability exposed
// to child scopes via AsWorker.
func (w *Worker) LogRegister() *LogRegistry { return w.logging }

// Logging is sugar for LogRegister().Get("timely"), the conventional default
// logger name (spec.md §4.6).
func (w *Worker) Logging() (*Logger, bool) { return w.logging.Get("timely") }

// Activations returns the worker's activation set.
func (w *Worker) Activations() *Activations { return w.activations }

// Metrics returns a snapshot of Step's observed latency distribution
// (SPEC_FULL.md domain-stack addition: a step-latency quantile tracker,
// adapted from eventloop/psquare.go).
func (w *Worker) Metrics() StepMetrics { return w.metrics.snapshot() }

func (w *Worker) allocator() typedAllocator { return w.alloc }
func (w *Worker) registerPath(identifier int, address Address) {
	w.paths.set(identifier, address)
}

var _ AsWorker = (*Worker)(nil)

// Step executes one scheduling quantum and reports whether any dataflow
// remains live. This is the seven-step algorithm of spec.md §4.1:
//
//  1. drain channel events and mark their operator addresses runnable
//  2. tidy the activation set
//  3. schedule every live dataflow once, in insertion order
//  4. flush logging
//  5. release the allocator's outbound buffers
//  6. retire dataflows that reported inactive
//  7. return whether any dataflow remains live
//
// Step is not reentrant: calling Step (directly or transitively, e.g. from
// inside a dataflow's ScheduleOnce) while already inside Step panics.
func (w *Worker) Step() bool {
	defer w.guard.enter()()

	start := time.Now()
	defer func() { w.metrics.observe(time.Since(start).Seconds()) }()

	if err := w.alloc.Receive(); err != nil {
		fatalf(err)
	}
	events := w.alloc.Events()
	w.lastStepEvents = len(events)
	for _, ev := range events {
		if addr, ok := w.paths.get(ev.Channel); ok {
			w.activations.Unpark(addr)
		}
	}

	w.activations.Tidy()

	live := false
	for _, d := range w.dataflows {
		if d.active() {
			if d.step() {
				live = true
			}
		}
	}

	w.logging.Flush()

	if err := w.alloc.Release(); err != nil {
		fatalf(err)
	}

	w.retireDead()

	return live
}

// retireDead drops wrappers whose operator has gone inactive, preserving
// the stable insertion order of the survivors (spec.md invariant 4:
// "dataflows contains no wrapper whose operator is None").
func (w *Worker) retireDead() {
	survivors := w.dataflows[:0]
	for _, d := range w.dataflows {
		if d.active() {
			survivors = append(survivors, d)
		}
	}
	w.dataflows = survivors
}

// StepWhile invokes Step repeatedly while predicate() is true. predicate is
// evaluated before each Step, including the first.
func (w *Worker) StepWhile(predicate func() bool) {
	for predicate() {
		w.Step()
	}
}

// Dataflow constructs, registers, and initializes a new dataflow with no
// auxiliary owned resources. It is DataflowUsing with an empty struct{}{}
// resource bag; see DataflowUsing for the full nine-step sequence.
func Dataflow[R any](w *Worker, name string, builder func(*Child) R) R {
	return DataflowUsing[struct{}, R](w, name, struct{}{}, func(_ *struct{}, c *Child) R {
		return builder(c)
	})
}

// DataflowUsing constructs, registers, and initializes a new dataflow,
// stashing resources alongside its operator tree so the two share a drop
// order (operator released before resources; see dataflowWrapper and
// spec.md §4.5's "why dataflow_using exists"). It performs, in order:
//
//  1. compute the new dataflow's root address: [w.Index()]
//  2. allocate a dataflow index
//  3. acquire the "timely" logger, if registered
//  4. construct a subgraph rooted at that address, scoped to the dataflow
//     index, carrying that logger and name
//  5. invoke builder(&resources, childScope), forwarding its return value
//  6. flush the logger
//  7. finalize the subgraph into a Schedule, seeding its progress summaries
//  8. wrap operator and resources into a dataflowWrapper, appended to the
//     worker's dataflow list
//  9. return the builder's return value
//
// Subgraphs are built via the Worker's SubgraphBuilder, supplied with the
// WithSubgraphBuilder option; a Worker constructed without it uses
// NewTestSubgraphBuilder (see testsupport.go).
func DataflowUsing[V any, R any](w *Worker, name string, resources V, builder func(*V, *Child) R) R {
	return dataflowUsing(w, w.subgraphBuilder, name, resources, builder)
}

// dataflowUsing is the unexported, builder-parameterized implementation,
// split out so WithSubgraphBuilder-style configuration (see options.go) can
// substitute a different SubgraphBuilder without duplicating the sequence.
func dataflowUsing[V any, R any](w *Worker, sb SubgraphBuilder, name string, resources V, builder func(*V, *Child) R) R {
	root := Address{w.Index()}
	index := w.dataflowCounter
	w.dataflowCounter++

	logger, _ := w.Logging()

	subgraph := sb.NewSubgraph(index, root, logger, name)

	child := &Child{
		parent:   w,
		address:  root,
		logger:   logger,
		index:    index,
		subgraph: subgraph,
	}

	result := builder(&resources, child)

	w.logging.Flush()

	operator := subgraph.Build(w)
	operator.GetInternalSummary()
	operator.SetExternalSummary()

	w.dataflows = append(w.dataflows, &dataflowWrapper{
		index:     index,
		operator:  operator,
		resources: resources,
	})

	return result
}

// Run is ambient convenience, not part of spec.md's core contract
// (SPEC_FULL.md §4.1.1): it calls Step repeatedly until ctx is done. A
// Step that returns false (no dataflow remains live) ends Run immediately. A
// live Step that drained at least one channel event loops straight into the
// next Step, since more work may already be waiting; a live Step that
// drained none sleeps up to idle first, to avoid busy-spinning while waiting
// for external work to arrive on the allocator. It is grounded on the
// teacher's Loop.Run/tick shape (eventloop/loop.go) but intentionally does
// not fork a background goroutine: the calling goroutine IS the worker
// thread, per spec.md §5.
func (w *Worker) Run(ctx context.Context, idle time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		live := w.Step()
		if !live {
			return nil
		}

		if idle > 0 && w.lastStepEvents == 0 {
			timer := time.NewTimer(idle)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// Close retires every live dataflow (operator before resources, per wrapper
// in insertion order) and closes the allocator. It is the Go expression of
// "the worker's own destructor drops its dataflow list" (spec.md §5).
func (w *Worker) Close() error {
	for _, d := range w.dataflows {
		d.retire()
	}
	w.dataflows = nil
	return w.alloc.Close()
}
