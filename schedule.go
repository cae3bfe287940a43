package worker

// Schedule is the capability an operator tree exposes to its owning
// dataflow wrapper. It is the Go translation of the `Schedule` trait
// consumed (not implemented) by the original worker: the subgraph/operator
// builder that produces values satisfying this interface lives outside this
// module's scope (see SPEC_FULL.md §1).
type Schedule interface {
	// ScheduleOnce asks the operator tree to run once. true means "keep me
	// live, offer me CPU again next step"; false means "I am done, retire
	// me" — the wrapper then releases the operator before its resources.
	ScheduleOnce() bool

	// GetInternalSummary and SetExternalSummary are invoked exactly once,
	// immediately after construction, to seed progress tracking. Consumed
	// here as opaque lifecycle hooks; the progress-tracking timestamp
	// algebra itself is out of scope (SPEC_FULL.md §1).
	GetInternalSummary()
	SetExternalSummary()
}

// Subgraph is the empty, under-construction dataflow scope produced by a
// SubgraphBuilder. Operators and channels are added to it while the builder
// callback runs; Build finalizes it into a Schedule-able operator.
type Subgraph interface {
	// Build finalizes the subgraph into a scheduleable operator, using
	// worker to resolve any worker-level resources it needs (e.g. its own
	// channel allocations).
	Build(w AsWorker) Schedule
}

// SubgraphBuilder constructs a new, empty Subgraph rooted at address, scoped
// by dataflow index and named name, with an optional logger for internal
// diagnostics.
type SubgraphBuilder interface {
	NewSubgraph(index int, address Address, logger *Logger, name string) Subgraph
}
