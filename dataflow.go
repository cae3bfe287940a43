package worker

// dataflowWrapper holds one operator tree plus whatever auxiliary owned
// resources its builder stashed alongside it, with an enforced drop order:
// the operator is always released before the resources, because the
// operator may hold weak references into those resources (loaded shared
// libraries being the canonical example in the original implementation).
// This invariant holds both at voluntary retirement (inside Step, when the
// operator reports inactive) and at forced teardown (the worker dropping its
// whole dataflow list).
//
// Go has no Box<dyn Any>/Box<dyn Schedule> pairing with destructor order, so
// drop order here is simply "set both fields to nil in the right sequence" —
// the same semantics, expressed without RAII.
type dataflowWrapper struct {
	// index is diagnostic only (used in logging), never looked up.
	index int

	// operator is the live Schedule, or nil once retired.
	operator Schedule

	// resources is the opaque owned resource bag stashed by dataflow_using,
	// or nil once retired. A dataflow built via Dataflow rather than
	// DataflowUsing carries an empty struct{}{} here.
	resources any
}

// step asks the operator to run once. If it reports inactive, the wrapper
// releases the operator before the resources, in that order, and returns
// false. Stepping a wrapper whose operator has already been released is a
// programming error (should be unreachable: the worker retires wrappers in
// the same step their operator goes inactive) and panics.
func (d *dataflowWrapper) step() bool {
	if d.operator == nil {
		fatalf(ErrWrapperRetired)
	}

	active := d.operator.ScheduleOnce()
	if !active {
		d.operator = nil
		d.resources = nil
	}
	return active
}

// active reports whether this wrapper still holds a live operator.
func (d *dataflowWrapper) active() bool {
	return d.operator != nil
}

// retire forcibly releases the operator and resources, in order, regardless
// of whether the operator reported itself inactive. Used at worker teardown.
func (d *dataflowWrapper) retire() {
	d.operator = nil
	d.resources = nil
}
