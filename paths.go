package worker

// pathRegistry is the write-once table mapping a channel identifier to the
// operator address that should be activated when a message arrives on that
// channel. Slot i is written exactly once, when channel i is allocated; it is
// immutable thereafter. Both allocation paths (exchange and pipeline) grow
// the table to cover the supplied identifier before writing the slot, the
// same lazy-grow shape as `paths.borrow_mut()` in original_source/worker.rs.
type pathRegistry struct {
	entries []Address
}

// newPathRegistry returns an empty registry, equivalent to the zero value;
// provided so callers don't need to know that's safe.
func newPathRegistry() *pathRegistry {
	return &pathRegistry{}
}

// set grows the table to include identifier if necessary and records
// address at that slot. A zero-length address is a programming error: there
// is no meaningful recovery from a mis-wired channel, so this aborts the
// worker goroutine rather than returning an error.
func (p *pathRegistry) set(identifier int, address Address) {
	if len(address) == 0 {
		fatalf(ErrEmptyAddress)
	}
	for len(p.entries) <= identifier {
		p.entries = append(p.entries, nil)
	}
	p.entries[identifier] = address.clone()
}

// get returns the address registered for identifier, and whether it has been
// allocated at all.
func (p *pathRegistry) get(identifier int) (Address, bool) {
	if identifier < 0 || identifier >= len(p.entries) || p.entries[identifier] == nil {
		return nil, false
	}
	return p.entries[identifier], true
}
