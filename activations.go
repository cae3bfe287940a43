package worker

import "sort"

// Activations tracks the set of operator addresses that should be offered
// CPU on the next step. Operators form a tree, and activations scope
// naturally by subtree, so the set is kept sorted lexicographically: a
// subtree's activations are then a contiguous range, and ForExtensions can
// drain exactly that range with a pair of binary searches instead of a full
// scan. This mirrors the "sort once, range-scan many" shape the teacher uses
// for its timer heap and registry scavenging ring, applied here to an
// address-keyed set instead of a single monotonic sequence.
//
// Activations is not safe for concurrent use; like the rest of the Worker,
// it is owned by a single goroutine for its entire lifetime (see §5 of
// SPEC_FULL.md).
type Activations struct {
	// pending holds addresses unparked since the last Tidy, in arrival
	// order and with duplicates. Kept separate from active so that Unpark
	// stays O(1) regardless of set size.
	pending []Address

	// active is the sorted, deduplicated set produced by Tidy.
	active []Address
}

// NewActivations constructs an empty activation set.
func NewActivations() *Activations {
	return &Activations{}
}

// Unpark marks address as runnable. Idempotent within a step: unparking the
// same address any number of times before the next Tidy contributes exactly
// one entry once Tidy runs.
func (a *Activations) Unpark(address Address) {
	a.pending = append(a.pending, address.clone())
}

// Tidy folds pending unparks into the sorted active set, deduplicating exact
// repeats while preserving ancestor/descendant entries as distinct members
// (an ancestor's activation never subsumes a descendant's, or vice versa).
func (a *Activations) Tidy() {
	if len(a.pending) == 0 {
		return
	}

	a.active = append(a.active, a.pending...)
	a.pending = a.pending[:0]

	sort.Slice(a.active, func(i, j int) bool {
		return compareAddress(a.active[i], a.active[j]) < 0
	})

	out := a.active[:0]
	for i, addr := range a.active {
		if i == 0 || compareAddress(addr, out[len(out)-1]) != 0 {
			out = append(out, addr)
		}
	}
	a.active = out
}

// ForExtensions invokes action on every active address that extends prefix
// (prefix itself included, if present), then removes them from the set. This
// lets a subgraph drain exactly its own activations on a single call without
// scanning entries belonging to unrelated operators.
func (a *Activations) ForExtensions(prefix Address, action func(Address)) {
	lo := sort.Search(len(a.active), func(i int) bool {
		return compareAddress(a.active[i], prefix) >= 0
	})
	hi := lo
	for hi < len(a.active) && a.active[hi].hasPrefix(prefix) {
		hi++
	}
	if lo == hi {
		return
	}

	matched := make([]Address, hi-lo)
	copy(matched, a.active[lo:hi])
	a.active = append(a.active[:lo], a.active[hi:]...)

	for _, addr := range matched {
		action(addr)
	}
}

// Len returns the number of entries in the tidied active set. Exposed for
// tests and diagnostics; pending (un-tidied) unparks are not counted.
func (a *Activations) Len() int {
	return len(a.active)
}

// Contains reports whether address is present in the tidied active set.
// Exposed for tests; production code should prefer ForExtensions, which is
// the only capability spec.md exposes to operators.
func (a *Activations) Contains(address Address) bool {
	for _, addr := range a.active {
		if compareAddress(addr, address) == 0 {
			return true
		}
	}
	return false
}
