package worker

import "errors"

// Sentinel errors. Most of these are wrapped inside a panic value rather than
// returned: spec-level invariant violations (a mis-wired channel, a stepped
// wrapper that already retired, a reentrant Step call) are programming errors
// with no meaningful recovery, and are treated as fatal per the worker's error
// handling design: abort the goroutine, don't limp on.
var (
	// ErrEmptyAddress is the cause wrapped by the panic raised when Allocate
	// or Pipeline is called with a zero-length operator address.
	ErrEmptyAddress = errors.New("worker: channel address must be non-empty")

	// ErrWrapperRetired is the cause wrapped by the panic raised when a
	// dataflow wrapper's Step is invoked after its operator has already been
	// released. This should be unreachable: the worker retires and drops
	// wrappers in the same step their operator reports inactive.
	ErrWrapperRetired = errors.New("worker: dataflow wrapper stepped after retirement")

	// ErrReentrantStep is the cause wrapped by the panic raised when Step is
	// invoked while another Step call on the same Worker is still in
	// progress, whether from inside that call or from another goroutine.
	// Single-threaded cooperative scheduling has no meaningful recovery from
	// overlapping steps.
	ErrReentrantStep = errors.New("worker: reentrant Step call")

	// ErrAllocatorClosed is returned by Allocator operations performed after
	// Close has been called.
	ErrAllocatorClosed = errors.New("worker: allocator closed")

	// ErrAllocatorUnsupported is the cause wrapped by the panic raised when
	// New is given an Allocator that does not also implement typedAllocator
	// (the unexported construction hooks Allocate[T]/Pipeline[T] need).
	// Distinct from ErrAllocatorClosed, which is about lifecycle, not
	// capability.
	ErrAllocatorUnsupported = errors.New("worker: allocator does not implement the required construction hooks")
)

// fatalf panics with err wrapped so callers can recover and inspect the cause
// via errors.Is/errors.As in tests, while production code is expected to let
// the panic crash the worker goroutine.
func fatalf(err error) {
	panic(err)
}
