package worker

// AsWorker is the capability surface exposed to operator-building code,
// whether it runs directly against the root Worker or against a Child scope
// nested arbitrarily deep inside a dataflow. Child implements AsWorker by
// forwarding every call to its parent, so operator-building code can be
// written oblivious to its nesting depth (spec.md §4.6).
type AsWorker interface {
	// Index and Peers forward to the allocator.
	Index() int
	Peers() int

	// NewIdentifier mints a fresh, worker-unique identifier.
	NewIdentifier() int

	// LogRegister returns the worker's logging registry.
	LogRegister() *LogRegistry

	// Logging is sugar for LogRegister().Get("timely").
	Logging() (*Logger, bool)

	// Activations returns the worker's activation set.
	Activations() *Activations

	// allocator exposes the raw typedAllocator to the free functions
	// Allocate[T]/Pipeline[T] in channels.go, and registerPath lets them
	// write the path-registry slot without reaching into Worker internals
	// directly. Unexported: only this package's generic helpers use them.
	allocator() typedAllocator
	registerPath(identifier int, address Address)
}

// Child is a nested dataflow scope. It carries its own address (the path
// from the worker root to this scope) and a per-scope logger, but every
// other capability is forwarded to the parent scope, which is eventually the
// root *Worker. This is the Go translation of dataflow::scopes::Child in
// original_source/worker.rs: "child scopes refer back to the worker but the
// worker does not refer to scopes" (SPEC_FULL.md §9), so no cycles form and
// Child values are safe to let go out of scope once dataflow_using returns.
type Child struct {
	parent   AsWorker
	address  Address
	logger   *Logger
	index    int // dataflow index this scope belongs to
	subgraph Subgraph
}

func (c *Child) Index() int                       { return c.parent.Index() }
func (c *Child) Peers() int                       { return c.parent.Peers() }
func (c *Child) NewIdentifier() int                { return c.parent.NewIdentifier() }
func (c *Child) LogRegister() *LogRegistry         { return c.parent.LogRegister() }
func (c *Child) Logging() (*Logger, bool)          { return c.parent.Logging() }
func (c *Child) Activations() *Activations         { return c.parent.Activations() }
func (c *Child) allocator() typedAllocator          { return c.parent.allocator() }
func (c *Child) registerPath(id int, addr Address) { c.parent.registerPath(id, addr) }

// Address returns this scope's address (the path from the worker root).
func (c *Child) Address() Address { return c.address }

// DataflowIndex returns the index of the dataflow this scope belongs to.
func (c *Child) DataflowIndex() int { return c.index }

// Logger returns this scope's own logger handle, distinct from the worker's
// "timely" convenience logger: the subgraph builder is handed this logger at
// construction (spec.md §4.5 step 3-4).
func (c *Child) Logger() *Logger { return c.logger }

// AddOperator registers fn against this scope's subgraph, if the concrete
// Subgraph implementation supports it (testSubgraph, see testsupport.go,
// does; a real operator/subgraph builder is expected to expose its own,
// richer construction API instead, reached independently of AsWorker). ok
// reports whether registration was possible.
func (c *Child) AddOperator(fn func() bool) (ok bool) {
	a, ok := c.subgraph.(operatorAdder)
	if !ok {
		return false
	}
	a.addOperator(fn)
	return true
}
