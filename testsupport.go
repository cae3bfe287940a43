package worker

// testSubgraphBuilder, testSubgraph, and testSchedule give this package a
// minimal, self-contained Subgraph/Schedule implementation so Worker can be
// exercised end-to-end without a real operator/subgraph builder — spec.md
// §1 treats that builder as an out-of-scope external collaborator, so the
// core must still be independently testable against something. Production
// callers supply their own SubgraphBuilder via WithSubgraphBuilder; this one
// is the default New installs, and is also reached directly by this
// package's own tests.

// operatorAdder is implemented by Subgraph values that support registering
// plain scheduled functions. testSubgraph does; a real, richer operator
// tree builder would expose its own construction API instead, reached some
// other way than through Child.
type operatorAdder interface {
	addOperator(fn func() bool)
}

// testSchedule adapts a flat list of plain "keep scheduling me" functions
// into a single Schedule: ScheduleOnce calls every function on every
// invocation (so none starves behind another) and stays live as long as any
// one of them does.
type testSchedule struct {
	ops []func() bool
}

func (s *testSchedule) ScheduleOnce() bool {
	live := false
	for _, op := range s.ops {
		if op() {
			live = true
		}
	}
	return live
}

func (s *testSchedule) GetInternalSummary() {}
func (s *testSchedule) SetExternalSummary() {}

// testSubgraph accumulates operators registered against it during a
// dataflow builder callback (via Child.AddOperator), then finalizes into a
// testSchedule at Build.
type testSubgraph struct {
	index   int
	address Address
	logger  *Logger
	name    string
	ops     []func() bool
}

func (s *testSubgraph) Build(AsWorker) Schedule {
	return &testSchedule{ops: s.ops}
}

func (s *testSubgraph) addOperator(fn func() bool) {
	s.ops = append(s.ops, fn)
}

type testSubgraphBuilder struct{}

// NewTestSubgraphBuilder returns a SubgraphBuilder whose Subgraph
// implementation is a flat, unordered list of plain functions, each invoked
// on every ScheduleOnce of the finished dataflow. It is the default
// installed by New and is sufficient for exercising Worker's step loop,
// activation handling, and dataflow lifecycle without a real operator tree.
func NewTestSubgraphBuilder() SubgraphBuilder {
	return testSubgraphBuilder{}
}

func (testSubgraphBuilder) NewSubgraph(index int, address Address, logger *Logger, name string) Subgraph {
	return &testSubgraph{index: index, address: address, logger: logger, name: name}
}
