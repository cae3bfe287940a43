// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package worker

// Option configures a *Worker at construction, the same functional-options
// shape as the teacher's LoopOption (eventloop/options.go), generalized from
// a fixed option set to a single apply hook since this module currently has
// exactly one configurable collaborator (the SubgraphBuilder) rather than
// the half-dozen the teacher's Loop exposes.
type Option interface {
	apply(w *Worker)
}

type optionFunc func(w *Worker)

func (f optionFunc) apply(w *Worker) { f(w) }

// WithSubgraphBuilder overrides the SubgraphBuilder used by Dataflow and
// DataflowUsing. Workers constructed without this option use
// NewTestSubgraphBuilder, a minimal in-module stub (see testsupport.go);
// production callers wiring a real operator/subgraph implementation should
// always supply this.
func WithSubgraphBuilder(sb SubgraphBuilder) Option {
	return optionFunc(func(w *Worker) {
		w.subgraphBuilder = sb
	})
}
