// Demonstration harness for the worker package: wires two in-process peers
// together over ProcessAllocator, registers a trivial dataflow on each, and
// drives both to completion via Run. Not a replacement for real process
// bootstrap (spec.md §1 leaves CLI/configuration/bootstrap out of scope);
// this exists purely to exercise the package end to end the way the
// teacher's examples/ directory exercises eventloop.
//
// Run with: go run ./cmd/worker-demo/
package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tdflow/worker"
)

func main() {
	allocs := worker.NewProcessAllocators(2)

	workers := make([]*worker.Worker, len(allocs))
	for i, a := range allocs {
		workers[i] = worker.New(a)
	}

	identifier := workers[0].NewIdentifier()
	addr := worker.Address{0}

	pushers, _ := worker.Allocate[string](workers[0], identifier, addr)
	_, puller := worker.Allocate[string](workers[1], identifier, worker.Address{1})

	remaining := 3
	worker.Dataflow(workers[0], "sender", func(c *worker.Child) struct{} {
		c.AddOperator(func() bool {
			if remaining <= 0 {
				return false
			}
			msg := worker.Message[string]{Channel: identifier, Payload: fmt.Sprintf("tick %d", remaining)}
			for _, p := range pushers {
				_ = p.Push(msg)
			}
			remaining--
			return remaining > 0
		})
		return struct{}{}
	})

	received := 0
	worker.Dataflow(workers[1], "receiver", func(c *worker.Child) struct{} {
		c.AddOperator(func() bool {
			for {
				msg, ok := puller.Pull()
				if !ok {
					break
				}
				received++
				fmt.Printf("peer 1 received: %s\n", msg.Payload)
			}
			return received < 3
		})
		return struct{}{}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Each worker is its own goroutine's sole owner (spec.md §5); Run drives
	// each one to completion (every dataflow retired) or cancellation.
	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *worker.Worker) {
			defer wg.Done()
			if err := w.Run(ctx, 10*time.Millisecond); err != nil {
				fmt.Printf("worker %d: %v\n", w.Index(), err)
			}
		}(w)
	}
	wg.Wait()

	for _, w := range workers {
		m := w.Metrics()
		fmt.Printf("worker %d: steps=%d mean=%s p50=%s p99=%s max=%s\n",
			w.Index(), m.Count,
			time.Duration(m.Mean*float64(time.Second)),
			time.Duration(m.P50*float64(time.Second)),
			time.Duration(m.P99*float64(time.Second)),
			time.Duration(m.Max*float64(time.Second)))
		_ = w.Close()
	}

	fmt.Printf("done: received=%d\n", received)
}
