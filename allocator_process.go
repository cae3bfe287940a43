package worker

import "sync"

// procQueue is an unbounded, mutex-guarded FIFO used to back ProcessAllocator
// channels. Native Go channels are deliberately not used here: the worker's
// cooperative model has no separate I/O goroutine keeping a bounded channel
// drained, and a blocking send performed from inside a peer's Step could
// deadlock the whole process. This is the same "accumulate, drain on
// demand" shape as eventloop's ChunkedIngress, simplified to a plain slice
// since ProcessAllocator has no cross-goroutine backpressure to amortize.
type procQueue struct {
	mu  sync.Mutex
	buf []any
}

func (q *procQueue) push(v any) error {
	q.mu.Lock()
	q.buf = append(q.buf, v)
	q.mu.Unlock()
	return nil
}

// drain removes and returns everything currently buffered.
func (q *procQueue) drain() []any {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		return nil
	}
	out := q.buf
	q.buf = nil
	return out
}

var _ erasedPusher = (*procQueue)(nil)

// processNetwork is the state a group of ProcessAllocators created together
// (one per peer, via NewProcessAllocators) share: per-identifier queue sets,
// lazily created by whichever peer allocates that identifier first. Peers
// allocate concurrently from independent goroutines during dataflow
// construction, so access is mutex-guarded.
type processNetwork struct {
	peers int

	mu       sync.Mutex
	exchange map[int][]*procQueue // exchange[identifier][receiverIndex]
	pipeline map[int][]*procQueue // pipeline[identifier][peerIndex]
}

func newProcessNetwork(peers int) *processNetwork {
	return &processNetwork{
		peers:    peers,
		exchange: make(map[int][]*procQueue),
		pipeline: make(map[int][]*procQueue),
	}
}

func (n *processNetwork) queues(table map[int][]*procQueue, identifier int) []*procQueue {
	n.mu.Lock()
	defer n.mu.Unlock()
	qs, ok := table[identifier]
	if !ok {
		qs = make([]*procQueue, n.peers)
		for i := range qs {
			qs[i] = &procQueue{}
		}
		table[identifier] = qs
	}
	return qs
}

// watchedChannel is one identifier this particular peer has allocated: its
// own inbound queue, plus whatever Receive has drained from it but Pull has
// not yet consumed.
type watchedChannel struct {
	id      int
	inbound *procQueue
	pending []any
}

func (w *watchedChannel) pull() (any, bool) {
	if len(w.pending) == 0 {
		return nil, false
	}
	v := w.pending[0]
	w.pending = w.pending[1:]
	return v, true
}

var _ erasedPuller = (*watchedChannel)(nil)

// ProcessAllocator is a single-process, N-peer Allocator: every peer in the
// group is a goroutine in the same process sharing a *processNetwork, and
// exchange/pipeline channels are plain mutex-guarded queues rather than a
// real network transport. NewProcessAllocators wires up the whole group at
// once; multi-process deployments use TCPAllocator instead
// (allocator_tcp.go). No third-party dependency is exercised here — a
// same-process fan-out over plain channels/mutexes has no idiomatic
// third-party replacement anywhere in the retrieved pack.
type ProcessAllocator struct {
	index   int
	network *processNetwork

	watched map[int]*watchedChannel // channels this peer has allocated, keyed by identifier
	events  []ChannelEvent
	closed  bool
}

// NewProcessAllocators constructs peers ProcessAllocators sharing one
// processNetwork, indexed 0..peers-1. This is the single-process analogue of
// spawning one OS thread per worker with a shared communication fabric
// (original_source/worker.rs's Worker<A: Allocate> is generic over exactly
// this kind of substrate).
func NewProcessAllocators(peers int) []*ProcessAllocator {
	network := newProcessNetwork(peers)
	out := make([]*ProcessAllocator, peers)
	for i := range out {
		out[i] = &ProcessAllocator{
			index:   i,
			network: network,
			watched: make(map[int]*watchedChannel),
		}
	}
	return out
}

func (a *ProcessAllocator) Index() int { return a.index }
func (a *ProcessAllocator) Peers() int { return a.network.peers }

// Receive drains every channel this peer has allocated, accumulating a
// ChannelEvent for each one that had data waiting.
func (a *ProcessAllocator) Receive() error {
	if a.closed {
		return ErrAllocatorClosed
	}
	for id, ch := range a.watched {
		drained := ch.inbound.drain()
		if len(drained) == 0 {
			continue
		}
		ch.pending = append(ch.pending, drained...)
		a.events = append(a.events, ChannelEvent{Channel: id, Nonempty: true})
	}
	return nil
}

func (a *ProcessAllocator) Events() []ChannelEvent {
	events := a.events
	a.events = nil
	return events
}

// Release is a no-op: procQueue writes are immediately visible to the
// receiving peer's next Receive, there is no outbound buffer to flush.
func (a *ProcessAllocator) Release() error {
	if a.closed {
		return ErrAllocatorClosed
	}
	return nil
}

func (a *ProcessAllocator) Close() error {
	a.closed = true
	return nil
}

// newExchange and newPipeline both ignore c: ProcessAllocator never
// serializes a Message[T], it just boxes the value as any and hands it
// straight to the receiving peer's own goroutine.
func (a *ProcessAllocator) newExchange(identifier int, c codec) (pushers []erasedPusher, puller erasedPuller) {
	qs := a.network.queues(a.network.exchange, identifier)
	pushers = make([]erasedPusher, len(qs))
	for i, q := range qs {
		pushers[i] = q
	}
	puller = a.watch(identifier, qs[a.index])
	return pushers, puller
}

func (a *ProcessAllocator) newPipeline(identifier int, c codec) (pusher erasedPusher, puller erasedPuller) {
	qs := a.network.queues(a.network.pipeline, identifier)
	pusher = qs[a.index]
	puller = a.watch(identifier, qs[a.index])
	return pusher, puller
}

// watch registers identifier's inbound queue so Receive drains it on every
// future step, returning the watchedChannel to use as this allocation's
// Puller.
func (a *ProcessAllocator) watch(identifier int, inbound *procQueue) *watchedChannel {
	if ch, ok := a.watched[identifier]; ok {
		return ch
	}
	ch := &watchedChannel{id: identifier, inbound: inbound}
	a.watched[identifier] = ch
	return ch
}

var _ typedAllocator = (*ProcessAllocator)(nil)
