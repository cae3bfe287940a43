package worker

// Message is the envelope carried on both exchange and pipeline channels,
// the Go analogue of communication::Message<T> in original_source/worker.rs.
type Message[T any] struct {
	// Channel is the identifier of the channel this message was sent on.
	Channel int
	// Payload is the message body.
	Payload T
}

// Pusher sends messages on a channel. One Pusher per peer is returned by an
// exchange allocation; exactly one Pusher is returned by a pipeline
// allocation.
type Pusher[T any] interface {
	Push(Message[T]) error
}

// Puller receives messages destined for this worker on a channel.
type Puller[T any] interface {
	// Pull returns the next buffered message, or ok==false if none is
	// currently available. Pull never blocks: availability is driven by the
	// Allocator's Receive/Events cycle during Worker.Step.
	Pull() (Message[T], bool)
}

// ChannelEvent is one (channel identifier, activity) pair accumulated by the
// allocator between calls to Receive. Nonempty records whether the event is
// known to correspond to actual pending data; per spec.md §4.1 step 1, an
// implementation MAY use this to suppress activation on empty channels, but
// MUST activate on data-bearing events. Worker.Step currently activates
// unconditionally regardless of Nonempty (see SPEC_FULL.md §9, Open
// Question left open rather than built).
type ChannelEvent struct {
	Channel  int
	Nonempty bool
}

// Allocator is the communication substrate the Worker consumes: channel
// allocation, draining of inbound network activity into activation-worthy
// events, and flush/release of outbound buffers. This is the capability
// surface described in SPEC_FULL.md §6; the allocator's own wire protocol is
// an implementation detail of each concrete Allocator (ProcessAllocator,
// TCPAllocator), not part of this core.
type Allocator interface {
	// Index is this worker's index among its peers. Constant for the
	// lifetime of the allocator.
	Index() int
	// Peers is the total number of workers participating, including this
	// one. Constant for the lifetime of the allocator.
	Peers() int

	// Receive drains inbound network activity, making newly-arrived
	// messages available to pullers and accumulating ChannelEvents for the
	// channels that received them. Returning zero events is not an error:
	// the step still proceeds, and dataflows may make time-driven progress.
	Receive() error

	// Events drains and returns the channel events accumulated since the
	// last call. The return value must not be reused or mutated by the
	// caller across calls into the allocator.
	Events() []ChannelEvent

	// Release flushes outbound buffers, signalling that this step's
	// outbound work is complete.
	Release() error

	// Close releases any resources (connections, file descriptors) held by
	// the allocator. Operations performed after Close return
	// ErrAllocatorClosed.
	Close() error
}

// erasedPusher and erasedPuller are the non-generic primitives a concrete
// Allocator deals in. Go has no generic methods, so an Allocator
// implementation cannot expose `newExchange[T]` directly; instead it builds
// and wires plain `any`-payload queues/connections, and the generic
// Allocate[T]/Pipeline[T] free functions (channels.go) wrap them with a
// generic adapter that does the Message[T] type assertion at the boundary.
// This mirrors how communication::Allocate erases to
// Box<Push<Message<T>>>/Box<Pull<Message<T>>> in the original, translated to
// Go's adapter-over-an-erased-core idiom rather than a trait object.
type erasedPusher interface {
	push(v any) error
}

type erasedPuller interface {
	pull() (v any, ok bool)
}

// typedAllocator is the narrow hook a concrete Allocator must support beyond
// the public Allocator interface: untyped construction of exchange/pipeline
// channels, used internally by Allocate[T]/Pipeline[T] before they wrap the
// result in a generic adapter. Kept as a separate, unexported interface so
// concrete allocators are not forced to expose this through the public
// Allocator surface.
type typedAllocator interface {
	Allocator
	// newExchange returns one erased pusher per peer (indexed by peer
	// index) and one erased puller, keyed by identifier. c is the codec for
	// the T the caller instantiated Allocate[T] with; a same-process
	// allocator is free to ignore it.
	newExchange(identifier int, c codec) (pushers []erasedPusher, puller erasedPuller)
	// newPipeline returns a single erased pusher/puller pair for a
	// same-worker channel.
	newPipeline(identifier int, c codec) (pusher erasedPusher, puller erasedPuller)
}
