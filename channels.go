package worker

import (
	"bytes"
	"encoding/gob"
)

// codec lets a concrete Allocator serialize/deserialize Message[T] payloads
// without itself being generic: Allocate[T]/Pipeline[T] build one from the
// compile-time-known T and hand it to newExchange/newPipeline. An
// in-process allocator (ProcessAllocator) can ignore it entirely, since no
// wire format is needed when the Message[T] value never leaves the process;
// TCPAllocator uses it to encode/decode each Message[T] that crosses a
// socket. encoding/gob is the stdlib choice here rather than a third-party
// serializer because the payload type is arbitrary and only known to the
// generic caller — gob is the one format in the Go ecosystem designed
// exactly for "encode whatever concrete type the caller instantiated me
// with" without a schema or per-type registration at the call site; no pack
// repo carries a general-purpose arbitrary-type wire codec (jsonenc, the
// one serialization-adjacent package in the pack, only formats individual
// numeric/string log fields, not whole Go values).
type codec struct {
	encode func(v any) ([]byte, error)
	decode func([]byte) (any, error)
}

func newCodec[T any]() codec {
	return codec{
		encode: func(v any) ([]byte, error) {
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(v.(Message[T])); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
		decode: func(b []byte) (any, error) {
			var msg Message[T]
			if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&msg); err != nil {
				return nil, err
			}
			return msg, nil
		},
	}
}

// genericPusher adapts an erasedPusher into Pusher[T], performing the
// Message[T] -> any box at the call boundary. It is the one place in the
// module where the generic/erased worlds meet.
type genericPusher[T any] struct{ inner erasedPusher }

func (g genericPusher[T]) Push(msg Message[T]) error { return g.inner.push(msg) }

// genericPuller adapts an erasedPuller into Puller[T], asserting the boxed
// any back to Message[T]. The assertion cannot fail in correct code: every
// erasedPusher feeding a given erasedPuller was itself wrapped by the same
// Allocate[T]/Pipeline[T] call with the same T.
type genericPuller[T any] struct{ inner erasedPuller }

func (g genericPuller[T]) Pull() (Message[T], bool) {
	v, ok := g.inner.pull()
	if !ok {
		var zero Message[T]
		return zero, false
	}
	return v.(Message[T]), true
}

// Allocate constructs a new exchange channel: one Pusher per peer worker,
// and a Puller that delivers messages destined for this worker. identifier
// must be drawn from NewIdentifier (the namespace is shared with Pipeline)
// and address must be non-empty — it names the operator that should be
// activated when a message arrives on this channel.
//
// Go has no generic methods, so this is a free function over the AsWorker
// capability, the direct translation of
// `fn allocate<T: Data>(&mut self, identifier: usize, address: &[usize])`.
func Allocate[T any](w AsWorker, identifier int, address Address) ([]Pusher[T], Puller[T]) {
	w.registerPath(identifier, address)

	rawPushers, rawPuller := w.allocator().newExchange(identifier, newCodec[T]())
	pushers := make([]Pusher[T], len(rawPushers))
	for i, p := range rawPushers {
		pushers[i] = genericPusher[T]{inner: p}
	}
	return pushers, genericPuller[T]{inner: rawPuller}
}

// Pipeline constructs a new pipeline channel: a single sender, single
// receiver, same-worker channel. The implementation short-circuits any
// network path; see ProcessAllocator/TCPAllocator for the concrete in-memory
// transport.
func Pipeline[T any](w AsWorker, identifier int, address Address) (Pusher[T], Puller[T]) {
	w.registerPath(identifier, address)

	rawPusher, rawPuller := w.allocator().newPipeline(identifier, newCodec[T]())
	return genericPusher[T]{inner: rawPusher}, genericPuller[T]{inner: rawPuller}
}
