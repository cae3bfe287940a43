package worker

import (
	"context"
	"encoding/gob"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// dialBackoff bounds how long a dialing peer waits between connection
// attempts against a peer whose net.Listen may not yet have completed:
// every peer's DialTCPAllocator call starts concurrently (mesh bootstrap has
// no separate "listeners first" phase), so a lower-index peer's dial can
// legitimately race ahead of a higher-index peer's own Listen. Retrying with
// a short, fixed backoff until ctx is done is the standard idiom for dialing
// a peer whose own startup is racing yours, rather than failing the whole
// mesh on the first connection-refused.
const dialBackoff = 20 * time.Millisecond

// wireFrame is the unit exchanged over a TCPAllocator connection: the
// channel identifier plus the codec-encoded bytes of one Message[T]. Using
// gob for the frame itself (rather than hand-rolled length-prefixing) keeps
// the connection-level protocol a single Encode/Decode call; only the inner
// Payload needs a per-T codec, since gob already handles []byte and int
// natively.
type wireFrame struct {
	Identifier int
	Payload    []byte
}

// handshake is sent once, immediately after dialing or accepting a
// connection, so each side learns which peer index it is now talking to.
// InstanceID is a fresh random UUID generated for each handshake; it has no
// protocol meaning, and nothing in this package reads or logs it.
type handshake struct {
	Index      int
	InstanceID uuid.UUID
}

// tcpChannel is one identifier this peer has allocated: a codec (once
// known — see register) and a queue of decoded, not-yet-pulled
// messages, filled by the background connection readers.
type tcpChannel struct {
	codec   codec
	inbound *procQueue
	pending []any
}

func (c *tcpChannel) pull() (any, bool) {
	if len(c.pending) == 0 {
		return nil, false
	}
	v := c.pending[0]
	c.pending = c.pending[1:]
	return v, true
}

var _ erasedPuller = (*tcpChannel)(nil)

// tcpRemotePusher pushes a Message[T] (boxed as any) to a specific peer by
// encoding it with codec and writing a wireFrame down conn, guarded by mu so
// concurrent Push calls from different goroutines (multiple dataflows
// sharing one connection) don't interleave frames.
type tcpRemotePusher struct {
	identifier int
	codec      codec
	mu         *sync.Mutex
	enc        *gob.Encoder
}

func (p *tcpRemotePusher) push(v any) error {
	payload, err := p.codec.encode(v)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enc.Encode(wireFrame{Identifier: p.identifier, Payload: payload})
}

var _ erasedPusher = (*tcpRemotePusher)(nil)

// localLoopPusher is the exchange pusher a peer uses to send to itself: no
// network round trip, no codec — the Message[T] (boxed any) goes straight
// into the receiving tcpChannel's queue, the same shortcut ProcessAllocator
// takes for every peer.
type localLoopPusher struct{ inbound *procQueue }

func (p *localLoopPusher) push(v any) error { return p.inbound.push(v) }

var _ erasedPusher = (*localLoopPusher)(nil)

// peerConn is the connection state to one other peer: the net.Conn, a
// shared encoder/write-mutex (one writer goroutine worth of serialization),
// and the decoder the background reader goroutine owns exclusively.
type peerConn struct {
	conn   net.Conn
	encMu  sync.Mutex
	enc    *gob.Encoder
	dec    *gob.Decoder
	remote handshake
}

// TCPAllocator is a multi-process Allocator: one peer dials or accepts one
// TCP connection per other peer, multiplexing every identifier's traffic
// over that single connection and framing messages with wireFrame. Each
// connection is read by its own background readLoop goroutine, so Receive
// only drains in-memory queues and never blocks waiting on a peer that has
// nothing to say. A readiness poller (poller_linux.go/poller_darwin.go,
// adapted from the teacher's FastPoller) has every connection registered and
// is polled by Receive without blocking.
//
// This is the transport original_source/worker.rs's Worker<A: Allocate> is
// generic over when workers run as separate OS processes rather than
// goroutines in one process (contrast ProcessAllocator).
type TCPAllocator struct {
	index int
	peers int

	mu       sync.Mutex
	conns    map[int]*peerConn   // conns[j], j != index: connection to peer j
	channels map[int]*tcpChannel // identifier -> this peer's inbound channel state
	pending  map[int][]wireFrame // identifier -> frames that arrived before a codec was registered
	selfQ    map[int]*procQueue  // not read or written after construction; self-loop pushes go to the tcpChannel's inbound queue
	events   []ChannelEvent

	poller   readinessPoller
	fdToPeer map[int]int // poller fd -> peer index, for dispatch

	closed bool
}

// DialTCPAllocator connects peer index among addrs (addrs[index] is this
// peer's own listen address) into a fully-connected mesh: peers with a
// smaller index dial peers with a larger index, so exactly one connection
// exists per unordered pair. It blocks until every connection is
// established or ctx is cancelled.
func DialTCPAllocator(ctx context.Context, index int, addrs []string) (*TCPAllocator, error) {
	if index < 0 || index >= len(addrs) {
		return nil, fmt.Errorf("worker: tcp allocator index %d out of range for %d addrs", index, len(addrs))
	}

	a := &TCPAllocator{
		index:    index,
		peers:    len(addrs),
		conns:    make(map[int]*peerConn),
		channels: make(map[int]*tcpChannel),
		pending:  make(map[int][]wireFrame),
		selfQ:    make(map[int]*procQueue),
		fdToPeer: make(map[int]int),
	}

	ln, err := net.Listen("tcp", addrs[index])
	if err != nil {
		return nil, err
	}
	defer ln.Close()

	group, gctx := errgroup.WithContext(ctx)

	// Accept connections from every peer with a smaller index.
	incoming := 0
	for j := 0; j < index; j++ {
		incoming++
	}
	if incoming > 0 {
		group.Go(func() error {
			for i := 0; i < incoming; i++ {
				conn, err := ln.Accept()
				if err != nil {
					return err
				}
				if err := a.adopt(conn); err != nil {
					return err
				}
			}
			return nil
		})
	}

	// Dial every peer with a larger index, retrying on failure until that
	// peer's own Listen has caught up or ctx gives out.
	for j := index + 1; j < len(addrs); j++ {
		addr := addrs[j]
		group.Go(func() error {
			var dialer net.Dialer
			for {
				conn, err := dialer.DialContext(gctx, "tcp", addr)
				if err == nil {
					return a.adopt(conn)
				}
				select {
				case <-gctx.Done():
					return err
				case <-time.After(dialBackoff):
				}
			}
		})
	}

	// ln.Accept does not watch ctx; closing the listener once gctx is done
	// (cancellation, a failed peer, or Wait returning) unblocks it.
	go func() {
		<-gctx.Done()
		ln.Close()
	}()

	if err := group.Wait(); err != nil {
		a.Close()
		return nil, err
	}

	a.poller = newPoller()
	if err := a.poller.Init(); err != nil {
		a.Close()
		return nil, err
	}
	a.mu.Lock()
	for j, pc := range a.conns {
		if fd, ok := connFD(pc.conn); ok {
			a.fdToPeer[fd] = j
			_ = a.poller.RegisterFD(fd, EventRead)
		}
	}
	a.mu.Unlock()

	return a, nil
}

// adopt performs the handshake on conn (sending our own index, reading the
// peer's) and installs the resulting peerConn.
func (a *TCPAllocator) adopt(conn net.Conn) error {
	enc := gob.NewEncoder(conn)
	dec := gob.NewDecoder(conn)

	if err := enc.Encode(handshake{Index: a.index, InstanceID: uuid.New()}); err != nil {
		conn.Close()
		return err
	}
	var remote handshake
	if err := dec.Decode(&remote); err != nil {
		conn.Close()
		return err
	}

	pc := &peerConn{conn: conn, enc: enc, dec: dec, remote: remote}

	a.mu.Lock()
	a.conns[remote.Index] = pc
	a.mu.Unlock()

	go a.readLoop(remote.Index, pc)
	return nil
}

// readLoop decodes wireFrames from one peer connection for as long as it
// stays open, delivering each into the matching tcpChannel's queue (or
// buffering it in pending if Allocate[T]/Pipeline[T] hasn't registered a
// codec for that identifier on this peer yet — expected to be momentary,
// since dataflow construction order is the same on every peer).
func (a *TCPAllocator) readLoop(peer int, pc *peerConn) {
	for {
		var f wireFrame
		if err := pc.dec.Decode(&f); err != nil {
			return
		}
		a.deliver(f)
	}
}

func (a *TCPAllocator) deliver(f wireFrame) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch, ok := a.channels[f.Identifier]
	if !ok {
		a.pending[f.Identifier] = append(a.pending[f.Identifier], f)
		return
	}
	if v, err := ch.codec.decode(f.Payload); err == nil {
		ch.inbound.push(v)
	}
}

func (a *TCPAllocator) Index() int { return a.index }
func (a *TCPAllocator) Peers() int { return a.peers }

// Receive drains each allocated channel's inbound queue, accumulating a
// ChannelEvent for every one that had data waiting. Actual socket reads
// happen off-step, in one readLoop goroutine per peer connection (network
// I/O is blocking by nature; spec.md §5 requires Step itself never to
// suspend, so the blocking sits outside Step and only ever touches its own
// connection's decoder — never any state Step reads). The readiness poller
// is polled here without blocking, and only a Poll error is returned; the
// ready fds it reports are not inspected, so a hung-up or failed connection
// is not reported by Receive (its readLoop just stops delivering).
func (a *TCPAllocator) Receive() error {
	if a.closed {
		return ErrAllocatorClosed
	}
	if a.poller != nil {
		if _, err := a.poller.Poll(0); err != nil {
			return err
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for id, ch := range a.channels {
		drained := ch.inbound.drain()
		if len(drained) == 0 {
			continue
		}
		ch.pending = append(ch.pending, drained...)
		a.events = append(a.events, ChannelEvent{Channel: id, Nonempty: true})
	}
	return nil
}

func (a *TCPAllocator) Events() []ChannelEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	events := a.events
	a.events = nil
	return events
}

// Release is a no-op: wireFrames are written synchronously by pushers, so
// there is no outbound buffer to flush at step boundaries.
func (a *TCPAllocator) Release() error {
	if a.closed {
		return ErrAllocatorClosed
	}
	return nil
}

func (a *TCPAllocator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.poller != nil {
		a.poller.Close()
	}
	for _, pc := range a.conns {
		pc.conn.Close()
	}
	return nil
}

func (a *TCPAllocator) newExchange(identifier int, c codec) (pushers []erasedPusher, puller erasedPuller) {
	ch := a.register(identifier, c)

	pushers = make([]erasedPusher, a.peers)
	a.mu.Lock()
	for j := 0; j < a.peers; j++ {
		if j == a.index {
			pushers[j] = &localLoopPusher{inbound: ch.inbound}
			continue
		}
		pc := a.conns[j]
		pushers[j] = &tcpRemotePusher{identifier: identifier, codec: c, mu: &pc.encMu, enc: pc.enc}
	}
	a.mu.Unlock()

	return pushers, ch
}

func (a *TCPAllocator) newPipeline(identifier int, c codec) (pusher erasedPusher, puller erasedPuller) {
	ch := a.register(identifier, c)
	return &localLoopPusher{inbound: ch.inbound}, ch
}

// register installs identifier's codec and inbound queue, replaying any
// frames the background readers buffered before this call.
func (a *TCPAllocator) register(identifier int, c codec) *tcpChannel {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ch, ok := a.channels[identifier]; ok {
		return ch
	}
	ch := &tcpChannel{codec: c, inbound: &procQueue{}}
	a.channels[identifier] = ch

	for _, f := range a.pending[identifier] {
		if v, err := c.decode(f.Payload); err == nil {
			ch.inbound.push(v)
		}
	}
	delete(a.pending, identifier)

	return ch
}

var _ typedAllocator = (*TCPAllocator)(nil)
