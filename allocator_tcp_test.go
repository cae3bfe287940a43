package worker

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// ephemeralAddr reserves a free loopback port by listening on it and
// immediately closing the listener, returning the address string for code
// that will net.Listen on it again later. Grounded on the same idiom used in
// the retrieved pack's own orchestration/supervisor test helpers.
func ephemeralAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

// dialMesh dials a two-peer TCPAllocator mesh concurrently, the way two
// separate processes' DialTCPAllocator calls would race against each other
// in production: each index's own Listen and the other index's Dial start at
// the same time, which is exactly what the dialBackoff retry loop in
// allocator_tcp.go exists to tolerate.
func dialMesh(t *testing.T, addrs []string) (*TCPAllocator, *TCPAllocator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	group, gctx := errgroup.WithContext(ctx)
	var a0, a1 *TCPAllocator
	group.Go(func() (err error) {
		a0, err = DialTCPAllocator(gctx, 0, addrs)
		return err
	})
	group.Go(func() (err error) {
		a1, err = DialTCPAllocator(gctx, 1, addrs)
		return err
	})
	require.NoError(t, group.Wait())
	return a0, a1
}

func TestDialTCPAllocatorBuildsMeshAndHandshakes(t *testing.T) {
	addrs := []string{ephemeralAddr(t), ephemeralAddr(t)}
	a0, a1 := dialMesh(t, addrs)
	defer a0.Close()
	defer a1.Close()

	assert.Equal(t, 0, a0.Index())
	assert.Equal(t, 1, a1.Index())
	assert.Equal(t, 2, a0.Peers())
	assert.Equal(t, 2, a1.Peers())

	require.Len(t, a0.conns, 1)
	require.Len(t, a1.conns, 1)
	assert.Equal(t, 1, a0.conns[1].remote.Index, "peer 0's only connection must be handshaken as peer 1")
	assert.Equal(t, 0, a1.conns[0].remote.Index, "peer 1's only connection must be handshaken as peer 0")
}

func TestTCPAllocatorExchangeDeliversAcrossConnection(t *testing.T) {
	addrs := []string{ephemeralAddr(t), ephemeralAddr(t)}
	a0, a1 := dialMesh(t, addrs)
	defer a0.Close()
	defer a1.Close()

	const identifier = 7
	c := newCodec[string]()

	// Both peers allocate the same exchange channel, mirroring the symmetric
	// dataflow construction DialTCPAllocator's own doc comment assumes.
	pushers0, _ := a0.newExchange(identifier, c)
	_, puller1 := a1.newExchange(identifier, c)
	require.Len(t, pushers0, 2)

	require.NoError(t, pushers0[1].push(Message[string]{Channel: identifier, Payload: "hello from peer 0"}))

	var msg any
	require.Eventually(t, func() bool {
		require.NoError(t, a1.Receive())
		a1.Events()
		v, ok := puller1.pull()
		if ok {
			msg = v
		}
		return ok
	}, 2*time.Second, 5*time.Millisecond, "the frame delivered over peer 1's readLoop must become pullable")

	got, ok := msg.(Message[string])
	require.True(t, ok)
	assert.Equal(t, identifier, got.Channel)
	assert.Equal(t, "hello from peer 0", got.Payload)
}

func TestTCPAllocatorSelfLoopDoesNotCrossNetwork(t *testing.T) {
	addrs := []string{ephemeralAddr(t), ephemeralAddr(t)}
	a0, a1 := dialMesh(t, addrs)
	defer a0.Close()
	defer a1.Close()

	const identifier = 3
	c := newCodec[int]()

	pushers0, puller0 := a0.newExchange(identifier, c)
	require.NoError(t, pushers0[0].push(Message[int]{Channel: identifier, Payload: 99}))

	// Same drain step Worker.Step performs: the local-loop pusher writes
	// straight into the inbound queue, Receive is what moves it into pending.
	require.NoError(t, a0.Receive())

	v, ok := puller0.pull()
	require.True(t, ok, "a self-addressed push must be pullable without touching the network")
	got, ok := v.(Message[int])
	require.True(t, ok)
	assert.Equal(t, 99, got.Payload)
}

func TestTCPAllocatorCloseIsIdempotentAndRejectsFurtherUse(t *testing.T) {
	addrs := []string{ephemeralAddr(t), ephemeralAddr(t)}
	a0, a1 := dialMesh(t, addrs)
	defer a1.Close()

	require.NoError(t, a0.Close())
	require.NoError(t, a0.Close(), "Close must be idempotent")

	assert.ErrorIs(t, a0.Receive(), ErrAllocatorClosed)
	assert.ErrorIs(t, a0.Release(), ErrAllocatorClosed)
}
