package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathRegistrySetAndGet(t *testing.T) {
	p := newPathRegistry()

	_, ok := p.get(0)
	assert.False(t, ok, "unallocated identifier reports not-found")

	p.set(3, Address{1, 2})
	got, ok := p.get(3)
	require.True(t, ok)
	assert.Equal(t, Address{1, 2}, got)

	// Lazily grown slots below the written one remain unallocated.
	for _, id := range []int{0, 1, 2} {
		_, ok := p.get(id)
		assert.False(t, ok)
	}
}

func TestPathRegistrySetClonesAddress(t *testing.T) {
	p := newPathRegistry()
	addr := Address{1, 2}
	p.set(0, addr)
	addr[0] = 99

	got, _ := p.get(0)
	assert.Equal(t, 1, got[0], "registry must not alias the caller's backing array")
}

func TestPathRegistrySetEmptyAddressPanics(t *testing.T) {
	p := newPathRegistry()
	assert.Panics(t, func() { p.set(0, Address{}) })
}

func TestPathRegistryGetOutOfRange(t *testing.T) {
	p := newPathRegistry()
	p.set(0, Address{1})

	_, ok := p.get(-1)
	assert.False(t, ok)

	_, ok = p.get(5)
	assert.False(t, ok)
}
