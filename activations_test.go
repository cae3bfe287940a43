package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivationsTidyDeduplicatesAndSorts(t *testing.T) {
	a := NewActivations()
	a.Unpark(Address{2})
	a.Unpark(Address{1})
	a.Unpark(Address{1}) // duplicate
	a.Unpark(Address{1, 0})

	a.Tidy()

	require.Equal(t, 3, a.Len())
	assert.True(t, a.Contains(Address{1}))
	assert.True(t, a.Contains(Address{1, 0}))
	assert.True(t, a.Contains(Address{2}))
}

func TestActivationsAncestorDoesNotSubsumeDescendant(t *testing.T) {
	a := NewActivations()
	a.Unpark(Address{1})
	a.Unpark(Address{1, 0})
	a.Tidy()

	require.Equal(t, 2, a.Len(), "an ancestor activation must not collapse a descendant's")
}

func TestActivationsForExtensionsDrainsOnlySubtree(t *testing.T) {
	a := NewActivations()
	a.Unpark(Address{1, 0})
	a.Unpark(Address{1, 1})
	a.Unpark(Address{2})
	a.Tidy()

	var drained []Address
	a.ForExtensions(Address{1}, func(addr Address) {
		drained = append(drained, addr)
	})

	assert.ElementsMatch(t, []Address{{1, 0}, {1, 1}}, drained)
	assert.Equal(t, 1, a.Len(), "only address {2} should remain active")
	assert.True(t, a.Contains(Address{2}))
}

func TestActivationsForExtensionsPrefixItselfMatches(t *testing.T) {
	a := NewActivations()
	a.Unpark(Address{1})
	a.Unpark(Address{1, 0})
	a.Tidy()

	var drained []Address
	a.ForExtensions(Address{1}, func(addr Address) {
		drained = append(drained, addr)
	})

	assert.ElementsMatch(t, []Address{{1}, {1, 0}}, drained)
	assert.Zero(t, a.Len())
}

func TestActivationsUnparkIdempotentWithinAStep(t *testing.T) {
	a := NewActivations()
	for i := 0; i < 5; i++ {
		a.Unpark(Address{7})
	}
	a.Tidy()
	assert.Equal(t, 1, a.Len())
}
