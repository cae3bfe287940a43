package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressHasPrefix(t *testing.T) {
	assert.True(t, Address{1, 2, 3}.hasPrefix(Address{1, 2}))
	assert.True(t, Address{1, 2}.hasPrefix(Address{1, 2}))
	assert.True(t, Address{1, 2}.hasPrefix(Address{}))
	assert.False(t, Address{1, 2}.hasPrefix(Address{1, 3}))
	assert.False(t, Address{1}.hasPrefix(Address{1, 2}))
}

func TestAddressClone(t *testing.T) {
	a := Address{1, 2, 3}
	b := a.clone()
	b[0] = 99
	require.Equal(t, 1, a[0], "clone must not alias the original backing array")
}

func TestCompareAddress(t *testing.T) {
	assert.Equal(t, 0, compareAddress(Address{1, 2}, Address{1, 2}))
	assert.Negative(t, compareAddress(Address{1}, Address{1, 2}))
	assert.Negative(t, compareAddress(Address{1, 2}, Address{1, 3}))
	assert.Positive(t, compareAddress(Address{2}, Address{1, 9}))
}
