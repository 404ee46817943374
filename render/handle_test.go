package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableInsertGetRemove(t *testing.T) {
	var table Table[string]

	a := table.Insert("a")
	b := table.Insert("b")
	require.Equal(t, 2, table.Len())

	got, ok := table.Get(a)
	require.True(t, ok)
	assert.Equal(t, "a", got)

	removed, ok := table.Remove(a)
	require.True(t, ok)
	assert.Equal(t, "a", removed)
	assert.Equal(t, 1, table.Len())

	_, ok = table.Get(a)
	assert.False(t, ok, "removed handle must not resolve")

	got, ok = table.Get(b)
	require.True(t, ok)
	assert.Equal(t, "b", got)
}

func TestTableStaleGenerationDetected(t *testing.T) {
	var table Table[int]

	old := table.Insert(1)
	table.Remove(old)

	// The freed slot is recycled with a new generation.
	fresh := table.Insert(2)
	require.False(t, fresh.IsZero())

	_, ok := table.Get(old)
	assert.False(t, ok, "stale handle must not resolve to the recycled slot")

	got, ok := table.Get(fresh)
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestTableZeroHandle(t *testing.T) {
	var table Table[int]
	var zero Handle

	assert.True(t, zero.IsZero())

	_, ok := table.Get(zero)
	assert.False(t, ok)

	_, ok = table.Remove(zero)
	assert.False(t, ok)
}

func TestTableDoubleRemove(t *testing.T) {
	var table Table[int]

	h := table.Insert(7)
	_, ok := table.Remove(h)
	require.True(t, ok)

	_, ok = table.Remove(h)
	assert.False(t, ok)
	assert.Equal(t, 0, table.Len())
}
