package memcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKetamaLocator_Deterministic(t *testing.T) {
	l := NewKetamaLocator([]string{"a:1", "b:1", "c:1"})
	a1, ok := l.NodeFor("foo")
	require.True(t, ok)
	a2, ok := l.NodeFor("foo")
	require.True(t, ok)
	assert.Equal(t, a1, a2)
}

func TestKetamaLocator_Rebuild(t *testing.T) {
	l := NewKetamaLocator([]string{"a:1"})
	addr, ok := l.NodeFor("foo")
	require.True(t, ok)
	assert.Equal(t, "a:1", addr)

	l.Rebuild([]string{"b:1"})
	addr, ok = l.NodeFor("foo")
	require.True(t, ok)
	assert.Equal(t, "b:1", addr)
}

func TestSingleNodeLocator_AlwaysSameAddr(t *testing.T) {
	l := NewSingleNodeLocator("only:1")
	a1, ok := l.NodeFor("x")
	require.True(t, ok)
	a2, ok := l.NodeFor("y")
	require.True(t, ok)
	assert.Equal(t, a1, a2)
}

func TestSingleNodeLocator_EmptyHasNoOwner(t *testing.T) {
	l := &singleNodeLocator{}
	_, ok := l.NodeFor("x")
	assert.False(t, ok)
}
