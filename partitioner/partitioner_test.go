package partitioner

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ip(s string) net.IP { return net.ParseIP(s).To4() }

func TestPartitioner_AddAndNodes(t *testing.T) {
	p := New()
	require.NoError(t, p.AddNode(ip("192.168.0.1")))
	require.NoError(t, p.AddNode(ip("192.168.0.2")))

	nodes := p.Nodes()
	assert.Len(t, nodes, 2)
	assert.True(t, p.Contains(ip("192.168.0.1")))
	assert.True(t, p.Contains(ip("192.168.0.2")))
	assert.False(t, p.Contains(ip("192.168.0.3")))
}

func TestPartitioner_AddNode_AlreadyExists(t *testing.T) {
	p := New()
	require.NoError(t, p.AddNode(ip("192.168.0.1")))
	assert.Error(t, p.AddNode(ip("192.168.0.1")))
}

func TestPartitioner_RemoveNode_NotFound(t *testing.T) {
	p := New()
	_, err := p.RemoveNode(ip("192.168.0.1"))
	assert.Error(t, err)
}

func TestPartitioner_RemoveNode(t *testing.T) {
	p := New()
	require.NoError(t, p.AddNode(ip("192.168.0.1")))
	removed, err := p.RemoveNode(ip("192.168.0.1"))
	require.NoError(t, err)
	assert.Equal(t, ip("192.168.0.1"), removed)
	assert.False(t, p.Contains(ip("192.168.0.1")))
}

func TestPartitioner_Owner_EmptyPartitioner(t *testing.T) {
	p := New()
	_, err := p.Owner("some-key")
	assert.Error(t, err)
}

func TestPartitioner_Successors_NoDuplicatesSkipCurrent(t *testing.T) {
	p := New()
	require.NoError(t, p.AddNode(ip("192.168.0.1")))
	require.NoError(t, p.AddNode(ip("192.168.0.2")))
	require.NoError(t, p.AddNode(ip("192.168.0.3")))
	require.NoError(t, p.AddNode(ip("192.168.0.4")))

	start := ip("192.168.0.2")
	successors, err := p.Successors(start, 2)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(successors), 2)
	seen := map[string]bool{}
	for _, s := range successors {
		assert.False(t, s.Equal(start))
		assert.False(t, seen[s.String()])
		seen[s.String()] = true
	}
}

func TestPartitioner_Successors_EmptyPartitioner(t *testing.T) {
	p := New()
	_, err := p.Successors(ip("192.168.0.1"), 2)
	assert.Error(t, err)
}

func TestPartitioner_String(t *testing.T) {
	p := New()
	assert.Equal(t, "No nodes available", p.String())
	require.NoError(t, p.AddNode(ip("192.168.0.1")))
	assert.Contains(t, p.String(), "192.168.0.1")
}
