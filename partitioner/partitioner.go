// Package partitioner implements the consistent-hash ring that maps a partition key to the node
// responsible for storing it, and to the ring-order successors that hold its replicas.
package partitioner

import (
	"net"
	"sort"
	"sync"

	"github.com/rusticdb/rusticdb/rusticerr"
	"github.com/spaolacci/murmur3"
)

// Partitioner is a consistent-hash ring keyed by the murmur3 hash of each node's dotted-quad IP
// address. It is safe for concurrent use.
type Partitioner struct {
	mu    sync.RWMutex
	nodes map[uint64]net.IP
	keys  []uint64 // kept sorted; rebuilt on every mutation
}

// New returns an empty Partitioner.
func New() *Partitioner {
	return &Partitioner{nodes: make(map[uint64]net.IP)}
}

func hashValue(value string) uint64 {
	return uint64(murmur3.Sum32WithSeed([]byte(value), 0))
}

func (p *Partitioner) rebuildKeysLocked() {
	p.keys = make([]uint64, 0, len(p.nodes))
	for k := range p.nodes {
		p.keys = append(p.keys, k)
	}
	sort.Slice(p.keys, func(i, j int) bool { return p.keys[i] < p.keys[j] })
}

// AddNode inserts ip into the ring. It returns rusticerr.NodeAlreadyExists if ip's hash is already
// present.
func (p *Partitioner) AddNode(ip net.IP) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	hash := hashValue(ip.String())
	if _, ok := p.nodes[hash]; ok {
		return rusticerr.NodeAlreadyExists("node %s already exists in the partitioner", ip)
	}
	p.nodes[hash] = ip
	p.rebuildKeysLocked()
	return nil
}

// RemoveNode deletes ip from the ring and returns its stored address, or an error if ip is not a
// member.
func (p *Partitioner) RemoveNode(ip net.IP) (net.IP, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	hash := hashValue(ip.String())
	found, ok := p.nodes[hash]
	if !ok {
		return nil, rusticerr.NodeNotFound("node %s not found in the partitioner", ip)
	}
	delete(p.nodes, hash)
	p.rebuildKeysLocked()
	return found, nil
}

// Contains reports whether ip is a member of the ring.
func (p *Partitioner) Contains(ip net.IP) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.nodes[hashValue(ip.String())]
	return ok
}

// Nodes returns every member IP, in ring order.
func (p *Partitioner) Nodes() []net.IP {
	p.mu.RLock()
	defer p.mu.RUnlock()
	nodes := make([]net.IP, 0, len(p.keys))
	for _, k := range p.keys {
		nodes = append(nodes, p.nodes[k])
	}
	return nodes
}

// Owner returns the IP address of the node that owns value: the first node whose hash is greater
// than or equal to value's hash, wrapping around to the smallest hash if none qualifies.
func (p *Partitioner) Owner(value string) (net.IP, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.keys) == 0 {
		return nil, rusticerr.EmptyPartitioner("partitioner has no nodes")
	}
	hash := hashValue(value)
	i := sort.Search(len(p.keys), func(i int) bool { return p.keys[i] >= hash })
	if i == len(p.keys) {
		i = 0
	}
	return p.nodes[p.keys[i]], nil
}

// Successors returns up to n distinct node IPs following ip around the ring, skipping ip itself
// and without duplicates. If fewer than n other nodes exist, the shorter slice is returned.
func (p *Partitioner) Successors(ip net.IP, n int) ([]net.IP, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.keys) == 0 {
		return nil, rusticerr.EmptyPartitioner("partitioner has no nodes")
	}
	hash := hashValue(ip.String())
	start := sort.Search(len(p.keys), func(i int) bool { return p.keys[i] >= hash })

	successors := make([]net.IP, 0, n)
	seen := map[string]bool{ip.String(): true}
	for i := 0; i < len(p.keys) && len(successors) < n; i++ {
		addr := p.nodes[p.keys[(start+i)%len(p.keys)]]
		if seen[addr.String()] {
			continue
		}
		seen[addr.String()] = true
		successors = append(successors, addr)
	}
	return successors, nil
}

func (p *Partitioner) String() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.keys) == 0 {
		return "No nodes available"
	}
	s := ""
	for i, k := range p.keys {
		if i > 0 {
			s += " -> "
		}
		s += p.nodes[k].String()
	}
	return s
}
