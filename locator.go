package memcache

import (
	"sync"

	"github.com/arlobridge/gomemcache/internal/ketama"
)

// NodeLocator maps a wire key to the address of the node that owns it
// (spec.md §4.5). Implementations must be safe for concurrent use.
type NodeLocator interface {
	NodeFor(key string) (addr string, ok bool)
	Rebuild(addrs []string)
}

// KetamaLocator is the default NodeLocator: a 160-point-per-node MD5 ring,
// rebuilt wholesale whenever the server list changes so that removing or
// adding one node only remaps the keys that belonged to it.
type KetamaLocator struct {
	mu   sync.RWMutex
	ring *ketama.Ring
}

// NewKetamaLocator builds a locator over the given addresses.
func NewKetamaLocator(addrs []string) *KetamaLocator {
	return &KetamaLocator{ring: ketama.New(addrs)}
}

func (l *KetamaLocator) NodeFor(key string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ring.NodeFor(key)
}

func (l *KetamaLocator) Rebuild(addrs []string) {
	ring := ketama.New(addrs)
	l.mu.Lock()
	l.ring = ring
	l.mu.Unlock()
}

// singleNodeLocator is the degenerate one-node case: every key maps to the
// same address, and Rebuild is a no-op since there is nothing to balance.
type singleNodeLocator struct {
	addr string
}

// NewSingleNodeLocator builds a locator that always resolves to addr,
// useful for a single-server deployment where ring overhead buys nothing.
func NewSingleNodeLocator(addr string) NodeLocator {
	return &singleNodeLocator{addr: addr}
}

func (l *singleNodeLocator) NodeFor(key string) (string, bool) {
	if l.addr == "" {
		return "", false
	}
	return l.addr, true
}

func (l *singleNodeLocator) Rebuild(addrs []string) {
	if len(addrs) > 0 {
		l.addr = addrs[0]
	}
}
