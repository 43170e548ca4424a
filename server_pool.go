package memcache

import (
	"context"
	"sync"
	"time"

	"github.com/arlobridge/gomemcache/protocol"
)

// serverPool owns the node set, the locator, and a background scheduler
// that probes Dead nodes every dead_timeout (spec.md §4.5).
type serverPool struct {
	config Config
	codec  protocol.Codec

	mu      sync.RWMutex
	nodes   map[string]*node
	locator NodeLocator

	dispatcher *nodeFailedDispatcher
	lastState  map[string]NodeState

	stopReconnect chan struct{}
	closeOnce     sync.Once
}

func newServerPool(config Config) (*serverPool, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()
	codec := config.codec()

	sp := &serverPool{
		config:        config,
		codec:         codec,
		nodes:         make(map[string]*node),
		dispatcher:    newNodeFailedDispatcher(),
		lastState:     make(map[string]NodeState),
		stopReconnect: make(chan struct{}),
	}

	addrs := make([]string, 0, len(config.Servers))
	for _, s := range config.Servers {
		addr := s.String()
		addrs = append(addrs, addr)
		n, err := newNode(addr, codec, config.SocketPool, config.Authentication.provider(), config.failurePolicy(addr))
		if err != nil {
			sp.Shutdown()
			return nil, err
		}
		sp.nodes[addr] = n
		sp.lastState[addr] = n.state()
	}
	sp.locator = config.NodeLocatorFactory(addrs)

	go sp.reconnectLoop()

	return sp, nil
}

// locate returns the node owning key, or false if the ring is empty or the
// owning node is currently Dead (spec.md §4.5: "locate(key) -> Option<Node>").
func (sp *serverPool) locate(key string) (*node, bool) {
	sp.mu.RLock()
	defer sp.mu.RUnlock()

	addr, ok := sp.locator.NodeFor(key)
	if !ok {
		return nil, false
	}
	n, ok := sp.nodes[addr]
	if !ok || n.state() == Dead {
		return nil, false
	}
	return n, true
}

// nodeForAddr returns the node at addr regardless of its liveness state,
// used by the multi-node fan-out which bucket keys by node address first.
func (sp *serverPool) nodeForAddr(addr string) (*node, bool) {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	n, ok := sp.nodes[addr]
	return n, ok
}

func (sp *serverPool) addrFor(key string) (string, bool) {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.locator.NodeFor(key)
}

// workingNodes returns every node currently Alive (spec.md §4.5:
// "working_nodes() -> iter<Node>").
func (sp *serverPool) workingNodes() []*node {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	out := make([]*node, 0, len(sp.nodes))
	for _, n := range sp.nodes {
		if n.state() == Alive {
			out = append(out, n)
		}
	}
	return out
}

// allNodes returns every configured node regardless of liveness, used by
// the reconnection scheduler and AllPoolStats.
func (sp *serverPool) allNodes() []*node {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	out := make([]*node, 0, len(sp.nodes))
	for _, n := range sp.nodes {
		out = append(out, n)
	}
	return out
}

// Subscribe registers ch for NodeFailed events.
func (sp *serverPool) Subscribe(ch chan<- NodeFailedEvent) int {
	return sp.dispatcher.Subscribe(ch)
}

func (sp *serverPool) Unsubscribe(id int) {
	sp.dispatcher.Unsubscribe(id)
}

// reconnectLoop probes every Dead node once per DeadTimeout tick, flipping
// it back to Alive on a successful NoOp/Version (spec.md §4.5).
func (sp *serverPool) reconnectLoop() {
	interval := sp.config.SocketPool.DeadTimeout
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-sp.stopReconnect:
			return
		case <-ticker.C:
			sp.tick()
		}
	}
}

// tick probes every Dead node once and logs/emits any liveness transition
// observed since the previous tick (spec.md §4.6 health check; B.1's
// node-down/node-recovered/probe-failed diagnostics).
func (sp *serverPool) tick() {
	for _, n := range sp.allNodes() {
		previous := sp.transitionState(n.addr, n.state())

		if n.state() != Dead {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), sp.config.SocketPool.ConnectionTimeout)
		err := n.probe(ctx)
		cancel()
		if err != nil {
			sp.config.Logger.Printf("memcache: probe failed for %s: %v", n.addr, err)
			if previous == Alive {
				sp.dispatcher.emit(NodeFailedEvent{Addr: n.addr, Err: err})
			}
			continue
		}
		sp.config.Logger.Printf("memcache: node %s recovered", n.addr)
		sp.transitionState(n.addr, n.state())
	}
}

// transitionState records current as addr's last-seen state, returns the
// previously recorded state, and logs a node-down transition the first
// time it's observed.
func (sp *serverPool) transitionState(addr string, current NodeState) NodeState {
	sp.mu.Lock()
	previous := sp.lastState[addr]
	sp.lastState[addr] = current
	sp.mu.Unlock()

	if previous == Alive && current == Dead {
		sp.config.Logger.Printf("memcache: node %s down", addr)
	}
	return previous
}

// Shutdown closes every node's pool and stops the reconnect scheduler.
// In-flight operations observe a transport error (spec.md §4.5).
func (sp *serverPool) Shutdown() {
	sp.closeOnce.Do(func() {
		close(sp.stopReconnect)
		sp.mu.Lock()
		defer sp.mu.Unlock()
		for _, n := range sp.nodes {
			n.close()
		}
	})
}
