package memcache

import "sync"

// NodeFailedEvent is emitted whenever a node's FailurePolicy transitions it
// to Dead (spec.md §4.6).
type NodeFailedEvent struct {
	Addr string
	Err  error
}

// nodeFailedDispatcher multicasts NodeFailed events to subscribers. Events
// are dispatched without holding any pool or node lock, so a slow
// subscriber cannot stall an operation in flight.
type nodeFailedDispatcher struct {
	mu          sync.Mutex
	subscribers map[int]chan<- NodeFailedEvent
	nextID      int
}

func newNodeFailedDispatcher() *nodeFailedDispatcher {
	return &nodeFailedDispatcher{subscribers: make(map[int]chan<- NodeFailedEvent)}
}

// Subscribe registers ch to receive future events and returns a token for
// Unsubscribe. ch should be buffered; a full channel's send is dropped
// rather than blocking the dispatcher.
func (d *nodeFailedDispatcher) Subscribe(ch chan<- NodeFailedEvent) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.subscribers[id] = ch
	return id
}

func (d *nodeFailedDispatcher) Unsubscribe(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.subscribers, id)
}

func (d *nodeFailedDispatcher) emit(ev NodeFailedEvent) {
	d.mu.Lock()
	subs := make([]chan<- NodeFailedEvent, 0, len(d.subscribers))
	for _, ch := range d.subscribers {
		subs = append(subs, ch)
	}
	d.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
