package events

import "sync"

// defaultSubscriberBuffer is the per-subscriber channel buffer size.
// Grounded on server/a2a's taskBroadcaster (subscriberBuffer = 64), generalized
// into the EventStore-agnostic broadcast primitive the spec calls for in §9.
const defaultSubscriberBuffer = 64

// Hub is a broadcast primitive whose Subscribe call registers the new
// reader synchronously, under the same lock Publish uses to snapshot
// recipients. This closes the race a naive "spawn a goroutine, then
// return" fan-out would leave open: once Subscribe returns, the returned
// Subscription is guaranteed to receive every event Published afterward
// (spec.md §5, "Subscription semantics").
//
// A lagging subscriber whose buffer fills is dropped — not the publisher,
// and not other subscribers — per the backpressure policy in spec.md §5.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
}

// Subscription is a live handle returned by Hub.Subscribe.
type Subscription struct {
	id  uint64
	hub *Hub
	ch  chan *Event
}

// NewHub creates an empty broadcast hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a new reader and returns its handle. Any event
// Published after Subscribe returns is guaranteed to be delivered (subject
// to the subscriber draining fast enough to avoid overflow-eviction).
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{
		hub: h,
		ch:  make(chan *Event, defaultSubscriberBuffer),
	}
	if h.closed {
		close(sub.ch)
		return sub
	}
	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	return sub
}

// C returns the channel on which this subscriber receives events. It is
// closed when the hub closes or the subscription is dropped.
func (s *Subscription) C() <-chan *Event {
	return s.ch
}

// Unsubscribe removes the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.hub.remove(s.id)
}

func (h *Hub) remove(id uint64) {
	if id == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// Publish delivers e to every current subscriber, synchronously, in the
// order subscribers were registered. It must be called from the agent's
// single processor goroutine so that a subscriber observing event n also
// observes a getState() snapshot consistent with events 0..n (spec.md §4.3
// steps 2-5, the atomic unit).
func (h *Hub) Publish(e *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for id, sub := range h.subs {
		select {
		case sub.ch <- e:
		default:
			// Lagging subscriber: drop the subscription, not the event.
			delete(h.subs, id)
			close(sub.ch)
		}
	}
}

// Close closes every current subscriber's channel (after which they
// observe channel closure — i.e. stream completion) and rejects future
// subscriptions with an already-closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}
