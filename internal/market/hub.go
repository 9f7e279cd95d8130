package market

import "sync"

// Hub is the process-wide publish/subscribe point for favorites snapshots.
// Each subscriber has a one-slot channel: a slow subscriber only ever sees
// the latest snapshot, and Publish never blocks.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// Subscription receives favorites snapshots on C until Close.
type Subscription struct {
	C   <-chan []string
	ch  chan []string
	hub *Hub
}

// NewHub creates a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new subscriber. Subscribing to a closed hub returns
// a subscription whose channel is already closed.
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan []string, 1)
	s := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

// Publish delivers ids to every subscriber, replacing any snapshot a
// subscriber has not consumed yet.
func (h *Hub) Publish(ids []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for s := range h.subs {
		snapshot := append([]string(nil), ids...)
		select {
		case s.ch <- snapshot:
		default:
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- snapshot:
			default:
			}
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscriber channel. Publish after Close is a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		close(s.ch)
		delete(h.subs, s)
	}
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}
