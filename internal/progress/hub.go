package progress

import "sync"

const subscriberBuffer = 64

// Hub is a Sink that fans events out to any number of subscribers. Slow
// subscribers lose events instead of stalling the run. A subscriber that joins
// late first receives the most recent stage event.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	last   *Event
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if e.Kind == KindStage {
		ev := e
		h.last = &ev
	}
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a channel of events and a function that releases it. The
// channel is closed when the hub closes or the subscription is cancelled.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		if h.last != nil {
			ch <- *h.last
		}
		close(ch)
		return ch, func() {}
	}
	if h.last != nil {
		ch <- *h.last
	}
	h.subs[ch] = struct{}{}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Close ends every subscription. Further publishes are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}
