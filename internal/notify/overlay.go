package notify

import (
	"sync"

	"tempo/internal/metrics"
)

// Hub is the in-process broadcast channel consumed by overlay collaborators.
// Sends never block; a subscriber that stops draining loses alerts rather
// than stalling delivery.
type Hub struct {
	mu   sync.Mutex
	subs []chan Alert
}

func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers a new observer channel. The returned cancel function
// removes and closes it.
func (h *Hub) Subscribe(buffer int) (<-chan Alert, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Alert, buffer)

	h.mu.Lock()
	h.subs = append(h.subs, ch)
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		for i, sub := range h.subs {
			if sub == ch {
				h.subs = append(h.subs[:i], h.subs[i+1:]...)
				close(ch)
				break
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Deliver broadcasts the notice's title and body to every subscriber.
func (h *Hub) Deliver(n Notice) error {
	alert := Alert{Title: n.Title, Body: n.Body}

	h.mu.Lock()
	subs := append([]chan Alert(nil), h.subs...)
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- alert:
		default:
		}
	}

	metrics.DeliveriesTotal.WithLabelValues("overlay").Inc()
	return nil
}
