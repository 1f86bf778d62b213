package realtime

import (
	"sync"

	"MarketConcierge/internal/metrics"
	"MarketConcierge/internal/model"
)

// Hub fans out insight snapshots to subscribers keyed by symbol. Each
// subscriber channel holds at most one pending value; a slow reader only
// ever sees the latest snapshot.
type Hub struct {
	mu     sync.Mutex
	latest map[string]model.Insight
	subs   map[string]map[*subscriber]struct{}
}

type subscriber struct {
	ch chan model.Insight
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		latest: make(map[string]model.Insight),
		subs:   make(map[string]map[*subscriber]struct{}),
	}
}

// Subscribe registers for updates on key. The latest known snapshot, if
// any, is delivered immediately. The returned func unsubscribes and
// closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(key string) (<-chan model.Insight, func()) {
	s := &subscriber{ch: make(chan model.Insight, 1)}

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*subscriber]struct{})
	}
	h.subs[key][s] = struct{}{}
	if snap, ok := h.latest[key]; ok {
		s.ch <- snap
	}
	h.mu.Unlock()
	metrics.RealtimeSubscribers.Inc()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[key], s)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
			close(s.ch)
			h.mu.Unlock()
			metrics.RealtimeSubscribers.Dec()
		})
	}
}

// Publish records insight as the latest snapshot for its symbol and
// delivers it to every subscriber of that symbol without blocking.
func (h *Hub) Publish(insight model.Insight) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest[insight.Symbol] = insight
	for s := range h.subs[insight.Symbol] {
		// drop a stale pending value, keep the newest
		select {
		case <-s.ch:
		default:
		}
		s.ch <- insight
	}
}

// Latest returns the last published snapshot for key.
func (h *Hub) Latest(key string) (model.Insight, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	snap, ok := h.latest[key]
	return snap, ok
}

// Subscribers returns the number of subscribers for key.
func (h *Hub) Subscribers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}
