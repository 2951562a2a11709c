package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/smartsaver/smartsaver/internal/app/ledger"
)

// ─── Live Event Feed ────────────────────────────────────────────────────────
// Settlements, badge unlocks and goal completions are pushed to connected
// clients as Server-Sent Events on GET /api/events/live.

// EventHub fans ledger events out to SSE clients. It implements
// ledger.Notifier.
type EventHub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewEventHub creates a new event broadcast hub.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[chan []byte]struct{}),
	}
}

// Publish sends an event to all connected clients.
func (h *EventHub) Publish(ev ledger.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			// Client too slow, drop message
		}
	}
}

// Subscribe registers a new client. Returns the channel and an unsubscribe func.
func (h *EventHub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleEventsSSE serves the live event feed.
// GET /api/events/live
func (h *EventHub) HandleEventsSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ch, unsub := h.Subscribe()
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
