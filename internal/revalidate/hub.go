// Package revalidate pushes cache-revalidation hints to the presentation
// layer over WebSocket. A hint tells the renderer which entity changed and
// which paths should be re-fetched; delivery is fire-and-forget and never a
// correctness dependency of the ledger.
package revalidate

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hint names an entity that changed and the paths whose cached renderings
// are now stale.
type Hint struct {
	Entity string   `json:"entity"`
	Action string   `json:"action"`
	ID     string   `json:"id,omitempty"`
	Paths  []string `json:"paths,omitempty"`
}

// Hub maintains the set of active WebSocket subscribers and broadcasts
// hints to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a subscriber to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a subscriber and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a hint to every subscriber. Slow subscribers are skipped
// rather than blocking the caller.
func (h *Hub) Broadcast(hint Hint) {
	data, err := json.Marshal(hint)
	if err != nil {
		h.logger.Error("marshal revalidation hint", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Subscriber buffer is full; drop the hint, it is advisory only
		}
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
