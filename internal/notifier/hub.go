package notifier

import (
	"encoding/json"
	"sync"

	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/metrics"
)

// RoomOperators is the broadcast channel for kitchen/admin clients. Each
// order additionally has its own room, joined by the customer tracking it.
const RoomOperators = "admin"

func OrderRoom(orderID string) string { return "order:" + orderID }

// Frame is what subscribers receive: the event name plus the payload whose
// field names are fixed by the event contract.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub owns the room membership registry. Membership exists only for the
// lifetime of a live connection; nothing is replayed to late joiners.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*Client]struct{}

	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewHub(m *metrics.Metrics, lg *logger.Logger) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		metrics: m,
		logger:  lg,
	}
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.joined[room] = struct{}{}
}

// drop removes the client from every room it joined. Called once, from the
// read pump's exit path.
func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range c.joined {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	close(c.send)
}

// Broadcast sends a frame to every member of a room. Delivery is at-most-once
// best-effort: a client whose send buffer is full misses the frame rather
// than stalling the caller.
func (h *Hub) Broadcast(room string, frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("frame_marshal_failed", err, map[string]any{"event": frame.Event})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[room] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("subscriber_slow_dropped_frame", map[string]any{"room": room, "event": frame.Event})
		}
	}
}
