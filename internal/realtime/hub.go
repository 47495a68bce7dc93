package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// Hub tracks room membership and pushes frames to subscribed clients.
// Sends never block: a client whose queue is full has the frame dropped
// and counted, so one slow consumer cannot stall the rest of the room.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewHub constructs an empty hub.
func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

// Join subscribes the client to a room.
func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// Leave unsubscribes the client from a room.
func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, c)
}

// Disconnect removes the client from every room and closes its queue.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range c.rooms {
		h.leaveLocked(room, c)
	}
	close(c.send)
}

func (h *Hub) leaveLocked(room string, c *Client) {
	delete(c.rooms, room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// InRoom reports whether the client is subscribed to the room.
func (h *Hub) InRoom(room string, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c]
	return ok
}

// Publish sends an event to every client in the room.
func (h *Hub) Publish(room, event string, data any) {
	h.publish(room, event, data, nil)
}

// PublishExcept sends an event to the room, skipping one client. Used
// for typing so the typist does not echo to themselves.
func (h *Hub) PublishExcept(room, event string, data any, except *Client) {
	h.publish(room, event, data, except)
}

func (h *Hub) publish(room, event string, data any, except *Client) {
	raw, err := json.Marshal(outboundFrame{Event: event, Data: data})
	if err != nil {
		h.logger.Error("marshal realtime frame", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		if c == except {
			continue
		}
		select {
		case c.send <- raw:
		default:
			h.metrics.RecordDroppedEvent(room)
			h.logger.Warn("dropped realtime event, client queue full",
				zap.String("room", room),
				zap.String("event", event),
				zap.String("user_id", c.user.ID))
		}
	}
}

// ToTicket implements the broadcaster used by the notification bridge.
func (h *Hub) ToTicket(ticketID, event string, data any) {
	h.Publish(TicketRoom(ticketID), event, data)
}

// ToTechnicians implements the broadcaster used by the notification bridge.
func (h *Hub) ToTechnicians(event string, data any) {
	h.Publish(RoomTechnicians, event, data)
}
