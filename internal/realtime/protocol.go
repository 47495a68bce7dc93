// Package realtime implements the websocket fan-out layer: a room-based
// hub plus the Fiber handler speaking the client protocol.
package realtime

// Client-initiated actions.
const (
	ActionJoinTicket  = "join_ticket"
	ActionLeaveTicket = "leave_ticket"
	ActionSendMessage = "send_message"
	ActionTyping      = "typing"
)

// Server-emitted events.
const (
	EventConnected    = "connected"
	EventJoinedTicket = "joined_ticket"
	EventLeftTicket   = "left_ticket"
	EventNewMessage   = "new_message"
	EventUserTyping   = "user_typing"
	EventError        = "error"
)

// inboundFrame is what clients send over the socket.
type inboundFrame struct {
	Action   string `json:"action"`
	TicketID string `json:"ticket_id,omitempty"`
	Content  string `json:"content,omitempty"`
}

// outboundFrame is the envelope for everything the server pushes.
type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// typingNotice is the payload for user_typing events.
type typingNotice struct {
	TicketID string `json:"ticket_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// TicketRoom returns the room key for a ticket thread.
func TicketRoom(ticketID string) string {
	return "ticket:" + ticketID
}

// RoomTechnicians receives ticket lifecycle events for staff views.
const RoomTechnicians = "technicians"
