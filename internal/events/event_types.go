package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventMessagePosted         EventType = "message_posted"
	EventAttachmentUploaded    EventType = "attachment_uploaded"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title      string                `json:"title"`
	Department string                `json:"department"`
	Priority   domain.TicketPriority `json:"priority"`
	Requester  string                `json:"requester"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
	Deadline    time.Time             `json:"sla_deadline"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID *string `json:"assignee_id,omitempty"`
}

// MessagePostedPayload payload.
type MessagePostedPayload struct {
	Message domain.ChatMessage `json:"message"`
	Author  string             `json:"author"`
	Role    domain.UserRole    `json:"author_role"`
}

// AttachmentUploadedPayload payload.
type AttachmentUploadedPayload struct {
	AttachmentID string `json:"attachment_id"`
	OriginalName string `json:"original_name"`
	SizeBytes    int64  `json:"size_bytes"`
}
