package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/sla"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Department   string                `json:"department"`
	Priority     domain.TicketPriority `json:"priority"`
	Observations string                `json:"observations"`
}

// UpdateTicketRequest is a partial update. Absent fields stay unchanged.
// Sending assignee_id as an empty string clears the assignment.
type UpdateTicketRequest struct {
	Title        *string                `json:"title"`
	Description  *string                `json:"description"`
	Department   *string                `json:"department"`
	Observations *string                `json:"observations"`
	Status       *domain.TicketStatus   `json:"status"`
	Priority     *domain.TicketPriority `json:"priority"`
	AssigneeID   *string                `json:"assignee_id"`
}

// SLAInfo reports deadline tracking for one ticket.
type SLAInfo struct {
	Deadline time.Time  `json:"deadline"`
	Status   sla.Status `json:"status"`
	Violated bool       `json:"violated"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Department  string                `json:"department"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	RequesterID string                `json:"requester_id"`
	AssigneeID  *string               `json:"assignee_id"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	SLA         SLAInfo               `json:"sla"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Department   string                `json:"department"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	Observations string                `json:"observations"`
	RequesterID  string                `json:"requester_id"`
	AssigneeID   *string               `json:"assignee_id"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	ResolvedAt   *time.Time            `json:"resolved_at"`
	ClosedAt     *time.Time            `json:"closed_at"`
	SLA          SLAInfo               `json:"sla"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Content string `json:"content"`
}

// ChatMessageResponse represents one thread entry.
type ChatMessageResponse struct {
	ID        string             `json:"id"`
	TicketID  string             `json:"ticket_id"`
	AuthorID  string             `json:"author_id"`
	Content   string             `json:"content"`
	Kind      domain.MessageKind `json:"kind"`
	CreatedAt time.Time          `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID           string    `json:"id"`
	TicketID     string    `json:"ticket_id"`
	UploadedByID string    `json:"uploaded_by_id"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedAt   time.Time `json:"uploaded_at"`
}
