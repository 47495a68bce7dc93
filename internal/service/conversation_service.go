package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/access"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ConversationService manages the append-only chat thread per ticket.
type ConversationService struct {
	tickets    repository.TicketRepository
	messages   repository.ChatMessageRepository
	dispatcher events.Dispatcher
}

// NewConversationService constructs the service.
func NewConversationService(tickets repository.TicketRepository, messages repository.ChatMessageRepository, dispatcher events.Dispatcher) *ConversationService {
	return &ConversationService{tickets: tickets, messages: messages, dispatcher: dispatcher}
}

// Post appends a message to the ticket thread. Anyone who can view the
// ticket can write to its thread; empty content is rejected.
func (s *ConversationService) Post(ctx context.Context, author *domain.User, ticketID, content string, kind domain.MessageKind) (*domain.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("message content required", nil)
	}

	ticket, err := s.loadVisible(ctx, author, ticketID)
	if err != nil {
		return nil, err
	}

	msg := &domain.ChatMessage{
		TicketID: ticket.ID,
		AuthorID: author.ID,
		Content:  content,
		Kind:     kind,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventMessagePosted,
			TicketID:  ticket.ID,
			ActorID:   author.ID,
			Timestamp: time.Now(),
			Payload: events.MessagePostedPayload{
				Message: *msg,
				Author:  author.Username,
				Role:    author.Role,
			},
		})
	}
	return msg, nil
}

// List returns the thread ordered by creation time ascending.
func (s *ConversationService) List(ctx context.Context, requester *domain.User, ticketID string) ([]domain.ChatMessage, error) {
	if _, err := s.loadVisible(ctx, requester, ticketID); err != nil {
		return nil, err
	}
	return s.messages.ListByTicket(ctx, ticketID)
}

func (s *ConversationService) loadVisible(ctx context.Context, user *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	if !access.CanView(user, ticket) {
		return nil, apperrors.NewForbidden("ticket access not permitted")
	}
	return ticket, nil
}
