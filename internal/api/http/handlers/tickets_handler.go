package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketsHandler serves ticket CRUD and the per-ticket message thread.
type TicketsHandler struct {
	tickets       *service.TicketService
	conversations *service.ConversationService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, conversations *service.ConversationService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, conversations: conversations}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Title == "" || req.Description == "" || req.Department == "" {
		return apperrors.NewValidationError("title, description, department required", nil)
	}

	ticket, err := h.tickets.Create(c.Context(), user, service.TicketCreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Department:   req.Department,
		Priority:     req.Priority,
		Observations: req.Observations,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket, time.Now())})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}

	tickets, err := h.tickets.List(c.Context(), user, parseTicketQuery(c))
	if err != nil {
		return err
	}
	now := time.Now()
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i], now))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, err := h.tickets.Get(c.Context(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, time.Now())})
}

// UpdateTicket PUT /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.Update(c.Context(), user, c.Params("id"), service.TicketUpdateInput{
		Title:        req.Title,
		Description:  req.Description,
		Department:   req.Department,
		Observations: req.Observations,
		Status:       req.Status,
		Priority:     req.Priority,
		AssigneeID:   req.AssigneeID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, time.Now())})
}

// ListMessages GET /api/tickets/:id/messages.
func (h *TicketsHandler) ListMessages(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	messages, err := h.conversations.List(c.Context(), user, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ChatMessageResponse, 0, len(messages))
	for i := range messages {
		items = append(items, chatMessageResponse(&messages[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// PostMessage POST /api/tickets/:id/messages.
func (h *TicketsHandler) PostMessage(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	msg, err := h.conversations.Post(c.Context(), user, c.Params("id"), req.Content, domain.MessageKindUser)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": chatMessageResponse(msg)})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if status := c.Query("status"); status != "" {
		s := domain.TicketStatus(status)
		filter.Status = &s
	}
	if priority := c.Query("priority"); priority != "" {
		p := domain.TicketPriority(priority)
		filter.Priority = &p
	}
	if department := c.Query("department"); department != "" {
		filter.Department = &department
	}
	if assignee := c.Query("assigned_to"); assignee != "" {
		filter.AssigneeID = &assignee
	} else if assignee := c.Query("assignee_id"); assignee != "" {
		filter.AssigneeID = &assignee
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func slaInfo(ticket *domain.Ticket, now time.Time) dto.SLAInfo {
	return dto.SLAInfo{
		Deadline: ticket.SLADeadline,
		Status:   sla.Evaluate(now, ticket.SLADeadline, ticket.Status),
		Violated: ticket.SLAViolated,
	}
}

func ticketSummary(ticket *domain.Ticket, now time.Time) dto.TicketSummary {
	return dto.TicketSummary{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Department:  ticket.Department,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		RequesterID: ticket.RequesterID,
		AssigneeID:  ticket.AssigneeID,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		SLA:         slaInfo(ticket, now),
	}
}

func ticketDetail(ticket *domain.Ticket, now time.Time) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		ID:           ticket.ID,
		Title:        ticket.Title,
		Description:  ticket.Description,
		Department:   ticket.Department,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		Observations: ticket.Observations,
		RequesterID:  ticket.RequesterID,
		AssigneeID:   ticket.AssigneeID,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
		ResolvedAt:   ticket.ResolvedAt,
		ClosedAt:     ticket.ClosedAt,
		SLA:          slaInfo(ticket, now),
	}
}

func chatMessageResponse(msg *domain.ChatMessage) dto.ChatMessageResponse {
	return dto.ChatMessageResponse{
		ID:        msg.ID,
		TicketID:  msg.TicketID,
		AuthorID:  msg.AuthorID,
		Content:   msg.Content,
		Kind:      msg.Kind,
		CreatedAt: msg.CreatedAt,
	}
}
