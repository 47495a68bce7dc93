package realtime

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/access"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// Handler upgrades websocket connections and runs the per-connection
// protocol loop.
type Handler struct {
	hub           *Hub
	tokens        *auth.TokenManager
	users         repository.UserRepository
	tickets       repository.TicketRepository
	conversations *service.ConversationService
	logger        *zap.Logger
}

// NewHandler constructs the handler.
func NewHandler(
	hub *Hub,
	tokens *auth.TokenManager,
	users repository.UserRepository,
	tickets repository.TicketRepository,
	conversations *service.ConversationService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		hub:           hub,
		tokens:        tokens,
		users:         users,
		tickets:       tickets,
		conversations: conversations,
		logger:        logger,
	}
}

// Upgrade gates the route so only websocket upgrade requests reach the
// connection handler.
func (h *Handler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve returns the websocket connection handler. Browsers cannot set
// headers on the upgrade request, so the token rides a query parameter.
func (h *Handler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		user, ok := h.authenticate(conn)
		if !ok {
			_ = conn.WriteJSON(outboundFrame{Event: EventError, Data: fiber.Map{"message": "authentication failed"}})
			_ = conn.Close()
			return
		}

		client := newClient(conn, user)
		if user.Role != domain.RoleCollaborator {
			h.hub.Join(RoomTechnicians, client)
		}
		go client.writeLoop()
		client.push(EventConnected, fiber.Map{"user_id": user.ID, "username": user.Username})

		h.readLoop(client)

		h.hub.Disconnect(client)
		_ = conn.Close()
	})
}

func (h *Handler) authenticate(conn *websocket.Conn) (*domain.User, bool) {
	token := conn.Query("token")
	if token == "" {
		return nil, false
	}
	claims, err := h.tokens.ParseToken(token)
	if err != nil {
		return nil, false
	}
	user, err := h.users.GetByID(context.Background(), claims.UserID)
	if err != nil || !user.IsActive {
		return nil, false
	}
	return user, true
}

func (h *Handler) readLoop(client *Client) {
	for {
		var frame inboundFrame
		if err := client.conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Action {
		case ActionJoinTicket:
			h.handleJoin(client, frame.TicketID)
		case ActionLeaveTicket:
			h.hub.Leave(TicketRoom(frame.TicketID), client)
			client.push(EventLeftTicket, fiber.Map{"ticket_id": frame.TicketID})
		case ActionSendMessage:
			h.handleSendMessage(client, frame)
		case ActionTyping:
			h.handleTyping(client, frame.TicketID)
		default:
			client.push(EventError, fiber.Map{"message": "unknown action"})
		}
	}
}

// handleJoin re-checks visibility at join time. A token can outlive a
// role change, so membership is never granted on the claims alone.
func (h *Handler) handleJoin(client *Client, ticketID string) {
	if ticketID == "" {
		client.push(EventError, fiber.Map{"message": "ticket_id required"})
		return
	}
	ticket, err := h.tickets.GetByID(context.Background(), ticketID)
	if err != nil {
		if err == pgx.ErrNoRows {
			client.push(EventError, fiber.Map{"message": "ticket not found"})
		} else {
			h.logger.Error("load ticket for join", zap.String("ticket_id", ticketID), zap.Error(err))
			client.push(EventError, fiber.Map{"message": "internal error"})
		}
		return
	}
	if !access.CanView(client.user, ticket) {
		client.push(EventError, fiber.Map{"message": "ticket access not permitted"})
		return
	}
	h.hub.Join(TicketRoom(ticketID), client)
	client.push(EventJoinedTicket, fiber.Map{"ticket_id": ticketID})
}

// handleSendMessage persists through the conversation service; the
// room broadcast then arrives through the notification bridge like any
// HTTP-posted message.
func (h *Handler) handleSendMessage(client *Client, frame inboundFrame) {
	if _, err := h.conversations.Post(context.Background(), client.user, frame.TicketID, frame.Content, domain.MessageKindUser); err != nil {
		client.push(EventError, fiber.Map{"message": err.Error()})
	}
}

func (h *Handler) handleTyping(client *Client, ticketID string) {
	room := TicketRoom(ticketID)
	if !h.hub.InRoom(room, client) {
		return
	}
	h.hub.PublishExcept(room, EventUserTyping, typingNotice{
		TicketID: ticketID,
		UserID:   client.user.ID,
		Username: client.user.Username,
	}, client)
}
