package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

// Broadcaster fans events out to connected websocket clients. The
// realtime hub implements it; a nil broadcaster disables fan-out.
type Broadcaster interface {
	ToTicket(ticketID, event string, data any)
	ToTechnicians(event string, data any)
}

// NotificationService bridges domain events to realtime clients and to
// the stubbed email/webhook channels. Delivery is best effort on every
// channel.
type NotificationService struct {
	dispatcher  events.Dispatcher
	broadcaster Broadcaster
	logger      *zap.Logger
	cfg         config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, broadcaster Broadcaster, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		logger:      logger,
		cfg:         cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventTicketPriorityChanged, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventMessagePosted, n.handleMessagePosted)
	n.dispatcher.Subscribe(events.EventAttachmentUploaded, n.handleAttachmentUploaded)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket created", zap.String("ticket_id", event.TicketID))
	if n.broadcaster != nil {
		n.broadcaster.ToTechnicians("ticket_created", event)
	}
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket updated",
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
	if n.broadcaster != nil {
		n.broadcaster.ToTicket(event.TicketID, "ticket_updated", event)
		n.broadcaster.ToTechnicians("ticket_updated", event)
	}
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleMessagePosted(ctx context.Context, event events.Event) error {
	if n.broadcaster != nil {
		n.broadcaster.ToTicket(event.TicketID, "new_message", event)
	}
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAttachmentUploaded(ctx context.Context, event events.Event) error {
	if n.broadcaster != nil {
		n.broadcaster.ToTicket(event.TicketID, "new_message", event)
	}
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
