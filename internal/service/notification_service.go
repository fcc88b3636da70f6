package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/legal-intake/internal/config"
	"github.com/spec-kit/legal-intake/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		logger: logger,
		cfg:    cfg,
	}
}

// EventTypes lists the events that produce notifications.
func (n *NotificationService) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketReplied,
	}
}

// Handle emits the notification for one event.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.EventTicketCreated:
		return n.handleTicketCreated(ctx, event)
	case events.EventTicketStatusChanged:
		return n.handleTicketStatusChanged(ctx, event)
	case events.EventTicketReplied:
		return n.handleTicketReplied(ctx, event)
	}
	return nil
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// The ticket owner is the audience of a reply.
func (n *NotificationService) handleTicketReplied(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketRepliedPayload)
	n.logger.Info("TicketReplied",
		zap.String("ticket_id", event.TicketID),
		zap.String("owner_id", payload.OwnerID),
		zap.String("lawyer_id", payload.LawyerID))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
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
