package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Notification kinds stored in the inbox.
const (
	NotificationMessage  = "ticket_message"
	NotificationAssigned = "ticket_assigned"
	NotificationStatus   = "ticket_status"
)

// NotificationSink flags something for a user in the application.
type NotificationSink interface {
	Notify(ctx context.Context, userID, ticketID, kind, text string) error
}

// NotificationService turns domain events into in-app notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	inbox      repository.NotificationRepository
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, inbox repository.NotificationRepository, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		inbox:      inbox,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketMessageAdded, n.handleTicketMessageAdded)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

// Notify stores a notification in the user's inbox.
func (n *NotificationService) Notify(ctx context.Context, userID, ticketID, kind, text string) error {
	if userID == "" {
		return nil
	}
	return n.inbox.Push(ctx, &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		TicketID:  ticketID,
		Kind:      kind,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
}

// List returns the newest notifications for the user.
func (n *NotificationService) List(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > n.cfg.InboxLimit {
		limit = n.cfg.InboxLimit
	}
	return n.inbox.List(ctx, userID, limit)
}

// Clear empties the user's inbox.
func (n *NotificationService) Clear(ctx context.Context, userID string) error {
	return n.inbox.Clear(ctx, userID)
}

func (n *NotificationService) handleTicketMessageAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketMessageAddedPayload)
	if !ok || payload.RecipientUserID == "" {
		return nil
	}
	text := fmt.Sprintf("New message on %s: %s", ticketLabel(event), payload.BodyPreview)
	return n.Notify(ctx, payload.RecipientUserID, event.TicketID, NotificationMessage, text)
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	n.logger.Debug("ticket assigned notification",
		zap.String("ticket_id", event.TicketID),
		zap.String("user_id", payload.AssignedUserID),
		zap.Bool("automatic", payload.Automatic))
	text := fmt.Sprintf("Ticket %s was assigned to you", ticketLabel(event))
	return n.Notify(ctx, payload.AssignedUserID, event.TicketID, NotificationAssigned, text)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok || payload.RecipientUserID == "" {
		return nil
	}
	text := fmt.Sprintf("Ticket %s moved from %s to %s", ticketLabel(event), payload.OldStatus, payload.NewStatus)
	return n.Notify(ctx, payload.RecipientUserID, event.TicketID, NotificationStatus, text)
}

func ticketLabel(event events.Event) string {
	if event.TicketKey != "" {
		return event.TicketKey
	}
	return event.TicketID
}
