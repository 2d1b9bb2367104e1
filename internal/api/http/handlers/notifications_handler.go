package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// NotificationsHandler exposes the caller's in-app inbox.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// List GET /notifications?limit=.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	items, err := h.notifications.List(c.UserContext(), actor.ID, parseInt(c.Query("limit"), 0))
	if err != nil {
		return err
	}
	resp := make([]dto.NotificationResponse, 0, len(items))
	for _, n := range items {
		resp = append(resp, dto.NotificationResponse{
			ID:        n.ID,
			TicketID:  n.TicketID,
			Kind:      n.Kind,
			Text:      n.Text,
			CreatedAt: n.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Clear DELETE /notifications.
func (h *NotificationsHandler) Clear(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	if err := h.notifications.Clear(c.UserContext(), actor.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
