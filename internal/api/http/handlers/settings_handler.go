package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// SettingsHandler reads and writes runtime settings.
type SettingsHandler struct {
	settings *service.SettingsService
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get GET /admin/settings.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	settings, err := h.settings.Get(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SettingsResponse{AutoAssignEnabled: settings.AutoAssignEnabled}})
}

// Put PUT /admin/settings.
func (h *SettingsHandler) Put(c *fiber.Ctx) error {
	var req dto.SettingsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	settings, err := h.settings.SetAutoAssignEnabled(c.UserContext(), *req.AutoAssignEnabled)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SettingsResponse{AutoAssignEnabled: settings.AutoAssignEnabled}})
}
