package handlers

import (
	"net/http"

	"github.com/aarondl/null/v8"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// TechniciansHandler manages technician profiles.
type TechniciansHandler struct {
	technicians *service.TechnicianService
}

// NewTechniciansHandler constructs handler.
func NewTechniciansHandler(technicians *service.TechnicianService) *TechniciansHandler {
	return &TechniciansHandler{technicians: technicians}
}

// Create POST /admin/technicians.
func (h *TechniciansHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTechnicianRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tech, err := h.technicians.Create(c.UserContext(), service.TechnicianInput{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone.String,
		Specialization: req.Specialization.String,
		IsActive:       req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": technicianResponse(tech)})
}

// List GET /admin/technicians?active=&linked=.
func (h *TechniciansHandler) List(c *fiber.Ctx) error {
	page, pageSize := paging(c)
	techs, err := h.technicians.List(c.UserContext(), repository.TechnicianFilter{
		Active: parseBoolQuery(c, "active"),
		Linked: parseBoolQuery(c, "linked"),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return err
	}
	items := make([]dto.TechnicianResponse, 0, len(techs))
	for i := range techs {
		items = append(items, technicianResponse(&techs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Update PATCH /admin/technicians/:id.
func (h *TechniciansHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "technician")
	if err != nil {
		return err
	}
	var req dto.UpdateTechnicianRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tech, err := h.technicians.Update(c.UserContext(), id, service.TechnicianPatch{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Specialization: req.Specialization,
		IsActive:       req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": technicianResponse(tech)})
}

// Link POST /admin/technicians/:id/link.
func (h *TechniciansHandler) Link(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "technician")
	if err != nil {
		return err
	}
	var req dto.LinkTechnicianRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tech, err := h.technicians.LinkUser(c.UserContext(), id, req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": technicianResponse(tech)})
}

func technicianResponse(tech *domain.Technician) dto.TechnicianResponse {
	return dto.TechnicianResponse{
		ID:             tech.ID,
		Name:           tech.Name,
		Email:          tech.Email,
		Phone:          tech.Phone,
		Specialization: tech.Specialization,
		IsActive:       tech.IsActive,
		LinkedUserID:   null.StringFromPtr(tech.LinkedUserID),
		CreatedAt:      tech.CreatedAt,
		UpdatedAt:      tech.UpdatedAt,
	}
}
