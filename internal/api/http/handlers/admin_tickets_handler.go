package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminTicketsHandler exposes assignment, reporting and metrics to admins.
type AdminTicketsHandler struct {
	assignment *service.AssignmentService
	settings   *service.SettingsService
	reports    *service.ReportService
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(
	assignment *service.AssignmentService,
	settings *service.SettingsService,
	reports *service.ReportService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AdminTicketsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminTicketsHandler{
		assignment: assignment,
		settings:   settings,
		reports:    reports,
		metrics:    metrics,
		logger:     logger,
	}
}

// AssignOne POST /admin/tickets/:id/assign.
func (h *AdminTicketsHandler) AssignOne(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	result, err := h.assignment.AssignOne(c.UserContext(), id)
	if err != nil {
		return err
	}
	resp := dto.AssignResponse{
		Outcome: string(result.Outcome),
		Ticket:  ticketResponse(result.Ticket),
	}
	if result.Technician != nil {
		tech := technicianResponse(result.Technician)
		resp.Technician = &tech
	}
	return c.JSON(fiber.Map{"data": resp})
}

// AssignBatch POST /admin/tickets/assign. Refused while automatic
// assignment is switched off.
func (h *AdminTicketsHandler) AssignBatch(c *fiber.Ctx) error {
	var req dto.BatchAssignRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}

	enabled, err := h.settings.AutoAssignEnabled(c.UserContext())
	if err != nil {
		return err
	}
	if !enabled {
		return apperrors.NewConflict("automatic assignment is disabled", nil)
	}

	assigned, err := h.assignment.AssignBatch(c.UserContext(), &service.AssignWindow{Start: req.Start, End: req.End})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BatchAssignResponse{Assigned: assigned}})
}

// Export GET /admin/tickets/export returns matching tickets as xlsx.
func (h *AdminTicketsHandler) Export(c *fiber.Ctx) error {
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	data, err := h.reports.ExportTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	h.logger.Info("tickets exported", zap.Int("bytes", len(data)))

	filename := fmt.Sprintf("tickets-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(data)
}

// Workload GET /admin/technicians/workload.
func (h *AdminTicketsHandler) Workload(c *fiber.Ctx) error {
	loads, err := h.assignment.Workloads(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.WorkloadResponse, 0, len(loads))
	for i := range loads {
		items = append(items, dto.WorkloadResponse{
			Technician: technicianResponse(&loads[i].Technician),
			OpenCount:  loads[i].OpenCount,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Metrics GET /admin/metrics.
func (h *AdminTicketsHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
