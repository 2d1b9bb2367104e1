package handlers

import (
	"net/http"
	"strings"

	"github.com/aarondl/null/v8"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/permission"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// TicketsHandler serves ticket endpoints for every role. Scope and field
// permissions are enforced by the service.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Title:         req.Title,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID.Ptr(),
		Priority:      domain.TicketPriority(strings.ToUpper(req.Priority)),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	page, pageSize := paging(c)
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	tickets, total, err := h.service.ListTickets(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": dto.PageMeta{Total: total, Page: page, PageSize: pageSize},
	})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	details, err := h.service.GetTicket(c.UserContext(), id, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(details)})
}

// UpdateTicket PATCH /tickets/:id. Fields the caller may not change are
// ignored.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.service.UpdateTicket(c.UserContext(), id, actor, ticketPatch(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AddMessage POST /tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var status *domain.TicketStatus
	if req.Status != nil {
		s := domain.TicketStatus(*req.Status)
		status = &s
	}
	msg, ticket, err := h.service.AddMessage(c.UserContext(), id, actor, req.Body, status)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"message": ticketMessageResponse(msg),
			"ticket":  ticketResponse(ticket),
		},
	})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	entries, err := h.service.ListHistory(c.UserContext(), id, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	for _, part := range splitCSV(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(part)))
	}
	for _, part := range splitCSV(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.ToUpper(part)))
	}
	if categoryID := c.Query("category_id"); categoryID != "" {
		filter.CategoryID = &categoryID
	}
	if search := strings.TrimSpace(c.Query("q")); search != "" {
		filter.SearchTerm = &search
	}
	filter.Assigned = parseBoolQuery(c, "assigned")

	var err error
	if filter.CreatedFrom, err = parseTimeQuery(c, "created_from"); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = parseTimeQuery(c, "created_to"); err != nil {
		return filter, err
	}
	if filter.UpdatedFrom, err = parseTimeQuery(c, "updated_from"); err != nil {
		return filter, err
	}
	if filter.UpdatedTo, err = parseTimeQuery(c, "updated_to"); err != nil {
		return filter, err
	}
	return filter, nil
}

func ticketPatch(req dto.UpdateTicketRequest) permission.TicketPatch {
	patch := permission.TicketPatch{
		Title:            req.Title,
		Description:      req.Description,
		CategoryID:       req.CategoryID,
		SubcategoryID:    req.SubcategoryID,
		ClearSubcategory: req.ClearSubcategory,
		AssigneeUserID:   req.AssigneeUserID,
		Unassign:         req.Unassign,
		DueDate:          req.DueDate,
		ClearDueDate:     req.ClearDueDate,
	}
	if req.Priority != nil {
		p := domain.TicketPriority(*req.Priority)
		patch.Priority = &p
	}
	if req.Status != nil {
		s := domain.TicketStatus(*req.Status)
		patch.Status = &s
	}
	return patch
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:            ticket.ID,
		ExternalKey:   ticket.ExternalKey,
		Title:         ticket.Title,
		Description:   ticket.Description,
		CategoryID:    ticket.CategoryID,
		SubcategoryID: null.StringFromPtr(ticket.SubcategoryID),
		Priority:      ticket.Priority,
		Status:        ticket.Status,
		CreatorID:     ticket.CreatorID,
		DueDate:       null.TimeFromPtr(ticket.DueDate),
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}
	if ticket.Assignment != nil {
		assignee := &dto.AssigneeResponse{
			TechnicianID: ticket.Assignment.TechnicianID,
			UserID:       ticket.Assignment.UserID,
		}
		if ticket.Assignee != nil {
			assignee.Name = ticket.Assignee.Name
			assignee.Email = ticket.Assignee.Email
			assignee.Phone = ticket.Assignee.Phone
		}
		resp.Assignee = assignee
	}
	return resp
}

func ticketDetail(details *service.TicketDetails) dto.TicketDetailResponse {
	msgs := make([]dto.TicketMessageResponse, 0, len(details.Messages))
	for i := range details.Messages {
		msgs = append(msgs, ticketMessageResponse(&details.Messages[i]))
	}
	return dto.TicketDetailResponse{
		TicketResponse: ticketResponse(details.Ticket),
		Messages:       msgs,
	}
}

func ticketMessageResponse(msg *domain.TicketMessage) dto.TicketMessageResponse {
	resp := dto.TicketMessageResponse{
		ID:         msg.ID,
		TicketID:   msg.TicketID,
		AuthorID:   msg.AuthorID,
		AuthorRole: msg.AuthorRole,
		Body:       msg.Body,
		CreatedAt:  msg.CreatedAt,
	}
	if msg.StatusSnapshot != nil {
		resp.StatusSnapshot = null.StringFrom(string(*msg.StatusSnapshot))
	}
	return resp
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:            entry.ID,
			ChangeType:    entry.ChangeType,
			ChangedByID:   null.StringFromPtr(entry.ChangedByID),
			ChangedByRole: entry.ChangedByRole,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return resp
}
