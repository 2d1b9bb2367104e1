package service

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	exportSheet      = "Tickets"
	exportDateFormat = "2006-01-02 15:04"
)

var exportHeaders = []any{
	"Key", "Title", "Status", "Priority", "Category", "Created by",
	"Assignee", "Assignee email", "Due date", "Created at", "Updated at",
}

// ReportService builds spreadsheet exports for admins.
type ReportService struct {
	tickets    repository.TicketRepository
	categories repository.CategoryRepository
}

// NewReportService constructs the service.
func NewReportService(tickets repository.TicketRepository, categories repository.CategoryRepository) *ReportService {
	return &ReportService{tickets: tickets, categories: categories}
}

// ExportTickets renders every ticket matching filter as an xlsx workbook.
func (s *ReportService) ExportTickets(ctx context.Context, filter TicketListFilter) ([]byte, error) {
	tickets, _, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		CategoryID:  filter.CategoryID,
		Assigned:    filter.Assigned,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		UpdatedFrom: filter.UpdatedFrom,
		UpdatedTo:   filter.UpdatedTo,
		Unpaged:     true,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	names := map[string]string{}
	categories, err := s.categories.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	return renderTicketWorkbook(tickets, names)
}

func renderTicketWorkbook(tickets []domain.Ticket, categoryNames map[string]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	if err := f.SetCellStyle(exportSheet, "A1", lastHeader, style); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	for i, ticket := range tickets {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		row := ticketRow(ticket, categoryNames)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, apperrors.NewInternalError(fmt.Errorf("write row %d: %w", i+2, err))
		}
	}
	_ = f.SetColWidth(exportSheet, "B", "B", 40)
	_ = f.SetColWidth(exportSheet, "E", "H", 24)
	_ = f.SetColWidth(exportSheet, "I", "K", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

func ticketRow(t domain.Ticket, categoryNames map[string]string) []any {
	category := categoryNames[t.CategoryID]
	if category == "" {
		category = t.CategoryID
	}
	var assignee, assigneeEmail, due string
	if t.Assignee != nil {
		assignee, assigneeEmail = t.Assignee.Name, t.Assignee.Email
	}
	if t.DueDate != nil {
		due = t.DueDate.Format(exportDateFormat)
	}
	return []any{
		t.ExternalKey, t.Title, string(t.Status), string(t.Priority), category, t.CreatorID,
		assignee, assigneeEmail, due, t.CreatedAt.Format(exportDateFormat), t.UpdatedAt.Format(exportDateFormat),
	}
}
