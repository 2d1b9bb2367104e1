package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/permission"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketService coordinates the ticket lifecycle: creation, scoped reads,
// patches and conversation messages.
type TicketService struct {
	tickets     repository.TicketRepository
	messages    repository.TicketMessageRepository
	categories  repository.CategoryRepository
	technicians repository.TechnicianRepository
	history     repository.TicketHistoryRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.TicketMessageRepository
	CategoryRepo   repository.CategoryRepository
	TechnicianRepo repository.TechnicianRepository
	HistoryRepo    repository.TicketHistoryRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title         string
	Description   string
	CategoryID    string
	SubcategoryID *string
	Priority      domain.TicketPriority
}

// TicketListFilter describes listing filters. Visibility scope is applied on top.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	CategoryID  *string
	Assigned    *bool
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketDetails is a ticket together with its conversation.
type TicketDetails struct {
	Ticket   *domain.Ticket
	Messages []domain.TicketMessage
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		messages:    deps.MessageRepo,
		categories:  deps.CategoryRepo,
		technicians: deps.TechnicianRepo,
		history:     deps.HistoryRepo,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
	}
}

// CreateTicket opens a NEW, unassigned ticket on behalf of a client.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if !actor.IsClient() {
		return nil, apperrors.NewForbidden("only clients can open tickets")
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	categoryID := strings.TrimSpace(input.CategoryID)
	if err := s.validateCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	subcategoryID := normalizeOptionalID(input.SubcategoryID)
	if subcategoryID != nil {
		if err := s.validateSubcategory(ctx, categoryID, *subcategoryID); err != nil {
			return nil, err
		}
	}

	ticket := &domain.Ticket{
		ExternalKey:   generateTicketKey(),
		Title:         title,
		Description:   description,
		CategoryID:    categoryID,
		SubcategoryID: subcategoryID,
		Priority:      priority,
		Status:        domain.TicketStatusNew,
		CreatorID:     actor.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		TicketKey: ticket.ExternalKey,
		Actor:     eventActor(actor),
		Payload: events.TicketCreatedPayload{
			CategoryID: ticket.CategoryID,
			Priority:   ticket.Priority,
			Title:      ticket.Title,
		},
	})
	return ticket, nil
}

// GetTicket returns a ticket and its messages. Tickets outside the actor's
// scope are reported as not found.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string, actor domain.Actor) (*TicketDetails, error) {
	ticket, err := s.loadScoped(ctx, ticketID, actor)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketDetails{Ticket: ticket, Messages: msgs}, nil
}

// ListTickets returns the tickets visible to the actor that match filter,
// along with the total match count.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, int, error) {
	repoFilter := repository.TicketFilter{
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		CategoryID:  filter.CategoryID,
		Assigned:    filter.Assigned,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		UpdatedFrom: filter.UpdatedFrom,
		UpdatedTo:   filter.UpdatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}

	scope, err := s.resolveScope(ctx, actor)
	if err != nil {
		return nil, 0, err
	}
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleClient:
		repoFilter.CreatorID = &actor.ID
	case domain.RoleTechnician:
		repoFilter.Technician = &repository.TechnicianVisibility{
			TechnicianID: scope.TechnicianID,
			UserID:       actor.ID,
		}
	default:
		return nil, 0, apperrors.NewForbidden("unknown role")
	}

	tickets, total, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return tickets, total, nil
}

// UpdateTicket applies the part of patch the actor is permitted to change.
// Fields the actor may not change are dropped without error. When nothing
// permitted changes, no write happens and the current ticket is returned.
func (s *TicketService) UpdateTicket(ctx context.Context, ticketID string, actor domain.Actor, patch permission.TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.loadScoped(ctx, ticketID, actor)
	if err != nil {
		return nil, err
	}

	allowed, dropped := permission.Permitted(actor, patch)
	if len(dropped) > 0 {
		s.logger.Debug("dropped fields the actor may not change",
			zap.String("ticket_id", ticket.ID),
			zap.String("role", string(actor.Role)),
			zap.Strings("fields", dropped))
	}
	if allowed.Empty() {
		return ticket, nil
	}

	updated := *ticket
	var (
		changed []string
		entries []*domain.TicketHistory
	)
	changedBy := actor.ID
	addHistory := func(kind domain.TicketChangeType, oldValue, newValue map[string]any) {
		entries = append(entries, &domain.TicketHistory{
			TicketID:      ticket.ID,
			ChangedByID:   &changedBy,
			ChangedByRole: actor.Role,
			ChangeType:    kind,
			OldValue:      oldValue,
			NewValue:      newValue,
		})
	}

	if allowed.Title != nil {
		title := strings.TrimSpace(*allowed.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		if title != updated.Title {
			updated.Title = title
			changed = append(changed, permission.FieldTitle)
		}
	}
	if allowed.Description != nil {
		description := strings.TrimSpace(*allowed.Description)
		if description == "" {
			return nil, apperrors.NewValidationError("description cannot be empty", nil)
		}
		if description != updated.Description {
			updated.Description = description
			changed = append(changed, permission.FieldDescription)
		}
	}
	if allowed.Priority != nil {
		if !allowed.Priority.Valid() {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *allowed.Priority})
		}
		if *allowed.Priority != updated.Priority {
			addHistory(domain.ChangeTypePriority,
				map[string]any{"priority": updated.Priority},
				map[string]any{"priority": *allowed.Priority})
			updated.Priority = *allowed.Priority
			changed = append(changed, permission.FieldPriority)
		}
	}

	categoryChanged, err := s.applyCategory(ctx, &updated, allowed)
	if err != nil {
		return nil, err
	}
	if categoryChanged {
		changed = append(changed, permission.FieldCategory)
	}

	if allowed.Status != nil {
		if !allowed.Status.Valid() {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *allowed.Status})
		}
		if *allowed.Status != updated.Status {
			addHistory(domain.ChangeTypeStatus,
				map[string]any{"status": updated.Status},
				map[string]any{"status": *allowed.Status})
			updated.Status = *allowed.Status
			changed = append(changed, permission.FieldStatus)
		}
	}

	var assignedTo *domain.Technician
	switch {
	case allowed.AssigneeUserID != nil:
		tech, err := s.assignableTechnician(ctx, strings.TrimSpace(*allowed.AssigneeUserID))
		if err != nil {
			return nil, err
		}
		next, err := domain.NewAssignment(tech.ID, *tech.LinkedUserID)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error(), nil)
		}
		if updated.Assignment == nil || *updated.Assignment != *next {
			addHistory(domain.ChangeTypeAssignment, assignmentValue(updated.Assignment), assignmentValue(next))
			updated.Assignment = next
			updated.Assignee = tech.Contact()
			assignedTo = tech
			changed = append(changed, permission.FieldAssignee)
		}
	case allowed.Unassign:
		if updated.Assignment != nil {
			addHistory(domain.ChangeTypeAssignment, assignmentValue(updated.Assignment), assignmentValue(nil))
			updated.Assignment = nil
			updated.Assignee = nil
			changed = append(changed, permission.FieldAssignee)
		}
	}

	switch {
	case allowed.DueDate != nil:
		due := allowed.DueDate.UTC()
		if updated.DueDate == nil || !updated.DueDate.Equal(due) {
			addHistory(domain.ChangeTypeDueDate,
				map[string]any{"due_date": updated.DueDate},
				map[string]any{"due_date": due})
			updated.DueDate = &due
			changed = append(changed, permission.FieldDueDate)
		}
	case allowed.ClearDueDate:
		if updated.DueDate != nil {
			addHistory(domain.ChangeTypeDueDate,
				map[string]any{"due_date": updated.DueDate},
				map[string]any{"due_date": nil})
			updated.DueDate = nil
			changed = append(changed, permission.FieldDueDate)
		}
	}

	if len(changed) == 0 {
		return ticket, nil
	}

	if err := s.tickets.Update(ctx, &updated); err != nil {
		return nil, apperrors.MapError(err)
	}

	for _, entry := range entries {
		recordHistory(ctx, s.history, s.logger, entry)
	}
	s.publishUpdate(ctx, actor, ticket, &updated, changed, assignedTo)
	return &updated, nil
}

// AddMessage appends a message to the ticket conversation, applying the
// status change it requests when the actor's role allows it. The message
// and the status change are stored atomically.
func (s *TicketService) AddMessage(ctx context.Context, ticketID string, actor domain.Actor, body string, status *domain.TicketStatus) (*domain.TicketMessage, *domain.Ticket, error) {
	ticket, err := s.loadScoped(ctx, ticketID, actor)
	if err != nil {
		return nil, nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil, apperrors.NewValidationError("message body is required", nil)
	}
	if status != nil && *status != "" && !status.Valid() {
		return nil, nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *status})
	}

	next, err := permission.MessageStatus(actor, ticket, status)
	if err != nil {
		return nil, nil, err
	}
	if next != nil && *next == ticket.Status {
		next = nil
	}

	msg := &domain.TicketMessage{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		AuthorRole: actor.Role,
		Body:       body,
	}
	updatedAt, err := s.messages.Append(ctx, msg, next)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	updated := *ticket
	updated.UpdatedAt = updatedAt
	recipient := otherParty(ticket, actor.ID)

	if next != nil {
		updated.Status = *next
		changedBy := actor.ID
		recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
			TicketID:      ticket.ID,
			ChangedByID:   &changedBy,
			ChangedByRole: actor.Role,
			ChangeType:    domain.ChangeTypeStatus,
			OldValue:      map[string]any{"status": ticket.Status},
			NewValue:      map[string]any{"status": *next, "message_id": msg.ID},
		})
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:      events.EventTicketStatusChanged,
			TicketID:  ticket.ID,
			TicketKey: ticket.ExternalKey,
			Actor:     eventActor(actor),
			Payload: events.TicketStatusChangedPayload{
				OldStatus:       ticket.Status,
				NewStatus:       *next,
				RecipientUserID: recipient,
			},
		})
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketMessageAdded,
		TicketID:  ticket.ID,
		TicketKey: ticket.ExternalKey,
		Actor:     eventActor(actor),
		Payload: events.TicketMessageAddedPayload{
			MessageID:       msg.ID,
			AuthorRole:      actor.Role,
			AuthorID:        actor.ID,
			BodyPreview:     stringPreview(msg.Body, bodyPreviewLen),
			RecipientUserID: recipient,
		},
	})
	return msg, &updated, nil
}

// ListHistory returns the audit trail of a ticket visible to the actor.
func (s *TicketService) ListHistory(ctx context.Context, ticketID string, actor domain.Actor) ([]domain.TicketHistory, error) {
	ticket, err := s.loadScoped(ctx, ticketID, actor)
	if err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	entries, err := s.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *TicketService) resolveScope(ctx context.Context, actor domain.Actor) (permission.Scope, error) {
	scope := permission.Scope{Actor: actor}
	if !actor.IsTechnician() {
		return scope, nil
	}
	tech, err := s.technicians.GetByLinkedUser(ctx, actor.ID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return scope, nil
		}
		return scope, apperrors.MapError(err)
	}
	scope.TechnicianID = tech.ID
	return scope, nil
}

func (s *TicketService) loadScoped(ctx context.Context, ticketID string, actor domain.Actor) (*domain.Ticket, error) {
	notFound := apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, notFound
		}
		return nil, apperrors.MapError(err)
	}
	scope, err := s.resolveScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !scope.CanAccess(ticket) {
		return nil, notFound
	}
	return ticket, nil
}

func (s *TicketService) applyCategory(ctx context.Context, ticket *domain.Ticket, patch permission.TicketPatch) (bool, error) {
	changed := false
	categoryID := ticket.CategoryID

	if patch.CategoryID != nil {
		next := strings.TrimSpace(*patch.CategoryID)
		if next != ticket.CategoryID {
			if err := s.validateCategory(ctx, next); err != nil {
				return false, err
			}
			categoryID = next
			ticket.CategoryID = next
			changed = true
			if patch.SubcategoryID == nil && ticket.SubcategoryID != nil {
				ticket.SubcategoryID = nil
			}
		}
	}

	switch {
	case patch.SubcategoryID != nil:
		next := normalizeOptionalID(patch.SubcategoryID)
		if next == nil {
			if ticket.SubcategoryID != nil {
				ticket.SubcategoryID = nil
				changed = true
			}
			break
		}
		if ticket.SubcategoryID == nil || *ticket.SubcategoryID != *next {
			if err := s.validateSubcategory(ctx, categoryID, *next); err != nil {
				return false, err
			}
			ticket.SubcategoryID = next
			changed = true
		}
	case patch.ClearSubcategory:
		if ticket.SubcategoryID != nil {
			ticket.SubcategoryID = nil
			changed = true
		}
	}
	return changed, nil
}

func (s *TicketService) validateCategory(ctx context.Context, categoryID string) error {
	if categoryID == "" {
		return apperrors.NewValidationError("category is required", nil)
	}
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return apperrors.NewValidationError("category not found", map[string]any{"category_id": categoryID})
		}
		return apperrors.MapError(err)
	}
	if !category.IsActive {
		return apperrors.NewValidationError("category inactive", map[string]any{"category_id": categoryID})
	}
	return nil
}

func (s *TicketService) validateSubcategory(ctx context.Context, categoryID, subcategoryID string) error {
	sub, err := s.categories.GetSubcategory(ctx, subcategoryID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return apperrors.NewValidationError("subcategory not found", map[string]any{"subcategory_id": subcategoryID})
		}
		return apperrors.MapError(err)
	}
	if sub.CategoryID != categoryID {
		return apperrors.NewValidationError("subcategory not part of category", map[string]any{
			"subcategory_id": subcategoryID,
			"category_id":    categoryID,
		})
	}
	if !sub.IsActive {
		return apperrors.NewValidationError("subcategory inactive", map[string]any{"subcategory_id": subcategoryID})
	}
	return nil
}

// assignableTechnician resolves the technician profile owned by userID.
func (s *TicketService) assignableTechnician(ctx context.Context, userID string) (*domain.Technician, error) {
	invalid := apperrors.NewValidationError("assignee must own an active technician profile", map[string]any{"user_id": userID})
	if userID == "" {
		return nil, invalid
	}
	tech, err := s.technicians.GetByLinkedUser(ctx, userID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, invalid
		}
		return nil, apperrors.MapError(err)
	}
	if !tech.Assignable() {
		return nil, invalid
	}
	return tech, nil
}

func (s *TicketService) publishUpdate(ctx context.Context, actor domain.Actor, before, after *domain.Ticket, changed []string, assignedTo *domain.Technician) {
	recipient := otherParty(after, actor.ID)

	if before.Status != after.Status {
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:      events.EventTicketStatusChanged,
			TicketID:  after.ID,
			TicketKey: after.ExternalKey,
			Actor:     eventActor(actor),
			Payload: events.TicketStatusChangedPayload{
				OldStatus:       before.Status,
				NewStatus:       after.Status,
				RecipientUserID: recipient,
			},
		})
	}
	if assignedTo != nil {
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:      events.EventTicketAssigned,
			TicketID:  after.ID,
			TicketKey: after.ExternalKey,
			Actor:     eventActor(actor),
			Payload: events.TicketAssignedPayload{
				TechnicianID:   assignedTo.ID,
				AssignedUserID: after.AssignedUserID(),
			},
		})
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketUpdated,
		TicketID:  after.ID,
		TicketKey: after.ExternalKey,
		Actor:     eventActor(actor),
		Payload: events.TicketUpdatedPayload{
			Fields:          changed,
			RecipientUserID: recipient,
		},
	})
}

func normalizeOptionalID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
