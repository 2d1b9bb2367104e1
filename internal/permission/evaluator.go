// Package permission decides which ticket reads and mutations an actor may perform.
//
// Everything here is a pure function of the actor, the ticket and the
// requested change. Disallowed patch fields are dropped silently; the only
// rejection is a client closing a ticket through a message.
package permission

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Scope is an actor together with the technician profile linked to it, if any.
type Scope struct {
	Actor        domain.Actor
	TechnicianID string
}

// CanAccess reports whether the scope may read or mutate the ticket.
func (s Scope) CanAccess(ticket *domain.Ticket) bool {
	if ticket == nil {
		return false
	}
	switch s.Actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleClient:
		return ticket.CreatorID == s.Actor.ID
	case domain.RoleTechnician:
		if s.TechnicianID != "" && ticket.TechnicianID() == s.TechnicianID {
			return true
		}
		return ticket.AssignedUserID() != "" && ticket.AssignedUserID() == s.Actor.ID
	}
	return false
}

// TicketPatch is a partial ticket update. Nil fields are left untouched.
type TicketPatch struct {
	Title            *string
	Description      *string
	Priority         *domain.TicketPriority
	CategoryID       *string
	SubcategoryID    *string
	ClearSubcategory bool
	Status           *domain.TicketStatus
	AssigneeUserID   *string
	Unassign         bool
	DueDate          *time.Time
	ClearDueDate     bool
}

// Empty reports whether the patch requests no change.
func (p TicketPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.CategoryID == nil && p.SubcategoryID == nil && !p.ClearSubcategory &&
		p.Status == nil && p.AssigneeUserID == nil && !p.Unassign &&
		p.DueDate == nil && !p.ClearDueDate
}

// Patch field names reported when a field is dropped.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldPriority    = "priority"
	FieldCategory    = "category"
	FieldStatus      = "status"
	FieldAssignee    = "assignee"
	FieldDueDate     = "due_date"
)

// Permitted returns the subset of patch the actor may apply, along with the
// names of fields that were dropped.
func Permitted(actor domain.Actor, patch TicketPatch) (TicketPatch, []string) {
	var dropped []string
	out := patch

	if !canEditContent(actor) {
		if out.Title != nil {
			dropped = append(dropped, FieldTitle)
		}
		if out.Description != nil {
			dropped = append(dropped, FieldDescription)
		}
		if out.Priority != nil {
			dropped = append(dropped, FieldPriority)
		}
		if out.CategoryID != nil || out.SubcategoryID != nil || out.ClearSubcategory {
			dropped = append(dropped, FieldCategory)
		}
		out.Title, out.Description, out.Priority = nil, nil, nil
		out.CategoryID, out.SubcategoryID, out.ClearSubcategory = nil, nil, false
	}

	if out.Status != nil && !canSetStatusDirectly(actor, *out.Status) {
		dropped = append(dropped, FieldStatus)
		out.Status = nil
	}

	if !actor.IsAdmin() {
		if out.AssigneeUserID != nil || out.Unassign {
			dropped = append(dropped, FieldAssignee)
		}
		if out.DueDate != nil || out.ClearDueDate {
			dropped = append(dropped, FieldDueDate)
		}
		out.AssigneeUserID, out.Unassign = nil, false
		out.DueDate, out.ClearDueDate = nil, false
	}

	return out, dropped
}

// MessageStatus resolves the status a message may set on the ticket.
// It returns nil when no status change applies.
func MessageStatus(actor domain.Actor, ticket *domain.Ticket, requested *domain.TicketStatus) (*domain.TicketStatus, error) {
	if requested == nil || *requested == "" {
		return nil, nil
	}
	next := *requested

	if IsReopening(ticket.Status, next) {
		return &next, nil
	}

	switch actor.Role {
	case domain.RoleAdmin, domain.RoleTechnician:
		return &next, nil
	case domain.RoleClient:
		if next.Finished() {
			return nil, apperrors.NewStatusChangeForbidden(string(ticket.Status), string(next))
		}
		if next == domain.TicketStatusWaitingForClient {
			return &next, nil
		}
	}
	return nil, nil
}

// IsReopening reports whether moving from current to next reopens a finished ticket.
func IsReopening(current, next domain.TicketStatus) bool {
	return current.Finished() && next == domain.TicketStatusInProgress
}

func canEditContent(actor domain.Actor) bool {
	return actor.IsClient() || actor.IsAdmin()
}

func canSetStatusDirectly(actor domain.Actor, status domain.TicketStatus) bool {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleTechnician:
		return true
	case domain.RoleClient:
		return status == domain.TicketStatusWaitingForClient || status == domain.TicketStatusClosed
	}
	return false
}
