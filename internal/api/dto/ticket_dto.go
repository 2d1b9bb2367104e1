package dto

import (
	"time"

	"github.com/aarondl/null/v8"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title         string      `json:"title" validate:"required,max=200"`
	Description   string      `json:"description" validate:"required,max=10000"`
	CategoryID    string      `json:"category_id" validate:"required,uuid"`
	SubcategoryID null.String `json:"subcategory_id" validate:"omitempty,uuid"`
	Priority      string      `json:"priority" validate:"omitempty,ticket_priority"`
}

// UpdateTicketRequest is a partial update. Absent fields are left alone;
// the clear_* and unassign flags remove a value.
type UpdateTicketRequest struct {
	Title            *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description      *string    `json:"description" validate:"omitempty,min=1,max=10000"`
	Priority         *string    `json:"priority" validate:"omitempty,ticket_priority"`
	CategoryID       *string    `json:"category_id" validate:"omitempty,uuid"`
	SubcategoryID    *string    `json:"subcategory_id" validate:"omitempty,uuid"`
	ClearSubcategory bool       `json:"clear_subcategory"`
	Status           *string    `json:"status" validate:"omitempty,ticket_status"`
	AssigneeUserID   *string    `json:"assignee_user_id" validate:"omitempty,uuid"`
	Unassign         bool       `json:"unassign"`
	DueDate          *time.Time `json:"due_date"`
	ClearDueDate     bool       `json:"clear_due_date"`
}

// CreateMessageRequest payload. Status optionally requests a status change.
type CreateMessageRequest struct {
	Body   string  `json:"body" validate:"required,max=10000"`
	Status *string `json:"status" validate:"omitempty,ticket_status"`
}

// BatchAssignRequest limits a batch to tickets created inside the window.
type BatchAssignRequest struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// AssigneeResponse is the contact of the assigned technician.
type AssigneeResponse struct {
	TechnicianID string `json:"technician_id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID            string                `json:"id"`
	ExternalKey   string                `json:"external_key"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	CategoryID    string                `json:"category_id"`
	SubcategoryID null.String           `json:"subcategory_id"`
	Priority      domain.TicketPriority `json:"priority"`
	Status        domain.TicketStatus   `json:"status"`
	CreatorID     string                `json:"creator_id"`
	Assignee      *AssigneeResponse     `json:"assignee"`
	DueDate       null.Time             `json:"due_date"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// TicketDetailResponse is a ticket with its conversation.
type TicketDetailResponse struct {
	TicketResponse
	Messages []TicketMessageResponse `json:"messages"`
}

// TicketMessageResponse represents a conversation message.
type TicketMessageResponse struct {
	ID             string      `json:"id"`
	TicketID       string      `json:"ticket_id"`
	AuthorID       string      `json:"author_id"`
	AuthorRole     domain.Role `json:"author_role"`
	Body           string      `json:"body"`
	StatusSnapshot null.String `json:"status_snapshot"`
	CreatedAt      time.Time   `json:"created_at"`
}

// TicketHistoryResponse is one audit trail entry.
type TicketHistoryResponse struct {
	ID            string                  `json:"id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	ChangedByID   null.String             `json:"changed_by_id"`
	ChangedByRole domain.Role             `json:"changed_by_role"`
	OldValue      map[string]any          `json:"old_value"`
	NewValue      map[string]any          `json:"new_value"`
	CreatedAt     time.Time               `json:"created_at"`
}

// PageMeta describes a paginated list.
type PageMeta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// AssignResponse reports a single assignment attempt.
type AssignResponse struct {
	Outcome    string              `json:"outcome"`
	Ticket     TicketResponse      `json:"ticket"`
	Technician *TechnicianResponse `json:"technician,omitempty"`
}

// BatchAssignResponse reports how many tickets a batch assigned.
type BatchAssignResponse struct {
	Assigned int `json:"assigned"`
}
