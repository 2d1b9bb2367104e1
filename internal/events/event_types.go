package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketMessageAdded  EventType = "ticket_message_added"
)

// Actor encapsulates actor metadata for an event. UserID is nil for changes
// made by the assignment engine.
type Actor struct {
	Role   domain.Role `json:"role"`
	UserID *string     `json:"user_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	TicketKey string    `json:"ticket_key"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CategoryID string                `json:"category_id"`
	Priority   domain.TicketPriority `json:"priority"`
	Title      string                `json:"title"`
}

// TicketUpdatedPayload lists the fields an update changed.
type TicketUpdatedPayload struct {
	Fields          []string `json:"fields"`
	RecipientUserID string   `json:"recipient_user_id,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus       domain.TicketStatus `json:"old_status"`
	NewStatus       domain.TicketStatus `json:"new_status"`
	RecipientUserID string              `json:"recipient_user_id,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	TechnicianID   string `json:"technician_id"`
	AssignedUserID string `json:"assigned_user_id"`
	Automatic      bool   `json:"automatic"`
}

// TicketMessageAddedPayload payload. RecipientUserID is the other party of
// the conversation and is empty when there is nobody to notify.
type TicketMessageAddedPayload struct {
	MessageID       string      `json:"message_id"`
	AuthorRole      domain.Role `json:"author_role"`
	AuthorID        string      `json:"author_id"`
	BodyPreview     string      `json:"body_preview"`
	RecipientUserID string      `json:"recipient_user_id,omitempty"`
}
