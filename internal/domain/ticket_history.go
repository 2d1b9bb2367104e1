package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus     TicketChangeType = "STATUS_CHANGE"
	ChangeTypePriority   TicketChangeType = "PRIORITY_CHANGE"
	ChangeTypeAssignment TicketChangeType = "ASSIGNMENT_CHANGE"
	ChangeTypeDueDate    TicketChangeType = "DUE_DATE_CHANGE"
)

// SystemRole marks history entries written by the assignment engine.
const SystemRole Role = "SYSTEM"

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID            string
	TicketID      string
	ChangedByID   *string
	ChangedByRole Role
	ChangeType    TicketChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
