package domain

import (
	"errors"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew              TicketStatus = "NEW"
	TicketStatusInProgress       TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingForClient TicketStatus = "WAITING_FOR_CLIENT"
	TicketStatusResolved         TicketStatus = "RESOLVED"
	TicketStatusClosed           TicketStatus = "CLOSED"
)

// TicketStatuses lists every known status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusInProgress,
	TicketStatusWaitingForClient,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether the status is a known lifecycle state.
func (s TicketStatus) Valid() bool {
	for _, known := range TicketStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Finished reports whether the status is RESOLVED or CLOSED.
func (s TicketStatus) Finished() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// Open reports whether a ticket in this status counts toward technician load.
func (s TicketStatus) Open() bool {
	return s == TicketStatusNew || s == TicketStatusInProgress
}

// OpenStatuses are the statuses counted as technician workload.
var OpenStatuses = []TicketStatus{TicketStatusNew, TicketStatusInProgress}

// TicketPriority enumerates ticket urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Valid reports whether the priority is known.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// ErrIncompleteAssignment is returned when one half of an assignment is missing.
var ErrIncompleteAssignment = errors.New("assignment requires both technician and user")

// Assignment pairs the technician profile with the user account it is linked to.
// A ticket either carries both references or none.
type Assignment struct {
	TechnicianID string
	UserID       string
}

// NewAssignment builds an assignment, rejecting a missing half.
func NewAssignment(technicianID, userID string) (*Assignment, error) {
	if technicianID == "" || userID == "" {
		return nil, ErrIncompleteAssignment
	}
	return &Assignment{TechnicianID: technicianID, UserID: userID}, nil
}

// AssignmentFromColumns rebuilds an assignment from nullable storage columns.
// A row with only one column set is treated as unassigned.
func AssignmentFromColumns(technicianID, userID *string) *Assignment {
	if technicianID == nil || userID == nil || *technicianID == "" || *userID == "" {
		return nil
	}
	return &Assignment{TechnicianID: *technicianID, UserID: *userID}
}

// Columns returns the nullable column values for storage.
func (a *Assignment) Columns() (technicianID, userID *string) {
	if a == nil {
		return nil, nil
	}
	tech, user := a.TechnicianID, a.UserID
	return &tech, &user
}

// AssigneeContact is display data of the assigned technician.
type AssigneeContact struct {
	Name  string
	Email string
	Phone string
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID            string
	ExternalKey   string
	Title         string
	Description   string
	CategoryID    string
	SubcategoryID *string
	Priority      TicketPriority
	Status        TicketStatus
	CreatorID     string
	Assignment    *Assignment
	Assignee      *AssigneeContact
	DueDate       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsAssigned reports whether the ticket is truly assigned.
func (t *Ticket) IsAssigned() bool {
	return t.Assignment != nil
}

// AssignedUserID returns the assigned user account or "".
func (t *Ticket) AssignedUserID() string {
	if t.Assignment == nil {
		return ""
	}
	return t.Assignment.UserID
}

// TechnicianID returns the assigned technician profile or "".
func (t *Ticket) TechnicianID() string {
	if t.Assignment == nil {
		return ""
	}
	return t.Assignment.TechnicianID
}
