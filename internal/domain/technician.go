package domain

import "time"

// Technician is an assignable worker profile, optionally linked to a user account.
type Technician struct {
	ID             string
	Seq            int64
	Name           string
	Email          string
	Phone          string
	Specialization string
	IsActive       bool
	LinkedUserID   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Assignable reports whether the engine may pick this technician.
func (t *Technician) Assignable() bool {
	return t.IsActive && t.LinkedUserID != nil && *t.LinkedUserID != ""
}

// Contact returns the display data shown on tickets assigned to the technician.
func (t *Technician) Contact() *AssigneeContact {
	return &AssigneeContact{Name: t.Name, Email: t.Email, Phone: t.Phone}
}

// TechnicianLoad is a technician with its count of open tickets.
type TechnicianLoad struct {
	Technician Technician
	OpenCount  int
}
