package domain

import "time"

// Notification is an in-app message delivered to a user's inbox.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Settings are the global service switches an admin can change at runtime.
type Settings struct {
	AutoAssignEnabled bool
}
