package domain

import "time"

// TicketMessage captures communications in a ticket thread. Messages are append-only.
type TicketMessage struct {
	ID             string
	TicketID       string
	AuthorID       string
	AuthorRole     Role
	Body           string
	StatusSnapshot *TicketStatus
	CreatedAt      time.Time
}
