package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

const bodyPreviewLen = 120

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = dispatcher.Publish(ctx, event)
}

func eventActor(actor domain.Actor) events.Actor {
	id := actor.ID
	return events.Actor{Role: actor.Role, UserID: &id}
}

func systemActor() events.Actor {
	return events.Actor{Role: domain.SystemRole}
}

// recordHistory stores an audit entry. Failures are logged and never fail
// the mutation that produced them.
func recordHistory(ctx context.Context, repo repository.TicketHistoryRepository, logger *zap.Logger, entry *domain.TicketHistory) {
	if repo == nil {
		return
	}
	if err := repo.Create(ctx, entry); err != nil {
		logger.Warn("failed to record ticket history",
			zap.String("ticket_id", entry.TicketID),
			zap.String("change_type", string(entry.ChangeType)),
			zap.Error(err))
	}
}

// otherParty returns who should hear about a change the actor made: the
// assigned technician user when the creator acts, the creator otherwise.
// It returns "" when that would be the actor itself or nobody.
func otherParty(ticket *domain.Ticket, actorID string) string {
	recipient := ticket.CreatorID
	if actorID == ticket.CreatorID {
		recipient = ticket.AssignedUserID()
	}
	if recipient == actorID {
		return ""
	}
	return recipient
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func generateTicketKey() string {
	return "HD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func assignmentValue(a *domain.Assignment) map[string]any {
	techID, userID := a.Columns()
	return map[string]any{"technician_id": techID, "assigned_user_id": userID}
}
