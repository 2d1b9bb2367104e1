package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketMessageRepository manages ticket thread messages. Messages are never
// edited or removed once stored.
type TicketMessageRepository interface {
	// Append stores the message and, in the same transaction, touches the
	// ticket's updated_at and sets its status when status is non-nil.
	Append(ctx context.Context, msg *domain.TicketMessage, status *domain.TicketStatus) (time.Time, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error)
}

type ticketMessageRepository struct {
	pool *pgxpool.Pool
}

// NewTicketMessageRepository builds repository.
func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

func (r *ticketMessageRepository) Append(ctx context.Context, msg *domain.TicketMessage, status *domain.TicketStatus) (time.Time, error) {
	var updatedAt time.Time
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insert = `
            INSERT INTO ticket_messages (ticket_id, author_id, author_role, body, status_snapshot)
            VALUES ($1,$2,$3,$4,$5)
            RETURNING id, created_at`
		if err := tx.QueryRow(ctx, insert,
			msg.TicketID,
			msg.AuthorID,
			msg.AuthorRole,
			msg.Body,
			status,
		).Scan(&msg.ID, &msg.CreatedAt); err != nil {
			return err
		}

		const touch = `
            UPDATE tickets SET status=COALESCE($2, status), updated_at=NOW()
            WHERE id=$1
            RETURNING updated_at`
		return tx.QueryRow(ctx, touch, msg.TicketID, status).Scan(&updatedAt)
	})
	if err != nil {
		return time.Time{}, err
	}
	msg.StatusSnapshot = status
	return updatedAt, nil
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	const query = `
        SELECT id, ticket_id, author_id, author_role, body, status_snapshot, created_at
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TicketMessage{}
	for rows.Next() {
		var msg domain.TicketMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.AuthorID,
			&msg.AuthorRole,
			&msg.Body,
			&msg.StatusSnapshot,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
