package repository

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const defaultTicketPageSize = 20

// TechnicianVisibility limits a listing to tickets a technician works on.
type TechnicianVisibility struct {
	TechnicianID string
	UserID       string
}

// TicketFilter captures ticket search parameters. Nil fields are ignored.
type TicketFilter struct {
	CreatorID   *string
	Technician  *TechnicianVisibility
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	CategoryID  *string
	Assigned    *bool
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
	Limit       int
	Offset      int
	// Unpaged returns every matching row, used by exports.
	Unpaged bool
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	ListUnassignedIDs(ctx context.Context, from, to *time.Time) ([]string, error)
	CountOpenByTechnician(ctx context.Context, technicianIDs []string) (map[string]int, error)
	// AssignIfUnassigned sets the assignment and moves the ticket to
	// IN_PROGRESS only while it has no assignment. The bool reports whether
	// the write happened.
	AssignIfUnassigned(ctx context.Context, ticketID string, assignment domain.Assignment) (*domain.Ticket, bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
	psql sq.StatementBuilderType
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{
		pool: pool,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var ticketColumns = []string{
	"t.id", "t.external_key", "t.title", "t.description", "t.category_id", "t.subcategory_id",
	"t.priority", "t.status", "t.creator_id", "t.technician_id", "t.assigned_user_id",
	"t.due_date", "t.created_at", "t.updated_at",
	"tech.name", "tech.email", "tech.phone",
}

// The contact join only matches when the assignment is complete.
const ticketContactJoin = "technicians tech ON tech.id = t.technician_id AND t.assigned_user_id IS NOT NULL"

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	techID, userID := ticket.Assignment.Columns()
	const query = `
        INSERT INTO tickets (external_key, title, description, category_id, subcategory_id, priority, status,
            creator_id, technician_id, assigned_user_id, due_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.Title,
		ticket.Description,
		ticket.CategoryID,
		ticket.SubcategoryID,
		ticket.Priority,
		ticket.Status,
		ticket.CreatorID,
		techID,
		userID,
		ticket.DueDate,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	techID, userID := ticket.Assignment.Columns()
	const query = `
        UPDATE tickets SET title=$1, description=$2, category_id=$3, subcategory_id=$4, priority=$5,
            status=$6, technician_id=$7, assigned_user_id=$8, due_date=$9, updated_at=NOW()
        WHERE id=$10
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.CategoryID,
		ticket.SubcategoryID,
		ticket.Priority,
		ticket.Status,
		techID,
		userID,
		ticket.DueDate,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query, args, err := r.psql.Select(ticketColumns...).
		From("tickets t").
		LeftJoin(ticketContactJoin).
		Where(sq.Eq{"t.id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanTicket(r.pool.QueryRow(ctx, query, args...))
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	base := applyTicketFilter(r.psql.Select().From("tickets t"), filter)

	countQuery, countArgs, err := base.Columns("COUNT(t.id)").ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Ticket{}, 0, nil
	}

	listing := base.Columns(ticketColumns...).
		LeftJoin(ticketContactJoin).
		OrderBy("t.updated_at DESC", "t.id ASC")
	if !filter.Unpaged {
		limit := filter.Limit
		if limit <= 0 {
			limit = defaultTicketPageSize
		}
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		listing = listing.Limit(uint64(limit)).Offset(uint64(offset))
	}

	query, args, err := listing.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func applyTicketFilter(b sq.SelectBuilder, filter TicketFilter) sq.SelectBuilder {
	if filter.CreatorID != nil {
		b = b.Where(sq.Eq{"t.creator_id": *filter.CreatorID})
	}
	if v := filter.Technician; v != nil {
		if v.TechnicianID != "" {
			b = b.Where(sq.Or{
				sq.Eq{"t.technician_id": v.TechnicianID},
				sq.Eq{"t.assigned_user_id": v.UserID},
			})
		} else {
			b = b.Where(sq.Eq{"t.assigned_user_id": v.UserID})
		}
	}
	if len(filter.Statuses) > 0 {
		b = b.Where(sq.Eq{"t.status": statusStrings(filter.Statuses)})
	}
	if len(filter.Priorities) > 0 {
		values := make([]string, len(filter.Priorities))
		for i, p := range filter.Priorities {
			values[i] = string(p)
		}
		b = b.Where(sq.Eq{"t.priority": values})
	}
	if filter.CategoryID != nil {
		b = b.Where(sq.Eq{"t.category_id": *filter.CategoryID})
	}
	if filter.Assigned != nil {
		if *filter.Assigned {
			b = b.Where(sq.NotEq{"t.assigned_user_id": nil})
		} else {
			b = b.Where(sq.Eq{"t.assigned_user_id": nil})
		}
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.TrimSpace(*filter.SearchTerm) + "%"
		b = b.Where(sq.Or{
			sq.ILike{"t.title": search},
			sq.ILike{"t.description": search},
			sq.ILike{"t.external_key": search},
		})
	}
	if filter.CreatedFrom != nil {
		b = b.Where(sq.GtOrEq{"t.created_at": *filter.CreatedFrom})
	}
	if filter.CreatedTo != nil {
		b = b.Where(sq.LtOrEq{"t.created_at": *filter.CreatedTo})
	}
	if filter.UpdatedFrom != nil {
		b = b.Where(sq.GtOrEq{"t.updated_at": *filter.UpdatedFrom})
	}
	if filter.UpdatedTo != nil {
		b = b.Where(sq.LtOrEq{"t.updated_at": *filter.UpdatedTo})
	}
	return b
}

func (r *ticketRepository) ListUnassignedIDs(ctx context.Context, from, to *time.Time) ([]string, error) {
	b := r.psql.Select("id").
		From("tickets").
		Where(sq.Eq{"technician_id": nil, "assigned_user_id": nil}).
		OrderBy("created_at ASC", "id ASC")
	if from != nil {
		b = b.Where(sq.GtOrEq{"created_at": *from})
	}
	if to != nil {
		b = b.Where(sq.LtOrEq{"created_at": *to})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *ticketRepository) CountOpenByTechnician(ctx context.Context, technicianIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(technicianIDs))
	if len(technicianIDs) == 0 {
		return counts, nil
	}

	query, args, err := r.psql.Select("technician_id", "COUNT(*)").
		From("tickets").
		Where(sq.Eq{
			"technician_id": technicianIDs,
			"status":        statusStrings(domain.OpenStatuses),
		}).
		GroupBy("technician_id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

func (r *ticketRepository) AssignIfUnassigned(ctx context.Context, ticketID string, assignment domain.Assignment) (*domain.Ticket, bool, error) {
	const query = `
        UPDATE tickets SET technician_id=$2, assigned_user_id=$3, status=$4, updated_at=NOW()
        WHERE id=$1 AND technician_id IS NULL AND assigned_user_id IS NULL`
	cmd, err := r.pool.Exec(ctx, query,
		ticketID,
		assignment.TechnicianID,
		assignment.UserID,
		domain.TicketStatusInProgress,
	)
	if err != nil {
		return nil, false, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, false, nil
	}

	ticket, err := r.GetByID(ctx, ticketID)
	if err != nil {
		return nil, true, err
	}
	return ticket, true, nil
}

func statusStrings(statuses []domain.TicketStatus) []string {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return values
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket                   domain.Ticket
		techID, userID           *string
		techName, techEmail, tel *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.Title,
		&ticket.Description,
		&ticket.CategoryID,
		&ticket.SubcategoryID,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatorID,
		&techID,
		&userID,
		&ticket.DueDate,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&techName,
		&techEmail,
		&tel,
	); err != nil {
		return nil, err
	}

	ticket.Assignment = domain.AssignmentFromColumns(techID, userID)
	if ticket.Assignment != nil && techName != nil {
		ticket.Assignee = &domain.AssigneeContact{Name: *techName}
		if techEmail != nil {
			ticket.Assignee.Email = *techEmail
		}
		if tel != nil {
			ticket.Assignee.Phone = *tel
		}
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
