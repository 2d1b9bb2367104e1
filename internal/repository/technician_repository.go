package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TechnicianRepository handles persistence for technician profiles.
type TechnicianRepository interface {
	Create(ctx context.Context, tech *domain.Technician) error
	Update(ctx context.Context, tech *domain.Technician) error
	GetByID(ctx context.Context, id string) (*domain.Technician, error)
	GetByLinkedUser(ctx context.Context, userID string) (*domain.Technician, error)
	List(ctx context.Context, filter TechnicianFilter) ([]domain.Technician, error)
	// ListAssignable returns active, linked technicians ordered by creation sequence.
	ListAssignable(ctx context.Context) ([]domain.Technician, error)
	// LinkUser binds a user to the technician if no user is linked yet.
	// It returns pgx.ErrNoRows when the technician is missing or already linked.
	LinkUser(ctx context.Context, technicianID, userID string) (*domain.Technician, error)
}

// TechnicianFilter defines query params for technician listing.
type TechnicianFilter struct {
	Active *bool
	Linked *bool
	Limit  int
	Offset int
}

type technicianRepository struct {
	pool *pgxpool.Pool
	psql sq.StatementBuilderType
}

// NewTechnicianRepository instantiates the repository.
func NewTechnicianRepository(pool *pgxpool.Pool) TechnicianRepository {
	return &technicianRepository{
		pool: pool,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

const technicianSelect = `
        SELECT id, seq, name, email, phone, specialization, is_active, linked_user_id, created_at, updated_at
        FROM technicians`

var technicianColumns = []string{
	"id", "seq", "name", "email", "phone", "specialization", "is_active", "linked_user_id", "created_at", "updated_at",
}

func (r *technicianRepository) Create(ctx context.Context, tech *domain.Technician) error {
	const query = `
        INSERT INTO technicians (name, email, phone, specialization, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, seq, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		tech.Name,
		tech.Email,
		tech.Phone,
		tech.Specialization,
		tech.IsActive,
	).Scan(&tech.ID, &tech.Seq, &tech.CreatedAt, &tech.UpdatedAt)
}

// Update writes profile fields. The linked user is only set through LinkUser.
func (r *technicianRepository) Update(ctx context.Context, tech *domain.Technician) error {
	const query = `
        UPDATE technicians
        SET name=$1, email=$2, phone=$3, specialization=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`

	return r.pool.QueryRow(ctx, query,
		tech.Name,
		tech.Email,
		tech.Phone,
		tech.Specialization,
		tech.IsActive,
		tech.ID,
	).Scan(&tech.UpdatedAt)
}

func (r *technicianRepository) GetByID(ctx context.Context, id string) (*domain.Technician, error) {
	return scanTechnician(r.pool.QueryRow(ctx, technicianSelect+` WHERE id=$1`, id))
}

func (r *technicianRepository) GetByLinkedUser(ctx context.Context, userID string) (*domain.Technician, error) {
	return scanTechnician(r.pool.QueryRow(ctx, technicianSelect+` WHERE linked_user_id=$1`, userID))
}

func (r *technicianRepository) List(ctx context.Context, filter TechnicianFilter) ([]domain.Technician, error) {
	b := r.psql.Select(technicianColumns...).From("technicians").OrderBy("seq ASC")
	if filter.Active != nil {
		b = b.Where(sq.Eq{"is_active": *filter.Active})
	}
	if filter.Linked != nil {
		if *filter.Linked {
			b = b.Where(sq.NotEq{"linked_user_id": nil})
		} else {
			b = b.Where(sq.Eq{"linked_user_id": nil})
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	b = b.Limit(uint64(limit)).Offset(uint64(offset))

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryTechnicians(ctx, query, args...)
}

func (r *technicianRepository) ListAssignable(ctx context.Context) ([]domain.Technician, error) {
	query, args, err := r.psql.Select(technicianColumns...).
		From("technicians").
		Where(sq.Eq{"is_active": true}).
		Where(sq.NotEq{"linked_user_id": nil}).
		OrderBy("seq ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryTechnicians(ctx, query, args...)
}

func (r *technicianRepository) LinkUser(ctx context.Context, technicianID, userID string) (*domain.Technician, error) {
	const query = `
        UPDATE technicians SET linked_user_id=$2, updated_at=NOW()
        WHERE id=$1 AND linked_user_id IS NULL
        RETURNING id, seq, name, email, phone, specialization, is_active, linked_user_id, created_at, updated_at`
	return scanTechnician(r.pool.QueryRow(ctx, query, technicianID, userID))
}

func (r *technicianRepository) queryTechnicians(ctx context.Context, query string, args ...any) ([]domain.Technician, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Technician{}
	for rows.Next() {
		tech, err := scanTechnician(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *tech)
	}
	return result, rows.Err()
}

func scanTechnician(row pgx.Row) (*domain.Technician, error) {
	var tech domain.Technician
	if err := row.Scan(
		&tech.ID,
		&tech.Seq,
		&tech.Name,
		&tech.Email,
		&tech.Phone,
		&tech.Specialization,
		&tech.IsActive,
		&tech.LinkedUserID,
		&tech.CreatedAt,
		&tech.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tech, nil
}
