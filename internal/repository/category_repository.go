package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CategoryRepository manages categories and their subcategories.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	// ListActive returns active categories with their active subcategories.
	ListActive(ctx context.Context) ([]domain.Category, error)
	CreateSubcategory(ctx context.Context, sub *domain.Subcategory) error
	GetSubcategory(ctx context.Context, id string) (*domain.Subcategory, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (name, description, is_active)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		category.Name,
		category.Description,
		category.IsActive,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	const query = `
        SELECT id, name, description, is_active, created_at, updated_at
        FROM categories WHERE id=$1`
	var category domain.Category
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.IsActive,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) ListActive(ctx context.Context) ([]domain.Category, error) {
	const query = `
        SELECT c.id, c.name, c.description, c.is_active, c.created_at, c.updated_at,
               s.id, s.name, s.is_active, s.created_at, s.updated_at
        FROM categories c
        LEFT JOIN subcategories s ON s.category_id = c.id AND s.is_active
        WHERE c.is_active
        ORDER BY c.name ASC, s.name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Category{}
	index := map[string]int{}
	for rows.Next() {
		var (
			category   domain.Category
			subID      *string
			subName    *string
			subActive  *bool
			subCreated *time.Time
			subUpdated *time.Time
		)
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Description,
			&category.IsActive,
			&category.CreatedAt,
			&category.UpdatedAt,
			&subID,
			&subName,
			&subActive,
			&subCreated,
			&subUpdated,
		); err != nil {
			return nil, err
		}

		pos, seen := index[category.ID]
		if !seen {
			category.Subcategories = []domain.Subcategory{}
			result = append(result, category)
			pos = len(result) - 1
			index[category.ID] = pos
		}
		if subID != nil {
			sub := domain.Subcategory{ID: *subID, CategoryID: category.ID, IsActive: true}
			if subName != nil {
				sub.Name = *subName
			}
			if subCreated != nil {
				sub.CreatedAt = *subCreated
			}
			if subUpdated != nil {
				sub.UpdatedAt = *subUpdated
			}
			result[pos].Subcategories = append(result[pos].Subcategories, sub)
		}
	}
	return result, rows.Err()
}

func (r *categoryRepository) CreateSubcategory(ctx context.Context, sub *domain.Subcategory) error {
	const query = `
        INSERT INTO subcategories (category_id, name, is_active)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		sub.CategoryID,
		sub.Name,
		sub.IsActive,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
}

func (r *categoryRepository) GetSubcategory(ctx context.Context, id string) (*domain.Subcategory, error) {
	const query = `
        SELECT id, category_id, name, is_active, created_at, updated_at
        FROM subcategories WHERE id=$1`
	var sub domain.Subcategory
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&sub.ID,
		&sub.CategoryID,
		&sub.Name,
		&sub.IsActive,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &sub, nil
}
