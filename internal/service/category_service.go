package service

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// CategoryService manages the ticket category tree.
type CategoryService struct {
	categories repository.CategoryRepository
}

// NewCategoryService constructs the service.
func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// Create adds an active category.
func (s *CategoryService) Create(ctx context.Context, name, description string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	category := &domain.Category{
		Name:          name,
		Description:   strings.TrimSpace(description),
		IsActive:      true,
		Subcategories: []domain.Subcategory{},
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// CreateSubcategory adds an active subcategory under an existing category.
func (s *CategoryService) CreateSubcategory(ctx context.Context, categoryID, name string) (*domain.Subcategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": categoryID})
		}
		return nil, apperrors.MapError(err)
	}
	sub := &domain.Subcategory{CategoryID: categoryID, Name: name, IsActive: true}
	if err := s.categories.CreateSubcategory(ctx, sub); err != nil {
		return nil, apperrors.MapError(err)
	}
	return sub, nil
}

// ListActive returns active categories with their active subcategories.
func (s *CategoryService) ListActive(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return categories, nil
}
