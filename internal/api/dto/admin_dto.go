package dto

import (
	"time"

	"github.com/aarondl/null/v8"
)

// CreateTechnicianRequest payload.
type CreateTechnicianRequest struct {
	Name           string      `json:"name" validate:"required,max=120"`
	Email          string      `json:"email" validate:"required,email"`
	Phone          null.String `json:"phone" validate:"omitempty,max=32"`
	Specialization null.String `json:"specialization" validate:"omitempty,max=120"`
	IsActive       *bool       `json:"is_active"`
}

// UpdateTechnicianRequest is a partial profile update.
type UpdateTechnicianRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=120"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Phone          *string `json:"phone" validate:"omitempty,max=32"`
	Specialization *string `json:"specialization" validate:"omitempty,max=120"`
	IsActive       *bool   `json:"is_active"`
}

// LinkTechnicianRequest binds a TECHNICIAN user to a profile.
type LinkTechnicianRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// TechnicianResponse represents a technician profile.
type TechnicianResponse struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Phone          string      `json:"phone"`
	Specialization string      `json:"specialization"`
	IsActive       bool        `json:"is_active"`
	LinkedUserID   null.String `json:"linked_user_id"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// WorkloadResponse is a technician with its open ticket count.
type WorkloadResponse struct {
	Technician TechnicianResponse `json:"technician"`
	OpenCount  int                `json:"open_count"`
}

// CreateCategoryRequest payload.
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
}

// CreateSubcategoryRequest payload.
type CreateSubcategoryRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// SubcategoryResponse represents a subcategory.
type SubcategoryResponse struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

// CategoryResponse represents a category with its active subcategories.
type CategoryResponse struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	Subcategories []SubcategoryResponse `json:"subcategories"`
}

// SettingsRequest toggles automatic assignment.
type SettingsRequest struct {
	AutoAssignEnabled *bool `json:"auto_assign_enabled" validate:"required"`
}

// SettingsResponse exposes the current settings.
type SettingsResponse struct {
	AutoAssignEnabled bool `json:"auto_assign_enabled"`
}
