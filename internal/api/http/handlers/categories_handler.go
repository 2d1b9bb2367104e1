package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// CategoriesHandler serves the category tree.
type CategoriesHandler struct {
	categories *service.CategoryService
}

// NewCategoriesHandler constructs handler.
func NewCategoriesHandler(categories *service.CategoryService) *CategoriesHandler {
	return &CategoriesHandler{categories: categories}
}

// List GET /categories.
func (h *CategoriesHandler) List(c *fiber.Ctx) error {
	categories, err := h.categories.ListActive(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, categoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /admin/categories.
func (h *CategoriesHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateCategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.categories.Create(c.UserContext(), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": categoryResponse(category)})
}

// CreateSubcategory POST /admin/categories/:id/subcategories.
func (h *CategoriesHandler) CreateSubcategory(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "category")
	if err != nil {
		return err
	}
	var req dto.CreateSubcategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sub, err := h.categories.CreateSubcategory(c.UserContext(), id, req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.SubcategoryResponse{
		ID:         sub.ID,
		CategoryID: sub.CategoryID,
		Name:       sub.Name,
	}})
}

func categoryResponse(category *domain.Category) dto.CategoryResponse {
	subs := make([]dto.SubcategoryResponse, 0, len(category.Subcategories))
	for _, sub := range category.Subcategories {
		subs = append(subs, dto.SubcategoryResponse{ID: sub.ID, CategoryID: sub.CategoryID, Name: sub.Name})
	}
	return dto.CategoryResponse{
		ID:            category.ID,
		Name:          category.Name,
		Description:   category.Description,
		Subcategories: subs,
	}
}
