package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestCategoryServiceCreate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCategoryRepo()
	svc := NewCategoryService(repo)

	category, err := svc.Create(ctx, "  Network ", " VPN and Wi-Fi ")
	require.NoError(t, err)
	assert.NotEmpty(t, category.ID)
	assert.Equal(t, "Network", category.Name)
	assert.Equal(t, "VPN and Wi-Fi", category.Description)
	assert.True(t, category.IsActive)

	_, err = svc.Create(ctx, "   ", "")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestCategoryServiceCreateSubcategory(t *testing.T) {
	ctx := context.Background()
	svc := NewCategoryService(newFakeCategoryRepo())

	sub, err := svc.CreateSubcategory(ctx, "hardware", "Monitors")
	require.NoError(t, err)
	assert.Equal(t, "hardware", sub.CategoryID)
	assert.True(t, sub.IsActive)

	_, err = svc.CreateSubcategory(ctx, "missing", "Monitors")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	_, err = svc.CreateSubcategory(ctx, "hardware", "")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestCategoryServiceListActiveSkipsInactive(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	categories, err := svc.ListActive(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Hardware", "Software"}, names)
}
