package dto

import (
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const categoryID = "6b0f4c8e-1e0a-4a7d-9a55-0c2f3e7d8b21"

func TestValidateCreateTicket(t *testing.T) {
	ok := CreateTicketRequest{Title: "VPN", Description: "down", CategoryID: categoryID}
	require.NoError(t, Validate(&ok))

	ok.SubcategoryID = null.StringFrom("not-a-uuid")
	err := Validate(&ok)
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
	assert.Equal(t, "uuid", domainErr.Details["subcategory_id"])

	bad := CreateTicketRequest{Title: "VPN", Description: "down", CategoryID: categoryID, Priority: "URGENT"}
	err = Validate(&bad)
	assert.Equal(t, "ticket_priority", apperrors.ToDomainError(err).Details["priority"])
}

func TestValidateStatusAndRoleRules(t *testing.T) {
	status := "CLOSED"
	require.NoError(t, Validate(&CreateMessageRequest{Body: "thanks", Status: &status}))

	status = "DONE"
	err := Validate(&CreateMessageRequest{Body: "thanks", Status: &status})
	assert.Equal(t, "ticket_status", apperrors.ToDomainError(err).Details["status"])

	require.NoError(t, Validate(&CreateUserRequest{Name: "Tech", Email: "t@example.com", Password: "longenough", Role: "technician"}))
	err = Validate(&CreateUserRequest{Name: "Tech", Email: "t@example.com", Password: "longenough", Role: "ROOT"})
	assert.Equal(t, "user_role", apperrors.ToDomainError(err).Details["role"])
}

func TestValidateSettingsRequiresToggle(t *testing.T) {
	err := Validate(&SettingsRequest{})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	enabled := false
	assert.NoError(t, Validate(&SettingsRequest{AutoAssignEnabled: &enabled}))
}
