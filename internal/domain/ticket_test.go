package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAssignmentRejectsMissingHalf(t *testing.T) {
	_, err := NewAssignment("", "user-1")
	assert.ErrorIs(t, err, ErrIncompleteAssignment)

	_, err = NewAssignment("tech-1", "")
	assert.ErrorIs(t, err, ErrIncompleteAssignment)

	a, err := NewAssignment("tech-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "tech-1", a.TechnicianID)
	assert.Equal(t, "user-1", a.UserID)
}

func TestAssignmentFromColumns(t *testing.T) {
	tech, user := "tech-1", "user-1"

	assert.Nil(t, AssignmentFromColumns(nil, nil))
	assert.Nil(t, AssignmentFromColumns(&tech, nil), "stray technician reference is not an assignment")
	assert.Nil(t, AssignmentFromColumns(nil, &user))

	a := AssignmentFromColumns(&tech, &user)
	require.NotNil(t, a)
	gotTech, gotUser := a.Columns()
	assert.Equal(t, tech, *gotTech)
	assert.Equal(t, user, *gotUser)

	var empty *Assignment
	gotTech, gotUser = empty.Columns()
	assert.Nil(t, gotTech)
	assert.Nil(t, gotUser)
}

func TestTicketStatusPredicates(t *testing.T) {
	assert.True(t, TicketStatusResolved.Finished())
	assert.True(t, TicketStatusClosed.Finished())
	assert.False(t, TicketStatusWaitingForClient.Finished())

	assert.True(t, TicketStatusNew.Open())
	assert.True(t, TicketStatusInProgress.Open())
	assert.False(t, TicketStatusWaitingForClient.Open())

	assert.False(t, TicketStatus("OPEN").Valid())
	assert.True(t, TicketPriorityCritical.Valid())
	assert.False(t, TicketPriority("URGENT").Valid())
}

func TestTechnicianAssignable(t *testing.T) {
	userID := "user-1"
	tech := Technician{IsActive: true}
	assert.False(t, tech.Assignable())

	tech.LinkedUserID = &userID
	assert.True(t, tech.Assignable())

	tech.IsActive = false
	assert.False(t, tech.Assignable())
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" technician ")
	assert.True(t, ok)
	assert.Equal(t, RoleTechnician, role)

	_, ok = ParseRole("")
	assert.False(t, ok)
}
