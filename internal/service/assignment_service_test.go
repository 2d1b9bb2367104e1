package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestAssignOnePicksLeastLoadedEligibleTechnician(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	a := h.technicians.add("tech-a", true, "user-a")
	b := h.technicians.add("tech-b", true, "user-b")
	h.technicians.add("tech-c", false, "user-c")

	h.seedAssigned("client-1", a, domain.TicketStatusNew)
	h.seedAssigned("client-1", a, domain.TicketStatusInProgress)
	h.seedAssigned("client-1", b, domain.TicketStatusResolved)
	target := h.seedUnassigned("client-1")

	result, err := h.assignSvc.AssignOne(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAssigned, result.Outcome)
	require.NotNil(t, result.Technician)
	assert.Equal(t, b.ID, result.Technician.ID)

	stored, err := h.tickets.GetByID(ctx, target.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Assignment)
	assert.Equal(t, domain.Assignment{TechnicianID: "tech-b", UserID: "user-b"}, *stored.Assignment)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)
	assert.Equal(t, 1, h.recorder[string(OutcomeAssigned)])
}

func TestAssignOneWithOnlyUnlinkedTechnicianLeavesTicketUnassigned(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.technicians.add("tech-a", true, "")
	target := h.seedUnassigned("client-1")

	result, err := h.assignSvc.AssignOne(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoEligibleTechnician, result.Outcome)
	assert.Nil(t, result.Technician)

	stored, err := h.tickets.GetByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Assignment)
	assert.Equal(t, domain.TicketStatusNew, stored.Status)
	assert.Zero(t, h.tickets.updates)
	assert.Empty(t, h.history.entries)
}

// unlinkingTechnicianRepo reports every technician as unlinked on direct
// lookup, as if the link was removed after the assignable list was read.
type unlinkingTechnicianRepo struct {
	*fakeTechnicianRepo
}

func (r unlinkingTechnicianRepo) GetByID(ctx context.Context, id string) (*domain.Technician, error) {
	tech, err := r.fakeTechnicianRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tech.LinkedUserID = nil
	return tech, nil
}

func TestAssignOneSkipsTechnicianUnlinkedBeforeWrite(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.technicians.add("tech-a", true, "user-a")
	target := h.seedUnassigned("client-1")

	svc := NewAssignmentService(AssignmentDependencies{
		TicketRepo:     h.tickets,
		TechnicianRepo: unlinkingTechnicianRepo{h.technicians},
		HistoryRepo:    h.history,
		Dispatcher:     h.dispatcher,
		Recorder:       h.recorder,
	})

	result, err := svc.AssignOne(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeLinkageLost, result.Outcome)
	assert.Nil(t, result.Technician)

	stored, err := h.tickets.GetByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Assignment)
	assert.Equal(t, domain.TicketStatusNew, stored.Status)
	assert.Zero(t, h.tickets.updates)
	assert.Empty(t, h.history.entries)
	assert.Empty(t, h.dispatcher.events)
	assert.Equal(t, 1, h.recorder[string(OutcomeLinkageLost)])
}

func TestAssignOneNeverReassigns(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	a := h.technicians.add("tech-a", true, "user-a")
	h.technicians.add("tech-b", true, "user-b")
	ticket := h.seedAssigned("client-1", a, domain.TicketStatusInProgress)

	result, err := h.assignSvc.AssignOne(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyAssigned, result.Outcome)
	assert.Equal(t, "tech-a", result.Ticket.TechnicianID())
	assert.Zero(t, h.tickets.updates)
}

func TestAssignOneMissingTicket(t *testing.T) {
	h := newHarness()
	_, err := h.assignSvc.AssignOne(context.Background(), "missing")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestAssignOneRecordsSystemHistoryAndEvent(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.technicians.add("tech-a", true, "user-a")
	target := h.seedUnassigned("client-1")

	_, err := h.assignSvc.AssignOne(ctx, target.ID)
	require.NoError(t, err)

	assignments := h.history.ofType(domain.ChangeTypeAssignment)
	require.Len(t, assignments, 1)
	assert.Equal(t, domain.SystemRole, assignments[0].ChangedByRole)
	assert.Nil(t, assignments[0].ChangedByID)
	assert.Len(t, h.history.ofType(domain.ChangeTypeStatus), 1)

	require.Len(t, h.dispatcher.events, 1)
	event := h.dispatcher.events[0]
	assert.Equal(t, events.EventTicketAssigned, event.Type)
	assert.Nil(t, event.Actor.UserID)
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	require.True(t, ok)
	assert.True(t, payload.Automatic)
	assert.Equal(t, "user-a", payload.AssignedUserID)
}

func TestAssignBatchIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.technicians.add("tech-a", true, "user-a")
	h.technicians.add("tech-b", true, "user-b")
	for i := 0; i < 3; i++ {
		h.seedUnassigned("client-1")
	}

	first, err := h.assignSvc.AssignBatch(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, first)
	writes := h.tickets.updates

	second, err := h.assignSvc.AssignBatch(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, second)
	assert.Equal(t, writes, h.tickets.updates)

	loads, err := h.assignSvc.Workloads(ctx)
	require.NoError(t, err)
	require.Len(t, loads, 2)
	assert.Equal(t, "tech-b", loads[0].Technician.ID)
	assert.Equal(t, 1, loads[0].OpenCount)
	assert.Equal(t, 2, loads[1].OpenCount)
}

func TestAssignBatchRespectsWindow(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.technicians.add("tech-a", true, "user-a")
	early := h.seedUnassigned("client-1")
	late := h.seedUnassigned("client-1")

	start := late.CreatedAt
	count, err := h.assignSvc.AssignBatch(ctx, &AssignWindow{Start: &start})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := h.tickets.GetByID(ctx, early.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsAssigned())
}

func TestAssignBatchRejectsInvertedWindow(t *testing.T) {
	h := newHarness()
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	_, err := h.assignSvc.AssignBatch(context.Background(), &AssignWindow{Start: &start, End: &end})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestRankByLoadBreaksTiesByCreationOrder(t *testing.T) {
	techs := []domain.Technician{
		{ID: "tech-z", Seq: 3},
		{ID: "tech-y", Seq: 1},
		{ID: "tech-x", Seq: 2},
	}
	loads := rankByLoad(techs, map[string]int{"tech-x": 1})

	ids := make([]string, len(loads))
	for i, l := range loads {
		ids[i] = l.Technician.ID
	}
	assert.Equal(t, []string{"tech-y", "tech-z", "tech-x"}, ids)
}

func TestAssignmentPairingHoldsAfterMixedOperations(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.technicians.add("tech-a", true, "user-a")
	h.technicians.add("tech-b", true, "")
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	for i := 0; i < 4; i++ {
		h.seedUnassigned("client-1")
	}
	_, err := h.assignSvc.AssignBatch(ctx, nil)
	require.NoError(t, err)

	list, _, err := h.ticketSvc.ListTickets(ctx, admin, TicketListFilter{})
	require.NoError(t, err)
	_, err = h.ticketSvc.UpdateTicket(ctx, list[0].ID, admin, unassignPatch())
	require.NoError(t, err)

	for _, ticket := range h.tickets.tickets {
		if ticket.Assignment == nil {
			continue
		}
		assert.NotEmpty(t, ticket.Assignment.TechnicianID)
		assert.NotEmpty(t, ticket.Assignment.UserID)
		tech, err := h.technicians.GetByID(ctx, ticket.Assignment.TechnicianID)
		require.NoError(t, err)
		require.NotNil(t, tech.LinkedUserID)
		assert.Equal(t, *tech.LinkedUserID, ticket.Assignment.UserID)
	}
}
