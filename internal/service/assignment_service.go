package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AssignOutcome describes how a single assignment attempt ended.
type AssignOutcome string

const (
	OutcomeAssigned             AssignOutcome = "assigned"
	OutcomeNoEligibleTechnician AssignOutcome = "no_eligible_technician"
	OutcomeLinkageLost          AssignOutcome = "linkage_lost"
	OutcomeAlreadyAssigned      AssignOutcome = "already_assigned"
)

// AssignResult reports the outcome of AssignOne. Ticket is the ticket as
// stored after the attempt; Technician is set when one was chosen.
type AssignResult struct {
	Outcome    AssignOutcome
	Ticket     *domain.Ticket
	Technician *domain.Technician
}

// AssignWindow restricts a batch to tickets created within [Start, End].
// Either bound may be nil.
type AssignWindow struct {
	Start *time.Time
	End   *time.Time
}

// OutcomeRecorder receives assignment outcomes, e.g. for metrics.
type OutcomeRecorder interface {
	RecordAssignment(outcome string)
}

// AssignmentService picks the least-loaded eligible technician for
// unassigned tickets. It never reassigns a ticket.
type AssignmentService struct {
	tickets     repository.TicketRepository
	technicians repository.TechnicianRepository
	history     repository.TicketHistoryRepository
	dispatcher  events.Dispatcher
	recorder    OutcomeRecorder
	logger      *zap.Logger
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo     repository.TicketRepository
	TechnicianRepo repository.TechnicianRepository
	HistoryRepo    repository.TicketHistoryRepository
	Dispatcher     events.Dispatcher
	Recorder       OutcomeRecorder
	Logger         *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tickets:     deps.TicketRepo,
		technicians: deps.TechnicianRepo,
		history:     deps.HistoryRepo,
		dispatcher:  deps.Dispatcher,
		recorder:    deps.Recorder,
		logger:      logger,
	}
}

// AssignOne assigns the ticket to the eligible technician with the fewest
// open tickets. Not finding anyone is an outcome, not an error; only a
// missing ticket or a persistence failure is returned as error.
func (s *AssignmentService) AssignOne(ctx context.Context, ticketID string) (*AssignResult, error) {
	result, err := s.assignOne(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.RecordAssignment(string(result.Outcome))
	}
	return result, nil
}

func (s *AssignmentService) assignOne(ctx context.Context, ticketID string) (*AssignResult, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.IsAssigned() {
		return &AssignResult{Outcome: OutcomeAlreadyAssigned, Ticket: ticket}, nil
	}

	loads, err := s.rankedLoads(ctx)
	if err != nil {
		return nil, err
	}
	if len(loads) == 0 {
		s.logger.Info("no eligible technician for ticket", zap.String("ticket_id", ticket.ID))
		return &AssignResult{Outcome: OutcomeNoEligibleTechnician, Ticket: ticket}, nil
	}
	chosen := loads[0].Technician

	// The profile may have been unlinked or removed since it was listed.
	current, err := s.technicians.GetByID(ctx, chosen.ID)
	if err != nil && !apperrors.IsNoRows(err) {
		return nil, apperrors.MapError(err)
	}
	if current == nil || current.LinkedUserID == nil || *current.LinkedUserID == "" {
		s.logger.Warn("chosen technician lost its user link; skipping assignment",
			zap.String("ticket_id", ticket.ID),
			zap.String("technician_id", chosen.ID))
		return &AssignResult{Outcome: OutcomeLinkageLost, Ticket: ticket}, nil
	}

	assignment, err := domain.NewAssignment(current.ID, *current.LinkedUserID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	assigned, ok, err := s.tickets.AssignIfUnassigned(ctx, ticket.ID, *assignment)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !ok {
		latest, err := s.tickets.GetByID(ctx, ticket.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		return &AssignResult{Outcome: OutcomeAlreadyAssigned, Ticket: latest}, nil
	}

	s.recordAssignment(ctx, ticket, assigned)
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketAssigned,
		TicketID:  assigned.ID,
		TicketKey: assigned.ExternalKey,
		Actor:     systemActor(),
		Payload: events.TicketAssignedPayload{
			TechnicianID:   assignment.TechnicianID,
			AssignedUserID: assignment.UserID,
			Automatic:      true,
		},
	})
	s.logger.Info("ticket assigned",
		zap.String("ticket_id", assigned.ID),
		zap.String("technician_id", current.ID),
		zap.Int("open_load", loads[0].OpenCount))
	return &AssignResult{Outcome: OutcomeAssigned, Ticket: assigned, Technician: current}, nil
}

// AssignBatch runs AssignOne over every unassigned ticket, oldest first,
// and returns how many were assigned. A persistence error stops the batch
// and is returned with the count reached so far. Running it again is safe.
func (s *AssignmentService) AssignBatch(ctx context.Context, window *AssignWindow) (int, error) {
	var from, to *time.Time
	if window != nil {
		from, to = window.Start, window.End
		if from != nil && to != nil && from.After(*to) {
			return 0, apperrors.NewValidationError("window start is after end", map[string]any{
				"start": from.Format(time.RFC3339),
				"end":   to.Format(time.RFC3339),
			})
		}
	}

	ids, err := s.tickets.ListUnassignedIDs(ctx, from, to)
	if err != nil {
		return 0, apperrors.MapError(err)
	}

	assigned := 0
	for _, id := range ids {
		result, err := s.AssignOne(ctx, id)
		if err != nil {
			if apperrors.Is(err, apperrors.CodeNotFound) {
				continue
			}
			s.logger.Error("assignment batch stopped",
				zap.String("ticket_id", id),
				zap.Int("assigned", assigned),
				zap.Error(err))
			return assigned, err
		}
		if result.Outcome == OutcomeAssigned {
			assigned++
		}
	}

	s.logger.Info("assignment batch finished",
		zap.Int("candidates", len(ids)),
		zap.Int("assigned", assigned))
	return assigned, nil
}

// Workloads lists assignable technicians with their open ticket counts, in
// the order the engine would pick them.
func (s *AssignmentService) Workloads(ctx context.Context) ([]domain.TechnicianLoad, error) {
	return s.rankedLoads(ctx)
}

func (s *AssignmentService) rankedLoads(ctx context.Context) ([]domain.TechnicianLoad, error) {
	candidates, err := s.technicians.ListAssignable(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	eligible := make([]domain.Technician, 0, len(candidates))
	for _, tech := range candidates {
		if tech.Assignable() {
			eligible = append(eligible, tech)
		}
	}
	if len(eligible) == 0 {
		return []domain.TechnicianLoad{}, nil
	}

	ids := make([]string, len(eligible))
	for i, tech := range eligible {
		ids[i] = tech.ID
	}
	counts, err := s.tickets.CountOpenByTechnician(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rankByLoad(eligible, counts), nil
}

// rankByLoad orders technicians by open ticket count, then creation
// sequence, then id.
func rankByLoad(techs []domain.Technician, counts map[string]int) []domain.TechnicianLoad {
	loads := make([]domain.TechnicianLoad, len(techs))
	for i, tech := range techs {
		loads[i] = domain.TechnicianLoad{Technician: tech, OpenCount: counts[tech.ID]}
	}
	sort.SliceStable(loads, func(i, j int) bool {
		a, b := loads[i], loads[j]
		if a.OpenCount != b.OpenCount {
			return a.OpenCount < b.OpenCount
		}
		if a.Technician.Seq != b.Technician.Seq {
			return a.Technician.Seq < b.Technician.Seq
		}
		return a.Technician.ID < b.Technician.ID
	})
	return loads
}

func (s *AssignmentService) recordAssignment(ctx context.Context, before, after *domain.Ticket) {
	recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
		TicketID:      after.ID,
		ChangedByRole: domain.SystemRole,
		ChangeType:    domain.ChangeTypeAssignment,
		OldValue:      assignmentValue(before.Assignment),
		NewValue:      assignmentValue(after.Assignment),
	})
	if before.Status != after.Status {
		recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
			TicketID:      after.ID,
			ChangedByRole: domain.SystemRole,
			ChangeType:    domain.ChangeTypeStatus,
			OldValue:      map[string]any{"status": before.Status},
			NewValue:      map[string]any{"status": after.Status},
		})
	}
}
