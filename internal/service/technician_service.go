package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TechnicianService manages technician profiles and their user links.
type TechnicianService struct {
	technicians repository.TechnicianRepository
	users       repository.UserRepository
	logger      *zap.Logger
}

// TechnicianInput carries profile fields for creation.
type TechnicianInput struct {
	Name           string
	Email          string
	Phone          string
	Specialization string
	IsActive       *bool
}

// TechnicianPatch is a partial profile update.
type TechnicianPatch struct {
	Name           *string
	Email          *string
	Phone          *string
	Specialization *string
	IsActive       *bool
}

// NewTechnicianService constructs the service.
func NewTechnicianService(technicians repository.TechnicianRepository, users repository.UserRepository, logger *zap.Logger) *TechnicianService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TechnicianService{technicians: technicians, users: users, logger: logger}
}

// Create stores a new, unlinked technician profile.
func (s *TechnicianService) Create(ctx context.Context, input TechnicianInput) (*domain.Technician, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	tech := &domain.Technician{
		Name:           name,
		Email:          domain.NormalizeEmail(input.Email),
		Phone:          strings.TrimSpace(input.Phone),
		Specialization: strings.TrimSpace(input.Specialization),
		IsActive:       true,
	}
	if input.IsActive != nil {
		tech.IsActive = *input.IsActive
	}
	if err := s.technicians.Create(ctx, tech); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tech, nil
}

// List returns technicians matching filter in creation order.
func (s *TechnicianService) List(ctx context.Context, filter repository.TechnicianFilter) ([]domain.Technician, error) {
	techs, err := s.technicians.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return techs, nil
}

// Update applies a profile patch, including activation changes.
func (s *TechnicianService) Update(ctx context.Context, id string, patch TechnicianPatch) (*domain.Technician, error) {
	tech, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", nil)
		}
		tech.Name = name
	}
	if patch.Email != nil {
		tech.Email = domain.NormalizeEmail(*patch.Email)
	}
	if patch.Phone != nil {
		tech.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.Specialization != nil {
		tech.Specialization = strings.TrimSpace(*patch.Specialization)
	}
	if patch.IsActive != nil {
		tech.IsActive = *patch.IsActive
	}
	if err := s.technicians.Update(ctx, tech); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tech, nil
}

// LinkUser binds a TECHNICIAN user to the profile. A link is set once and
// each user may own at most one profile.
func (s *TechnicianService) LinkUser(ctx context.Context, technicianID, userID string) (*domain.Technician, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewValidationError("user not found", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	if user.Role != domain.RoleTechnician {
		return nil, apperrors.NewValidationError("user must have the TECHNICIAN role", map[string]any{
			"user_id": userID,
			"role":    user.Role,
		})
	}

	tech, err := s.get(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if tech.LinkedUserID != nil {
		return nil, apperrors.NewConflict("technician already linked", map[string]any{"technician_id": technicianID})
	}
	if owner, err := s.technicians.GetByLinkedUser(ctx, userID); err == nil {
		return nil, apperrors.NewConflict("user already linked to another technician", map[string]any{
			"user_id":       userID,
			"technician_id": owner.ID,
		})
	} else if !apperrors.IsNoRows(err) {
		return nil, apperrors.MapError(err)
	}

	linked, err := s.technicians.LinkUser(ctx, technicianID, userID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewConflict("technician already linked", map[string]any{"technician_id": technicianID})
		}
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("technician linked", zap.String("technician_id", linked.ID), zap.String("user_id", userID))
	return linked, nil
}

func (s *TechnicianService) get(ctx context.Context, id string) (*domain.Technician, error) {
	tech, err := s.technicians.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return tech, nil
}
