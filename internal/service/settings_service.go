package service

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// SettingsService exposes runtime switches, falling back to configured
// defaults until an admin stores a value.
type SettingsService struct {
	repo              repository.SettingsRepository
	autoAssignDefault bool
}

// NewSettingsService constructs the service.
func NewSettingsService(repo repository.SettingsRepository, autoAssignDefault bool) *SettingsService {
	return &SettingsService{repo: repo, autoAssignDefault: autoAssignDefault}
}

// Get returns the effective settings.
func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	enabled, err := s.AutoAssignEnabled(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	return domain.Settings{AutoAssignEnabled: enabled}, nil
}

// AutoAssignEnabled reports whether batch assignment may run.
func (s *SettingsService) AutoAssignEnabled(ctx context.Context) (bool, error) {
	enabled, stored, err := s.repo.AutoAssignEnabled(ctx)
	if err != nil {
		return false, apperrors.NewInternalError(err)
	}
	if !stored {
		return s.autoAssignDefault, nil
	}
	return enabled, nil
}

// SetAutoAssignEnabled stores the toggle.
func (s *SettingsService) SetAutoAssignEnabled(ctx context.Context, enabled bool) (domain.Settings, error) {
	if err := s.repo.SetAutoAssignEnabled(ctx, enabled); err != nil {
		return domain.Settings{}, apperrors.NewInternalError(err)
	}
	return domain.Settings{AutoAssignEnabled: enabled}, nil
}
