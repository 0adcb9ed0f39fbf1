package role

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/approval"
	"github.com/frahmantamala/staff-management/internal/capability"
	roleDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/role"
)

type RepositoryAPI interface {
	List(ctx context.Context, activeOnly bool) ([]*roleDatamodel.Role, error)
	GetByID(ctx context.Context, id int64) (*roleDatamodel.Role, error)
	GetByName(ctx context.Context, name string) (*roleDatamodel.Role, error)
	ActiveLevelTaken(ctx context.Context, level int, excludeID int64) (bool, error)
	Create(ctx context.Context, role *roleDatamodel.Role) error
	Update(ctx context.Context, role *roleDatamodel.Role) error
	Delete(ctx context.Context, id int64) error
}

// DependentCounter reports how many users still reference a role.
type DependentCounter interface {
	CountByRole(ctx context.Context, roleID int64) (int64, error)
}

type Service struct {
	repo       RepositoryAPI
	dependents DependentCounter
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, dependents DependentCounter, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		dependents: dependents,
		logger:     logger,
	}
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]*Role, error) {
	rows, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		s.logger.Error("failed to list roles", "error", err)
		return nil, err
	}
	roles := make([]*Role, len(rows))
	for i, r := range rows {
		roles[i] = FromDataModel(r)
	}
	return roles, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Role, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(row), nil
}

func (s *Service) Capabilities(ctx context.Context, id int64) (capability.Profile, error) {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return capability.Profile{}, err
	}
	return r.Capabilities(), nil
}

func (s *Service) Create(ctx context.Context, dto CreateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	active := true
	if dto.IsActive != nil {
		active = *dto.IsActive
	}

	if err := s.ensureNameFree(ctx, dto.Name, 0); err != nil {
		return nil, err
	}
	if active {
		if err := s.ensureLevelFree(ctx, dto.Level, 0); err != nil {
			return nil, err
		}
	}

	r := &Role{
		Name:        dto.Name,
		Description: dto.Description,
		Level:       dto.Level,
		Permissions: NormalizePermissions(dto.Permissions),
		IsActive:    active,
	}
	s.warnUnknown(r)

	row := ToDataModel(r)
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create role", "name", r.Name, "error", err)
		return nil, err
	}

	s.logger.Info("role created", "role_id", row.ID, "name", row.Name, "level", row.Level)
	return FromDataModel(row), nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r := FromDataModel(row)

	if dto.Name != nil && *dto.Name != r.Name {
		if err := s.ensureNameFree(ctx, *dto.Name, id); err != nil {
			return nil, err
		}
		r.Name = *dto.Name
	}
	if dto.Description != nil {
		r.Description = *dto.Description
	}
	if dto.Level != nil {
		r.Level = *dto.Level
	}
	if dto.IsActive != nil {
		r.IsActive = *dto.IsActive
	}
	if dto.Permissions != nil {
		r.Permissions = NormalizePermissions(*dto.Permissions)
		s.warnUnknown(r)
	}

	levelChanged := dto.Level != nil && *dto.Level != row.Level
	activated := r.IsActive && !row.IsActive
	if r.IsActive && (levelChanged || activated) {
		if err := s.ensureLevelFree(ctx, r.Level, id); err != nil {
			return nil, err
		}
	}

	updated := ToDataModel(r)
	if err := s.repo.Update(ctx, updated); err != nil {
		s.logger.Error("failed to update role", "role_id", id, "error", err)
		return nil, err
	}

	s.logger.Info("role updated", "role_id", id)
	return FromDataModel(updated), nil
}

// Delete removes a role. Users must be reassigned first.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	n, err := s.dependents.CountByRole(ctx, id)
	if err != nil {
		return fmt.Errorf("count role dependents: %w", err)
	}
	if n > 0 {
		s.logger.Warn("role delete blocked by dependents", "role_id", id, "users", n)
		return internal.NewConflictError(
			fmt.Sprintf("role is assigned to %d user(s); reassign them first", n),
			internal.ErrCodeRoleInUse,
		)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete role", "role_id", id, "error", err)
		return err
	}
	s.logger.Info("role deleted", "role_id", id)
	return nil
}

// ActiveRoleLevels feeds the approval matcher.
func (s *Service) ActiveRoleLevels(ctx context.Context) ([]approval.RoleLevel, error) {
	roles, err := s.List(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]approval.RoleLevel, len(roles))
	for i, r := range roles {
		out[i] = approval.RoleLevel{RoleID: r.ID, Name: r.Name, Level: r.Level}
	}
	return out, nil
}

func (s *Service) ensureNameFree(ctx context.Context, name string, excludeID int64) error {
	existing, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != excludeID {
		return internal.NewConflictError(fmt.Sprintf("role %q already exists", name), internal.ErrCodeRoleNameTaken)
	}
	return nil
}

func (s *Service) ensureLevelFree(ctx context.Context, level int, excludeID int64) error {
	taken, err := s.repo.ActiveLevelTaken(ctx, level, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return internal.NewConflictError(
			fmt.Sprintf("another active role already uses level %d", level),
			internal.ErrCodeRoleLevelTaken,
		)
	}
	return nil
}

func (s *Service) warnUnknown(r *Role) {
	if unknown := capability.Unknown(r.Permissions); len(unknown) > 0 {
		s.logger.Warn("role carries unrecognised permissions", "name", r.Name, "permissions", unknown)
	}
}
