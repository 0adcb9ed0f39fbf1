package department

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/approval"
	departmentDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/department"
)

type RepositoryAPI interface {
	List(ctx context.Context, activeOnly bool) ([]*departmentDatamodel.Department, error)
	GetByID(ctx context.Context, id int64) (*departmentDatamodel.Department, error)
	GetByCode(ctx context.Context, code string) (*departmentDatamodel.Department, error)
	Create(ctx context.Context, d *departmentDatamodel.Department) error
	Update(ctx context.Context, d *departmentDatamodel.Department) error
	Delete(ctx context.Context, id int64) error
}

type DependentCounter interface {
	CountByDepartment(ctx context.Context, departmentID int64) (int64, error)
}

// RoleLevelSource lists the active roles considered for approval.
type RoleLevelSource interface {
	ActiveRoleLevels(ctx context.Context) ([]approval.RoleLevel, error)
}

type Service struct {
	repo       RepositoryAPI
	dependents DependentCounter
	roles      RoleLevelSource
	matcher    *approval.Matcher
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, dependents DependentCounter, roles RoleLevelSource, matcher *approval.Matcher, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		dependents: dependents,
		roles:      roles,
		matcher:    matcher,
		logger:     logger,
	}
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]*Department, error) {
	rows, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		s.logger.Error("failed to list departments", "error", err)
		return nil, err
	}
	out := make([]*Department, len(rows))
	for i, d := range rows {
		out[i] = FromDataModel(d)
	}
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Department, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(row), nil
}

func (s *Service) Create(ctx context.Context, dto CreateDepartmentDTO) (*Department, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureCodeFree(ctx, dto.Code, 0); err != nil {
		return nil, err
	}

	active := true
	if dto.IsActive != nil {
		active = *dto.IsActive
	}

	row := ToDataModel(&Department{
		Name:        dto.Name,
		Code:        dto.Code,
		Description: dto.Description,
		Level:       dto.Level,
		IsActive:    active,
	})
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create department", "code", dto.Code, "error", err)
		return nil, err
	}

	s.logger.Info("department created", "department_id", row.ID, "code", row.Code, "level", row.Level)
	return FromDataModel(row), nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateDepartmentDTO) (*Department, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := FromDataModel(row)

	if dto.Code != nil && *dto.Code != d.Code {
		if err := s.ensureCodeFree(ctx, *dto.Code, id); err != nil {
			return nil, err
		}
		d.Code = *dto.Code
	}
	if dto.Name != nil {
		d.Name = *dto.Name
	}
	if dto.Description != nil {
		d.Description = *dto.Description
	}
	if dto.Level != nil {
		d.Level = *dto.Level
	}
	if dto.IsActive != nil {
		d.IsActive = *dto.IsActive
	}

	updated := ToDataModel(d)
	if err := s.repo.Update(ctx, updated); err != nil {
		s.logger.Error("failed to update department", "department_id", id, "error", err)
		return nil, err
	}
	return FromDataModel(updated), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	n, err := s.dependents.CountByDepartment(ctx, id)
	if err != nil {
		return fmt.Errorf("count department dependents: %w", err)
	}
	if n > 0 {
		return internal.NewConflictError(
			fmt.Sprintf("department has %d user(s); reassign them first", n),
			internal.ErrCodeDepartmentInUse,
		)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete department", "department_id", id, "error", err)
		return err
	}
	s.logger.Info("department deleted", "department_id", id)
	return nil
}

// Approvers runs the approval matcher for the department's tier over active roles.
// A missing band comes back as a warning in the response, not as an error.
func (s *Service) Approvers(ctx context.Context, id int64) (*ApproversResponse, error) {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	roles, err := s.roles.ActiveRoleLevels(ctx)
	if err != nil {
		return nil, err
	}

	result, matchErr := s.matcher.Match(d.Level, roles)
	resp := &ApproversResponse{DepartmentID: d.ID, Result: result}
	if matchErr != nil {
		warning, ok := internal.IsAppError(matchErr)
		if !ok || warning.Type != internal.ErrorTypeWarning {
			return nil, matchErr
		}
		s.logger.Warn("department tier has no approval band", "department_id", id, "tier", d.Level)
		resp.Warning = warning
	}
	return resp, nil
}

func (s *Service) ensureCodeFree(ctx context.Context, code string, excludeID int64) error {
	existing, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != excludeID {
		return internal.NewConflictError(fmt.Sprintf("department code %q already exists", code), internal.ErrCodeDepartmentCodeTaken)
	}
	return nil
}
