package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/core/database"
	roleDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/role"
	"github.com/frahmantamala/staff-management/internal/role"
	"gorm.io/gorm"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

var _ role.RepositoryAPI = (*RoleRepository)(nil)

func (r *RoleRepository) List(ctx context.Context, activeOnly bool) ([]*roleDatamodel.Role, error) {
	var roles []*roleDatamodel.Role
	q := database.Conn(ctx, r.db).Order("level ASC, name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*roleDatamodel.Role, error) {
	var row roleDatamodel.Role
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role %d: %w", id, err)
	}
	return &row, nil
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*roleDatamodel.Role, error) {
	var row roleDatamodel.Role
	err := database.Conn(ctx, r.db).Where("LOWER(name) = LOWER(?)", name).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get role by name: %w", err)
	}
	return &row, nil
}

func (r *RoleRepository) ActiveLevelTaken(ctx context.Context, level int, excludeID int64) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&roleDatamodel.Role{}).
		Where("level = ? AND is_active = ? AND id <> ?", level, true, excludeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check role level: %w", err)
	}
	return count > 0, nil
}

func (r *RoleRepository) Create(ctx context.Context, row *roleDatamodel.Role) error {
	if err := database.Conn(ctx, r.db).Create(row).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *RoleRepository) Update(ctx context.Context, row *roleDatamodel.Role) error {
	if err := database.Conn(ctx, r.db).Save(row).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	res := database.Conn(ctx, r.db).Delete(&roleDatamodel.Role{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete role %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrRoleNotFound
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.NewConflictError("role name or active level already in use", internal.ErrCodeRoleLevelTaken).WithCause(err)
	}
	return fmt.Errorf("write role: %w", err)
}
