package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/core/database"
	departmentDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/department"
	"gorm.io/gorm"
)

type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) List(ctx context.Context, activeOnly bool) ([]*departmentDatamodel.Department, error) {
	var rows []*departmentDatamodel.Department
	q := database.Conn(ctx, r.db).Order("code ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return rows, nil
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id int64) (*departmentDatamodel.Department, error) {
	var row departmentDatamodel.Department
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("get department %d: %w", id, err)
	}
	return &row, nil
}

func (r *DepartmentRepository) GetByCode(ctx context.Context, code string) (*departmentDatamodel.Department, error) {
	var row departmentDatamodel.Department
	err := database.Conn(ctx, r.db).Where("code = ?", code).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get department by code: %w", err)
	}
	return &row, nil
}

func (r *DepartmentRepository) Create(ctx context.Context, row *departmentDatamodel.Department) error {
	return translate(database.Conn(ctx, r.db).Create(row).Error)
}

func (r *DepartmentRepository) Update(ctx context.Context, row *departmentDatamodel.Department) error {
	return translate(database.Conn(ctx, r.db).Save(row).Error)
}

func (r *DepartmentRepository) Delete(ctx context.Context, id int64) error {
	res := database.Conn(ctx, r.db).Delete(&departmentDatamodel.Department{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete department %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrDepartmentNotFound
	}
	return nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.NewConflictError("department code already exists", internal.ErrCodeDepartmentCodeTaken).WithCause(err)
	}
	return fmt.Errorf("write department: %w", err)
}
