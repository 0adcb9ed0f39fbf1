package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/core/database"
	invitationDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/invitation"
	userDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	if err := database.Conn(ctx, r.db).Create(u).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

// FindByEmail returns nil, nil when no user has the address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	if err := database.Conn(ctx, r.db).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

// editableColumns excludes status, which only UpdateStatus may change.
var editableColumns = []string{"first_name", "last_name", "role_id", "department_id", "is_active", "password_hash", "updated_at"}

// Update writes the editable columns of u. The status column is never touched, so an
// edit that overlaps a status change cannot roll it back.
func (r *UserRepository) Update(ctx context.Context, u *userDatamodel.User) error {
	res := database.Conn(ctx, r.db).Model(&userDatamodel.User{ID: u.ID}).
		Select(editableColumns).
		Updates(u)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

// UpdateAssignment sets role and department only when the user is still in status.
func (r *UserRepository) UpdateAssignment(ctx context.Context, id int64, status string, roleID, departmentID *int64) (bool, error) {
	res := database.Conn(ctx, r.db).Model(&userDatamodel.User{}).
		Where("id = ? AND status = ?", id, status).
		Updates(map[string]interface{}{"role_id": roleID, "department_id": departmentID})
	if res.Error != nil {
		return false, fmt.Errorf("update user %d assignment: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// InvalidateInvitations closes every active invitation addressed to email.
func (r *UserRepository) InvalidateInvitations(ctx context.Context, email string) (int64, error) {
	res := database.Conn(ctx, r.db).Model(&invitationDatamodel.Invitation{}).
		Where("email = ? AND status = ?", email, "active").
		Update("status", "invalidated")
	if res.Error != nil {
		return 0, fmt.Errorf("invalidate invitations for %s: %w", email, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id int64, from, to string) (bool, error) {
	res := database.Conn(ctx, r.db).Model(&userDatamodel.User{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("update user %d status: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Delete removes the user and every invitation addressed to it. Callers should run
// it inside a transaction.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	conn := database.Conn(ctx, r.db)
	if err := conn.Where("user_id = ?", id).Delete(&invitationDatamodel.Invitation{}).Error; err != nil {
		return fmt.Errorf("delete invitations of user %d: %w", id, err)
	}

	res := conn.Delete(&userDatamodel.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) CountByRole(ctx context.Context, roleID int64) (int64, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&userDatamodel.User{}).Where("role_id = ?", roleID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return n, nil
}

func (r *UserRepository) CountByDepartment(ctx context.Context, departmentID int64) (int64, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&userDatamodel.User{}).Where("department_id = ?", departmentID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count users by department: %w", err)
	}
	return n, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.NewConflictError("email is already registered", internal.ErrCodeEmailTaken).WithCause(err)
	}
	return fmt.Errorf("write user: %w", err)
}
