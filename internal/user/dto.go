package user

import (
	"strings"
	"time"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/approval"
	"github.com/frahmantamala/staff-management/internal/capability"
	"github.com/frahmantamala/staff-management/internal/core/common/validation"
)

type RegisterDTO struct {
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (d *RegisterDTO) Validate() error {
	d.Email = validation.NormalizeEmail(d.Email)
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)

	v := validation.NewValidator()
	v.Field("email", d.Email).Required().MaxLength(254).Email()
	v.Field("first_name", d.FirstName).Required().MaxLength(100)
	v.Field("last_name", d.LastName).MaxLength(100)
	if err := v.Validate(); err != nil {
		return err
	}
	if d.Password != "" {
		if err := validation.ValidatePassword(d.Password); err != nil {
			return err
		}
	}
	return nil
}

// CreateUserDTO is the administrative create. Status may be empty, PENDING_REGISTRATION
// or ACTIVE; the latter requires both role and department.
type CreateUserDTO struct {
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Password     string `json:"password,omitempty"`
	RoleID       *int64 `json:"role_id,omitempty"`
	DepartmentID *int64 `json:"department_id,omitempty"`
	Status       string `json:"status,omitempty"`
}

func (d *CreateUserDTO) Validate() error {
	d.Email = validation.NormalizeEmail(d.Email)
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Status = strings.ToUpper(strings.TrimSpace(d.Status))

	v := validation.NewValidator()
	v.Field("email", d.Email).Required().MaxLength(254).Email()
	v.Field("first_name", d.FirstName).Required().MaxLength(100)
	v.Field("last_name", d.LastName).MaxLength(100)
	v.Field("status", d.Status).OneOf(
		[]string{string(StatusPendingRegistration), string(StatusActive)},
		internal.ErrCodeInvalidStatus,
	)
	if err := v.Validate(); err != nil {
		return err
	}
	if d.Password != "" {
		if err := validation.ValidatePassword(d.Password); err != nil {
			return err
		}
	}
	return nil
}

// UpdateUserDTO edits profile fields and assignment. A RoleID or DepartmentID of 0
// clears the reference.
type UpdateUserDTO struct {
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	RoleID       *int64  `json:"role_id,omitempty"`
	DepartmentID *int64  `json:"department_id,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

func (d *UpdateUserDTO) Validate() error {
	v := validation.NewValidator()
	if d.FirstName != nil {
		trimmed := strings.TrimSpace(*d.FirstName)
		d.FirstName = &trimmed
		v.Field("first_name", trimmed).Required().MaxLength(100)
	}
	if d.LastName != nil {
		trimmed := strings.TrimSpace(*d.LastName)
		d.LastName = &trimmed
		v.Field("last_name", trimmed).MaxLength(100)
	}
	if d.RoleID != nil && *d.RoleID < 0 {
		v.Field("role_id", *d.RoleID).Custom(func(interface{}) *internal.AppError {
			return internal.NewValidationFieldError("role_id", "role_id must not be negative", internal.ErrCodeValidationFailed)
		})
	}
	if d.DepartmentID != nil && *d.DepartmentID < 0 {
		v.Field("department_id", *d.DepartmentID).Custom(func(interface{}) *internal.AppError {
			return internal.NewValidationFieldError("department_id", "department_id must not be negative", internal.ErrCodeValidationFailed)
		})
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// ListFilter narrows the staff directory. Zero values mean "any".
type ListFilter struct {
	Status       Status
	RoleID       int64
	DepartmentID int64
	Search       string
}

// DirectoryEntry is one row of the joined staff listing.
type DirectoryEntry struct {
	ID             int64     `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Status         Status    `db:"status" json:"status"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	RoleID         *int64    `db:"role_id" json:"role_id"`
	RoleName       *string   `db:"role_name" json:"role_name"`
	RoleLevel      *int      `db:"role_level" json:"role_level"`
	DepartmentID   *int64    `db:"department_id" json:"department_id"`
	DepartmentCode *string   `db:"department_code" json:"department_code"`
	DepartmentName *string   `db:"department_name" json:"department_name"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type UsersResponse struct {
	Users []*DirectoryEntry `json:"users"`
}

type AssignmentView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Code  string `json:"code,omitempty"`
	Level int    `json:"level"`
}

// ApprovalAuthority describes where the user's role level may approve.
type ApprovalAuthority struct {
	RoleLevel         int             `json:"role_level"`
	Bands             []approval.Band `json:"bands"`
	OwnDepartmentTier *int            `json:"own_department_tier,omitempty"`
	CanApproveOwn     bool            `json:"can_approve_own_department"`
}

// Profile is a user annotated with what the assigned role can do.
type Profile struct {
	*User
	Role           *AssignmentView    `json:"role,omitempty"`
	Department     *AssignmentView    `json:"department,omitempty"`
	Capabilities   capability.Profile `json:"capabilities"`
	Approval       *ApprovalAuthority `json:"approval,omitempty"`
	AllowedActions []Action           `json:"allowed_actions"`
}
