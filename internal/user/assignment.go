package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/department"
	"github.com/frahmantamala/staff-management/internal/role"
)

type RoleLookup interface {
	GetByID(ctx context.Context, id int64) (*role.Role, error)
}

type DepartmentLookup interface {
	GetByID(ctx context.Context, id int64) (*department.Department, error)
}

// Assignment is an optional role/department change written together with a
// status transition. Nil fields keep the current reference.
type Assignment struct {
	RoleID       *int64
	DepartmentID *int64
}

func (a Assignment) Empty() bool {
	return a.RoleID == nil && a.DepartmentID == nil
}

// Apply returns a copy of u carrying the assignment.
func (a Assignment) Apply(u *User) *User {
	cp := *u
	if a.RoleID != nil {
		cp.RoleID = a.RoleID
	}
	if a.DepartmentID != nil {
		cp.DepartmentID = a.DepartmentID
	}
	return &cp
}

// AssignmentChecker resolves a role/department pair and rejects references that
// were deleted or deactivated.
type AssignmentChecker struct {
	roles       RoleLookup
	departments DepartmentLookup
}

func NewAssignmentChecker(roles RoleLookup, departments DepartmentLookup) *AssignmentChecker {
	return &AssignmentChecker{roles: roles, departments: departments}
}

func (c *AssignmentChecker) Resolve(ctx context.Context, roleID, departmentID int64) (*role.Role, *department.Department, error) {
	r, err := c.Role(ctx, roleID)
	if err != nil {
		return nil, nil, err
	}
	d, err := c.Department(ctx, departmentID)
	if err != nil {
		return nil, nil, err
	}
	return r, d, nil
}

func (c *AssignmentChecker) Role(ctx context.Context, id int64) (*role.Role, error) {
	r, err := c.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, internal.ErrRoleNotFound) {
			return nil, internal.NewStaleReferenceError(
				fmt.Sprintf("role %d no longer exists", id), internal.ErrCodeStaleRole)
		}
		return nil, err
	}
	if !r.IsActive {
		return nil, internal.NewStaleReferenceError(
			fmt.Sprintf("role %q is inactive", r.Name), internal.ErrCodeStaleRole)
	}
	return r, nil
}

func (c *AssignmentChecker) Department(ctx context.Context, id int64) (*department.Department, error) {
	d, err := c.departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, internal.ErrDepartmentNotFound) {
			return nil, internal.NewStaleReferenceError(
				fmt.Sprintf("department %d no longer exists", id), internal.ErrCodeStaleDepartment)
		}
		return nil, err
	}
	if !d.IsActive {
		return nil, internal.NewStaleReferenceError(
			fmt.Sprintf("department %s is inactive", d.Code), internal.ErrCodeStaleDepartment)
	}
	return d, nil
}
