package user

import (
	"strings"
	"time"

	userDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/user"
)

type Status string

const (
	StatusPendingRegistration Status = "PENDING_REGISTRATION"
	StatusInvited             Status = "INVITED"
	StatusActive              Status = "ACTIVE"
	StatusInactive            Status = "INACTIVE"
)

var Statuses = []Status{StatusPendingRegistration, StatusInvited, StatusActive, StatusInactive}

func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if string(st) == strings.ToUpper(strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	Status       Status    `json:"status"`
	RoleID       *int64    `json:"role_id"`
	DepartmentID *int64    `json:"department_id"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasAssignment reports whether both role and department are set.
func (u *User) HasAssignment() bool {
	return u.RoleID != nil && u.DepartmentID != nil
}

func (u *User) CanLogin() bool {
	return u.Status == StatusActive && u.IsActive && u.PasswordHash != ""
}

func NewPendingUser(email, firstName, lastName string) *User {
	now := time.Now()
	return &User{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Status:    StatusPendingRegistration,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Status:       string(u.Status),
		RoleID:       u.RoleID,
		DepartmentID: u.DepartmentID,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Status:       Status(u.Status),
		RoleID:       u.RoleID,
		DepartmentID: u.DepartmentID,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModelSlice(users []*userDatamodel.User) []*User {
	result := make([]*User, len(users))
	for i, u := range users {
		result[i] = FromDataModel(u)
	}
	return result
}
