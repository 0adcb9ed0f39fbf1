package invitation

import (
	"strings"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/core/common/validation"
	"github.com/frahmantamala/staff-management/internal/user"
)

// InviteByEmailDTO invites someone who has no user record yet. The names are kept on
// the invitation and become the user on acceptance.
type InviteByEmailDTO struct {
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	RoleID       int64  `json:"role_id"`
	DepartmentID int64  `json:"department_id"`
}

func (d *InviteByEmailDTO) Validate() error {
	d.Email = validation.NormalizeEmail(d.Email)
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)

	v := validation.NewValidator()
	v.Field("email", d.Email).Required().MaxLength(254).Email()
	v.Field("first_name", d.FirstName).Required().MaxLength(100)
	v.Field("last_name", d.LastName).MaxLength(100)
	v.Field("role_id", d.RoleID).Required()
	v.Field("department_id", d.DepartmentID).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type AcceptDTO struct {
	Code      string `json:"code"`
	Password  string `json:"password,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func (d *AcceptDTO) Validate() error {
	d.Code = strings.TrimSpace(d.Code)
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)

	v := validation.NewValidator()
	v.Field("code", d.Code).Required().MaxLength(128)
	v.Field("first_name", d.FirstName).MaxLength(100)
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

// IssueResult carries the raw code; it is never stored and never shown again.
// DeliveryError is set when the email could not be sent. The invitation stays valid.
type IssueResult struct {
	Invitation    *Invitation        `json:"invitation"`
	Code          string             `json:"code"`
	User          *user.User         `json:"user,omitempty"`
	Superseded    []int64            `json:"superseded"`
	Delivered     bool               `json:"delivered"`
	DeliveryError *internal.AppError `json:"delivery_error,omitempty"`
}

type AcceptResult struct {
	Invitation *Invitation `json:"invitation"`
	User       *user.User  `json:"user"`
}

type InvitationsResponse struct {
	Invitations []*Invitation `json:"invitations"`
}
