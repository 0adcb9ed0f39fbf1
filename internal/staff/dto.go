package staff

import (
	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/core/common/validation"
	"github.com/frahmantamala/staff-management/internal/invitation"
	"github.com/frahmantamala/staff-management/internal/user"
)

// TransitionDTO is the payload of transitionUser. RoleID and DepartmentID, when set,
// are assigned together with the transition, so an admin can assign and invite in
// one call.
type TransitionDTO struct {
	Action       string `json:"action"`
	RoleID       *int64 `json:"role_id,omitempty"`
	DepartmentID *int64 `json:"department_id,omitempty"`
}

func (d *TransitionDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("action", d.Action).Required()
	if d.RoleID != nil {
		v.Field("role_id", *d.RoleID).Custom(positiveID("role_id"))
	}
	if d.DepartmentID != nil {
		v.Field("department_id", *d.DepartmentID).Custom(positiveID("department_id"))
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func positiveID(field string) func(interface{}) *internal.AppError {
	return func(value interface{}) *internal.AppError {
		if id, ok := value.(int64); ok && id > 0 {
			return nil
		}
		return internal.NewValidationFieldError(field, field+" must be a positive id", internal.ErrCodeValidationFailed)
	}
}

func (d *TransitionDTO) assigns() bool {
	return d.RoleID != nil || d.DepartmentID != nil
}

// TransitionResult is the user after the transition. Invitation is set for invite
// and resend.
type TransitionResult struct {
	User       *user.User               `json:"user"`
	Invitation *invitation.IssueResult `json:"invitation,omitempty"`
}
