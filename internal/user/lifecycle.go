package user

import (
	"fmt"
	"strings"

	"github.com/frahmantamala/staff-management/internal"
)

type Action string

const (
	ActionInvite     Action = "invite"
	ActionResend     Action = "resend"
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
	// ActionAccept is applied by invitation redemption only.
	ActionAccept Action = "accept"
)

var adminActions = []Action{ActionInvite, ActionResend, ActionActivate, ActionDeactivate}

func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range adminActions {
		if a == known {
			return a, nil
		}
	}
	return "", internal.NewValidationFieldError("action",
		fmt.Sprintf("unknown action %q", s), internal.ErrCodeInvalidAction)
}

type transition struct {
	to              Status
	needsAssignment bool
}

// StateMachine holds the legal status transitions of a staff account.
type StateMachine struct {
	table map[Status]map[Action]transition
}

func NewStateMachine() *StateMachine {
	invite := transition{to: StatusInvited, needsAssignment: true}
	activate := transition{to: StatusActive, needsAssignment: true}
	deactivate := transition{to: StatusInactive}

	return &StateMachine{table: map[Status]map[Action]transition{
		StatusPendingRegistration: {
			ActionInvite:     invite,
			ActionActivate:   activate,
			ActionAccept:     activate,
			ActionDeactivate: deactivate,
		},
		StatusInvited: {
			ActionInvite:     invite,
			ActionResend:     invite,
			ActionActivate:   activate,
			ActionAccept:     activate,
			ActionDeactivate: deactivate,
		},
		StatusActive: {
			ActionDeactivate: deactivate,
		},
		StatusInactive: {
			ActionInvite:     invite,
			ActionActivate:   activate,
			ActionDeactivate: deactivate,
		},
	}}
}

// Next returns the status u moves to under action, or why it cannot.
// Transition legality is checked before the role/department guard.
func (m *StateMachine) Next(u *User, action Action) (Status, error) {
	from, ok := m.table[u.Status]
	if !ok {
		return "", internal.NewPreconditionError(
			fmt.Sprintf("user has unknown status %q", u.Status), internal.ErrCodeInvalidStatus)
	}

	t, ok := from[action]
	if !ok {
		if !m.known(action) {
			return "", internal.NewValidationFieldError("action",
				fmt.Sprintf("unknown action %q", action), internal.ErrCodeInvalidAction)
		}
		return "", internal.NewPreconditionError(
			fmt.Sprintf("cannot %s a user in status %s", action, u.Status), internal.ErrCodeIllegalTransition)
	}

	if t.needsAssignment {
		if err := CheckAssignment(u); err != nil {
			return "", err
		}
	}

	return t.to, nil
}

func (m *StateMachine) known(action Action) bool {
	for _, actions := range m.table {
		if _, ok := actions[action]; ok {
			return true
		}
	}
	return false
}

// Allowed lists the administrative actions legal from status, in a stable order.
func (m *StateMachine) Allowed(status Status) []Action {
	out := make([]Action, 0, len(adminActions))
	for _, a := range adminActions {
		if _, ok := m.table[status][a]; ok {
			out = append(out, a)
		}
	}
	return out
}

// CheckAssignment fails with a validation error naming each missing field.
func CheckAssignment(u *User) error {
	var missing []internal.ValidationError
	if u.RoleID == nil {
		missing = append(missing, internal.ValidationError{
			Field: "role_id", Message: "role is required", Code: string(internal.ErrCodeRequiredField),
		})
	}
	if u.DepartmentID == nil {
		missing = append(missing, internal.ValidationError{
			Field: "department_id", Message: "department is required", Code: string(internal.ErrCodeRequiredField),
		})
	}
	if len(missing) == 0 {
		return nil
	}
	return internal.NewValidationError("role and department required", internal.ErrCodeRoleDepartmentNeeded).
		WithDetails(internal.ValidationErrors{Errors: missing})
}
