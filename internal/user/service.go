package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/approval"
	"github.com/frahmantamala/staff-management/internal/capability"
	userDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/user"
	"github.com/frahmantamala/staff-management/internal/core/events"
	"golang.org/x/crypto/bcrypt"
)

type RepositoryAPI interface {
	Create(ctx context.Context, u *userDatamodel.User) error
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	Update(ctx context.Context, u *userDatamodel.User) error
	// UpdateStatus moves the user from one status to another only if it is still
	// in from; ok is false when another writer got there first.
	UpdateStatus(ctx context.Context, id int64, from, to string) (ok bool, err error)
	// UpdateAssignment sets role and department only while the user is in status.
	UpdateAssignment(ctx context.Context, id int64, status string, roleID, departmentID *int64) (ok bool, err error)
	InvalidateInvitations(ctx context.Context, email string) (int64, error)
	Delete(ctx context.Context, id int64) error
	CountByRole(ctx context.Context, roleID int64) (int64, error)
	CountByDepartment(ctx context.Context, departmentID int64) (int64, error)
}

type DirectoryAPI interface {
	List(ctx context.Context, filter ListFilter) ([]*DirectoryEntry, error)
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo        RepositoryAPI
	directory   DirectoryAPI
	assignments *AssignmentChecker
	machine     *StateMachine
	matcher     *approval.Matcher
	tx          Transactor
	publisher   Publisher
	bcryptCost  int
	logger      *slog.Logger
}

type ServiceDeps struct {
	Repo        RepositoryAPI
	Directory   DirectoryAPI
	Assignments *AssignmentChecker
	Machine     *StateMachine
	Matcher     *approval.Matcher
	Tx          Transactor
	Publisher   Publisher
	BCryptCost  int
	Logger      *slog.Logger
}

func NewService(deps ServiceDeps) *Service {
	if deps.BCryptCost == 0 {
		deps.BCryptCost = bcrypt.DefaultCost
	}
	if deps.Machine == nil {
		deps.Machine = NewStateMachine()
	}
	return &Service{
		repo:        deps.Repo,
		directory:   deps.Directory,
		assignments: deps.Assignments,
		machine:     deps.Machine,
		matcher:     deps.Matcher,
		tx:          deps.Tx,
		publisher:   deps.Publisher,
		bcryptCost:  deps.BCryptCost,
		logger:      deps.Logger,
	}
}

// Register is self-service sign-up; the account waits for an administrator
// to assign a role and department.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u := NewPendingUser(dto.Email, dto.FirstName, dto.LastName)
	if err := s.setPassword(u, dto.Password); err != nil {
		return nil, err
	}
	if err := s.insert(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", u.ID, "email", u.Email)
	return u, nil
}

func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u := NewPendingUser(dto.Email, dto.FirstName, dto.LastName)
	u.RoleID = dto.RoleID
	u.DepartmentID = dto.DepartmentID

	if Status(dto.Status) == StatusActive {
		if err := CheckAssignment(u); err != nil {
			return nil, err
		}
		u.Status = StatusActive
	}
	if err := s.verifyAssignment(ctx, u); err != nil {
		return nil, err
	}
	if err := s.setPassword(u, dto.Password); err != nil {
		return nil, err
	}
	if err := s.insert(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user created", "user_id", u.ID, "email", u.Email, "status", u.Status, "actor_id", internal.ActorID(ctx))
	return u, nil
}

// Update edits names, assignment and the isActive flag. Changing role or department
// never touches outstanding invitations. An ACTIVE user cannot lose either reference.
func (s *Service) Update(ctx context.Context, id int64, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.FirstName != nil {
		u.FirstName = *dto.FirstName
	}
	if dto.LastName != nil {
		u.LastName = *dto.LastName
	}
	if dto.IsActive != nil {
		u.IsActive = *dto.IsActive
	}
	if dto.RoleID != nil {
		u.RoleID = optionalID(*dto.RoleID)
	}
	if dto.DepartmentID != nil {
		u.DepartmentID = optionalID(*dto.DepartmentID)
	}

	if u.Status == StatusActive {
		if err := CheckAssignment(u); err != nil {
			return nil, internal.NewPreconditionError(
				"an active user must keep a role and a department", internal.ErrCodeRoleDepartmentNeeded).
				WithDetails(detailsOf(err))
		}
	}
	if dto.RoleID != nil && u.RoleID != nil {
		if _, err := s.assignments.Role(ctx, *u.RoleID); err != nil {
			return nil, err
		}
	}
	if dto.DepartmentID != nil && u.DepartmentID != nil {
		if _, err := s.assignments.Department(ctx, *u.DepartmentID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, ToDataModel(u)); err != nil {
		s.logger.Error("failed to update user", "user_id", id, "error", err)
		return nil, err
	}

	s.logger.Info("user updated", "user_id", id, "actor_id", internal.ActorID(ctx))
	return s.Get(ctx, id)
}

// Transition applies an administrative status change that does not involve an
// invitation (activate, deactivate).
func (s *Service) Transition(ctx context.Context, id int64, action Action) (*User, error) {
	return s.TransitionWith(ctx, id, action, Assignment{})
}

// TransitionWith applies action after assigning role/department from a. The assignment,
// the status move and the closing of outstanding invitations commit together or not at all.
func (s *Service) TransitionWith(ctx context.Context, id int64, action Action, a Assignment) (*User, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u := a.Apply(current)

	to, err := s.machine.Next(u, action)
	if err != nil {
		s.logger.Warn("transition rejected", "user_id", id, "status", u.Status, "action", action, "error", err)
		return nil, err
	}
	if to == StatusActive {
		if _, _, err := s.assignments.Resolve(ctx, *u.RoleID, *u.DepartmentID); err != nil {
			return nil, err
		}
	} else if !a.Empty() {
		if err := s.verifyAssignment(ctx, u); err != nil {
			return nil, err
		}
	}

	from := u.Status
	if from == to && a.Empty() {
		return u, nil
	}

	var closed int64
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if !a.Empty() {
			ok, err := s.repo.UpdateAssignment(ctx, id, string(from), u.RoleID, u.DepartmentID)
			if err != nil {
				return err
			}
			if !ok {
				return internal.ErrStatusChanged
			}
		}
		ok, err := s.repo.UpdateStatus(ctx, id, string(from), string(to))
		if err != nil {
			return err
		}
		if !ok {
			return internal.ErrStatusChanged
		}
		// Leaving INVITED any other way than redemption closes the outstanding code.
		if from == StatusInvited && to != StatusInvited {
			if closed, err = s.repo.InvalidateInvitations(ctx, u.Email); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, internal.ErrStatusChanged) {
			s.logger.Error("failed to apply transition", "user_id", id, "action", action, "error", err)
		}
		return nil, err
	}
	u.Status = to

	if from != to {
		s.publish(ctx, events.NewUserStatusChangedEvent(id, string(from), string(to), string(action), internal.ActorID(ctx)))
	}
	s.logger.Info("user status changed",
		"user_id", id, "from", from, "to", to, "action", action,
		"invitations_closed", closed, "actor_id", internal.ActorID(ctx))
	return u, nil
}

// Delete is a hard delete; the user's invitations go with it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var email string
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		row, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		email = row.Email
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		if !errors.Is(err, internal.ErrUserNotFound) {
			s.logger.Error("failed to delete user", "user_id", id, "error", err)
		}
		return err
	}

	s.publish(ctx, events.NewUserDeletedEvent(id, email, internal.ActorID(ctx)))
	s.logger.Info("user deleted", "user_id", id, "actor_id", internal.ActorID(ctx))
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(row), nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	row, err := s.repo.FindByEmail(ctx, email)
	if err != nil || row == nil {
		return nil, err
	}
	return FromDataModel(row), nil
}

// GetProfile annotates the user with the capabilities and approval authority of
// the assigned role. References that disappeared are left out rather than failing.
func (s *Service) GetProfile(ctx context.Context, id int64) (*Profile, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		User:           u,
		Capabilities:   capability.Resolve(nil),
		AllowedActions: s.machine.Allowed(u.Status),
	}

	if u.RoleID != nil {
		r, err := s.assignments.roles.GetByID(ctx, *u.RoleID)
		switch {
		case err == nil:
			p.Role = &AssignmentView{ID: r.ID, Name: r.Name, Level: r.Level}
			p.Capabilities = r.Capabilities()
			p.Approval = &ApprovalAuthority{RoleLevel: r.Level, Bands: s.matcher.BandsFor(r.Level)}
		case !errors.Is(err, internal.ErrRoleNotFound):
			return nil, err
		}
	}

	if u.DepartmentID != nil {
		d, err := s.assignments.departments.GetByID(ctx, *u.DepartmentID)
		switch {
		case err == nil:
			p.Department = &AssignmentView{ID: d.ID, Name: d.Name, Code: d.Code, Level: d.Level}
			if p.Approval != nil {
				tier := d.Level
				p.Approval.OwnDepartmentTier = &tier
				p.Approval.CanApproveOwn = s.matcher.CanApprove(tier, p.Approval.RoleLevel)
			}
		case !errors.Is(err, internal.ErrDepartmentNotFound):
			return nil, err
		}
	}

	return p, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*DirectoryEntry, error) {
	entries, err := s.directory.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, err
	}
	return entries, nil
}

func (s *Service) insert(ctx context.Context, u *User) error {
	row := ToDataModel(u)
	if err := s.repo.Create(ctx, row); err != nil {
		if internal.IsType(err, internal.ErrorTypeConflict) {
			s.logger.Warn("email already registered", "email", u.Email)
		} else {
			s.logger.Error("failed to create user", "email", u.Email, "error", err)
		}
		return err
	}
	*u = *FromDataModel(row)
	return nil
}

func (s *Service) verifyAssignment(ctx context.Context, u *User) error {
	if u.RoleID != nil {
		if _, err := s.assignments.Role(ctx, *u.RoleID); err != nil {
			return err
		}
	}
	if u.DepartmentID != nil {
		if _, err := s.assignments.Department(ctx, *u.DepartmentID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) setPassword(u *User, password string) error {
	if password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func optionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func detailsOf(err error) interface{} {
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr.Details
	}
	return nil
}
