// Package invitation issues, supersedes, redeems and cancels staff invitation codes.
package invitation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/staff-management/internal"
	invitationDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/invitation"
	userDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/user"
	"github.com/frahmantamala/staff-management/internal/core/events"
	"github.com/frahmantamala/staff-management/internal/mailer"
	"github.com/frahmantamala/staff-management/internal/user"
	"golang.org/x/crypto/bcrypt"
)

type RepositoryAPI interface {
	Create(ctx context.Context, inv *invitationDatamodel.Invitation) error
	GetByID(ctx context.Context, id int64) (*invitationDatamodel.Invitation, error)
	GetByCodeHash(ctx context.Context, hash string) (*invitationDatamodel.Invitation, error)
	ListActiveByEmail(ctx context.Context, email string) ([]*invitationDatamodel.Invitation, error)
	ListByUser(ctx context.Context, userID int64) ([]*invitationDatamodel.Invitation, error)
	TransitionStatus(ctx context.Context, id int64, from, to string, consumedAt *time.Time) (bool, error)
	SetUser(ctx context.Context, id, userID int64) error
	ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserStore is the slice of the user repository the issuer writes through.
type UserStore interface {
	Create(ctx context.Context, u *userDatamodel.User) error
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	Update(ctx context.Context, u *userDatamodel.User) error
	UpdateStatus(ctx context.Context, id int64, from, to string) (bool, error)
	UpdateAssignment(ctx context.Context, id int64, status string, roleID, departmentID *int64) (bool, error)
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Config struct {
	AcceptURL  string
	BCryptCost int
	// Now is replaceable so expiry can be tested without waiting.
	Now func() time.Time
}

type Issuer struct {
	repo        RepositoryAPI
	users       UserStore
	assignments *user.AssignmentChecker
	machine     *user.StateMachine
	tx          Transactor
	locker      Locker
	sender      mailer.Sender
	publisher   Publisher
	acceptURL   string
	bcryptCost  int
	now         func() time.Time
	logger      *slog.Logger
}

func NewIssuer(
	repo RepositoryAPI,
	users UserStore,
	assignments *user.AssignmentChecker,
	machine *user.StateMachine,
	tx Transactor,
	locker Locker,
	sender mailer.Sender,
	publisher Publisher,
	cfg Config,
	logger *slog.Logger,
) *Issuer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.BCryptCost == 0 {
		cfg.BCryptCost = bcrypt.DefaultCost
	}
	if machine == nil {
		machine = user.NewStateMachine()
	}
	return &Issuer{
		repo:        repo,
		users:       users,
		assignments: assignments,
		machine:     machine,
		tx:          tx,
		locker:      locker,
		sender:      sender,
		publisher:   publisher,
		acceptURL:   cfg.AcceptURL,
		bcryptCost:  cfg.BCryptCost,
		now:         cfg.Now,
		logger:      logger,
	}
}

// Issue invites a user, superseding whatever invitation was active for the email.
func (s *Issuer) Issue(ctx context.Context, userID int64) (*IssueResult, error) {
	return s.IssueWith(ctx, userID, user.ActionInvite, user.Assignment{})
}

// Reissue is the resend flavour of Issue and has the same supersede semantics.
func (s *Issuer) Reissue(ctx context.Context, userID int64) (*IssueResult, error) {
	return s.IssueWith(ctx, userID, user.ActionResend, user.Assignment{})
}

// IssueWith runs an invite or resend after assigning role/department from a. The
// assignment is written in the same transaction as the invitation and the status move.
func (s *Issuer) IssueWith(ctx context.Context, userID int64, action user.Action, a user.Assignment) (*IssueResult, error) {
	if action != user.ActionInvite && action != user.ActionResend {
		return nil, internal.NewValidationFieldError("action",
			fmt.Sprintf("%s does not issue an invitation", action), internal.ErrCodeInvalidAction)
	}

	row, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u := a.Apply(user.FromDataModel(row))

	to, err := s.machine.Next(u, action)
	if err != nil {
		s.logger.Warn("invitation rejected", "user_id", userID, "status", u.Status, "action", action, "error", err)
		return nil, err
	}
	if _, _, err := s.assignments.Resolve(ctx, *u.RoleID, *u.DepartmentID); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lockKey(u.Email))
	if err != nil {
		return nil, err
	}
	defer unlock()

	code, hash, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	now := s.now()
	inv := &Invitation{
		Email:        u.Email,
		UserID:       &u.ID,
		RoleID:       *u.RoleID,
		DepartmentID: *u.DepartmentID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		CodeHash:     hash,
		Status:       StatusActive,
		IssuedBy:     actorRef(ctx),
		IssuedAt:     now,
		ExpiresAt:    now.Add(ExpiryWindow),
	}

	from := u.Status
	var superseded []int64
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if superseded, err = s.invalidateActive(ctx, u.Email); err != nil {
			return err
		}

		dm := ToDataModel(inv)
		if err := s.repo.Create(ctx, dm); err != nil {
			return err
		}
		inv.ID = dm.ID

		if !a.Empty() {
			ok, err := s.users.UpdateAssignment(ctx, u.ID, string(from), u.RoleID, u.DepartmentID)
			if err != nil {
				return err
			}
			if !ok {
				return internal.ErrStatusChanged
			}
		}
		// Compare-and-set even on a resend, so a user deactivated since the read above
		// never ends up holding a fresh code.
		ok, err := s.users.UpdateStatus(ctx, u.ID, string(from), string(to))
		if err != nil {
			return err
		}
		if !ok {
			return internal.ErrStatusChanged
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to issue invitation", "user_id", userID, "email", u.Email, "error", err)
		return nil, err
	}
	u.Status = to

	kind := mailer.KindInvitation
	if action == user.ActionResend {
		kind = mailer.KindInvitationResend
	}
	result := &IssueResult{Invitation: inv, Code: code, User: u, Superseded: nonNil(superseded)}
	s.deliver(ctx, result, kind, u.FullName())

	s.publish(ctx, events.NewInvitationIssuedEvent(inv.ID, u.ID, u.Email, internal.ActorID(ctx), result.Superseded, action == user.ActionResend, result.Delivered))
	if from != to {
		s.publish(ctx, events.NewUserStatusChangedEvent(u.ID, string(from), string(to), string(action), internal.ActorID(ctx)))
	}

	s.logger.Info("invitation issued",
		"invitation_id", inv.ID,
		"user_id", u.ID,
		"email", u.Email,
		"superseded", len(result.Superseded),
		"delivered", result.Delivered,
		"actor_id", internal.ActorID(ctx))
	return result, nil
}

// IssueByEmail invites an address that has no user record yet; acceptance creates
// the user. Addresses that already belong to a user must be invited through Issue.
func (s *Issuer) IssueByEmail(ctx context.Context, dto InviteByEmailDTO) (*IssueResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, dto.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, internal.NewConflictError(
			fmt.Sprintf("%s already belongs to user %d; invite the user instead", dto.Email, existing.ID),
			internal.ErrCodeEmailTaken)
	}

	if _, _, err := s.assignments.Resolve(ctx, dto.RoleID, dto.DepartmentID); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lockKey(dto.Email))
	if err != nil {
		return nil, err
	}
	defer unlock()

	code, hash, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	now := s.now()
	inv := &Invitation{
		Email:        dto.Email,
		RoleID:       dto.RoleID,
		DepartmentID: dto.DepartmentID,
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		CodeHash:     hash,
		Status:       StatusActive,
		IssuedBy:     actorRef(ctx),
		IssuedAt:     now,
		ExpiresAt:    now.Add(ExpiryWindow),
	}

	var superseded []int64
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if superseded, err = s.invalidateActive(ctx, dto.Email); err != nil {
			return err
		}
		dm := ToDataModel(inv)
		if err := s.repo.Create(ctx, dm); err != nil {
			return err
		}
		inv.ID = dm.ID
		return nil
	})
	if err != nil {
		s.logger.Error("failed to issue invitation", "email", dto.Email, "error", err)
		return nil, err
	}

	result := &IssueResult{Invitation: inv, Code: code, Superseded: nonNil(superseded)}
	s.deliver(ctx, result, mailer.KindInvitation, dto.FirstName+" "+dto.LastName)
	s.publish(ctx, events.NewInvitationIssuedEvent(inv.ID, 0, inv.Email, internal.ActorID(ctx), result.Superseded, false, result.Delivered))

	s.logger.Info("invitation issued by email", "invitation_id", inv.ID, "email", inv.Email, "delivered", result.Delivered)
	return result, nil
}

// Accept redeems a code. Status is checked before expiry, so a superseded code is
// reported as consumed even once its expiry has passed.
func (s *Issuer) Accept(ctx context.Context, dto AcceptDTO) (*AcceptResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.repo.GetByCodeHash(ctx, HashCode(dto.Code))
	if err != nil {
		return nil, err
	}
	inv := FromDataModel(row)

	switch inv.Status {
	case StatusAccepted, StatusInvalidated:
		return nil, internal.ErrInvitationConsumed
	case StatusExpired:
		return nil, internal.ErrInvitationExpired
	}

	now := s.now()
	if inv.Expired(now) {
		if _, err := s.repo.TransitionStatus(ctx, inv.ID, string(StatusActive), string(StatusExpired), nil); err != nil {
			s.logger.Warn("failed to mark invitation expired", "invitation_id", inv.ID, "error", err)
		}
		return nil, internal.ErrInvitationExpired
	}

	var passwordHash string
	if dto.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		passwordHash = string(h)
	}

	var (
		u    *user.User
		from user.Status
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, _, err := s.assignments.Resolve(ctx, inv.RoleID, inv.DepartmentID); err != nil {
			return err
		}

		ok, err := s.repo.TransitionStatus(ctx, inv.ID, string(StatusActive), string(StatusAccepted), &now)
		if err != nil {
			return err
		}
		if !ok {
			return internal.ErrInvitationConsumed
		}

		u, err = s.recipient(ctx, inv)
		if err != nil {
			return err
		}
		from = u.Status

		if dto.FirstName != "" {
			u.FirstName = dto.FirstName
		}
		if dto.LastName != "" {
			u.LastName = dto.LastName
		}
		if passwordHash != "" {
			u.PasswordHash = passwordHash
		}
		u.RoleID = &inv.RoleID
		u.DepartmentID = &inv.DepartmentID
		u.IsActive = true

		if u.ID == 0 {
			u.Status = user.StatusActive
			dm := user.ToDataModel(u)
			if err := s.users.Create(ctx, dm); err != nil {
				return err
			}
			u.ID = dm.ID
			return s.repo.SetUser(ctx, inv.ID, u.ID)
		}

		to, err := s.machine.Next(u, user.ActionAccept)
		if err != nil {
			return err
		}
		ok, err = s.users.UpdateStatus(ctx, u.ID, string(from), string(to))
		if err != nil {
			return err
		}
		if !ok {
			return internal.ErrStatusChanged
		}
		u.Status = to
		if err := s.users.Update(ctx, user.ToDataModel(u)); err != nil {
			return err
		}
		if inv.UserID == nil {
			return s.repo.SetUser(ctx, inv.ID, u.ID)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("invitation acceptance failed", "invitation_id", inv.ID, "email", inv.Email, "error", err)
		return nil, err
	}

	inv.Status = StatusAccepted
	inv.ConsumedAt = &now
	inv.UserID = &u.ID

	s.publish(ctx, events.NewInvitationAcceptedEvent(inv.ID, u.ID, inv.Email))
	s.publish(ctx, events.NewUserStatusChangedEvent(u.ID, string(from), string(u.Status), string(user.ActionAccept), u.ID))

	s.logger.Info("invitation accepted", "invitation_id", inv.ID, "user_id", u.ID, "email", inv.Email)
	return &AcceptResult{Invitation: inv, User: u}, nil
}

// Cancel invalidates an active invitation. The user's status is left alone.
func (s *Issuer) Cancel(ctx context.Context, invitationID int64) (*Invitation, error) {
	row, err := s.repo.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	inv := FromDataModel(row)

	if status := inv.EffectiveStatus(s.now()); status != StatusActive {
		return nil, internal.NewPreconditionError(
			fmt.Sprintf("invitation is %s and cannot be cancelled", status), internal.ErrCodeInvitationClosed)
	}

	ok, err := s.repo.TransitionStatus(ctx, inv.ID, string(StatusActive), string(StatusInvalidated), nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, internal.NewPreconditionError("invitation is no longer active", internal.ErrCodeInvitationClosed)
	}
	inv.Status = StatusInvalidated

	s.publish(ctx, events.NewInvitationCancelledEvent(inv.ID, inv.Email, internal.ActorID(ctx)))
	s.logger.Info("invitation cancelled", "invitation_id", inv.ID, "email", inv.Email, "actor_id", internal.ActorID(ctx))
	return inv, nil
}

func (s *Issuer) Get(ctx context.Context, id int64) (*Invitation, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	inv := FromDataModel(row)
	inv.Status = inv.EffectiveStatus(s.now())
	return inv, nil
}

// ListForUser returns the user's invitations newest first, with lazy expiry applied.
func (s *Issuer) ListForUser(ctx context.Context, userID int64) ([]*Invitation, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]*Invitation, len(rows))
	for i, row := range rows {
		out[i] = FromDataModel(row)
		out[i].Status = out[i].EffectiveStatus(now)
	}
	return out, nil
}

// SweepExpired marks lapsed active invitations as expired in bulk. Accept does the same
// lazily, so the sweep only keeps stored statuses tidy for listings and reports.
func (s *Issuer) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireBefore(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired lapsed invitations", "count", n)
	}
	return n, nil
}

func (s *Issuer) invalidateActive(ctx context.Context, email string) ([]int64, error) {
	active, err := s.repo.ListActiveByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(active))
	for _, old := range active {
		ok, err := s.repo.TransitionStatus(ctx, old.ID, string(StatusActive), string(StatusInvalidated), nil)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, internal.ErrConcurrentIssue
		}
		ids = append(ids, old.ID)
	}
	return ids, nil
}

// recipient loads the user the invitation belongs to. Invitations issued by email
// bind to a user registered since, or to a new user built from the snapshot.
func (s *Issuer) recipient(ctx context.Context, inv *Invitation) (*user.User, error) {
	if inv.UserID != nil {
		row, err := s.users.GetByID(ctx, *inv.UserID)
		if err != nil {
			return nil, err
		}
		return user.FromDataModel(row), nil
	}

	row, err := s.users.FindByEmail(ctx, inv.Email)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return user.FromDataModel(row), nil
	}

	u := user.NewPendingUser(inv.Email, inv.FirstName, inv.LastName)
	return u, nil
}

func (s *Issuer) deliver(ctx context.Context, result *IssueResult, kind mailer.Kind, name string) {
	err := s.sender.Send(ctx, mailer.Message{
		To:            result.Invitation.Email,
		Kind:          kind,
		RecipientName: name,
		Code:          result.Code,
		AcceptURL:     s.acceptURL,
		ExpiresAt:     result.Invitation.ExpiresAt,
	})
	if err != nil {
		s.logger.Error("invitation delivery failed",
			"invitation_id", result.Invitation.ID,
			"email", result.Invitation.Email,
			"error", err)
		result.DeliveryError = internal.NewExternalError(
			"invitation was created but the email could not be sent; resend it manually",
			internal.ErrCodeDeliveryFailed,
		).WithCause(err)
		return
	}
	result.Delivered = true
}

func (s *Issuer) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func actorRef(ctx context.Context) *int64 {
	if id := internal.ActorID(ctx); id != 0 {
		return &id
	}
	return nil
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
