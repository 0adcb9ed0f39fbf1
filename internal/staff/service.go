// Package staff is the administrative entry point to the user lifecycle: it
// authorizes the acting administrator and routes each transition either to the
// user service or to the invitation issuer.
package staff

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/capability"
	"github.com/frahmantamala/staff-management/internal/invitation"
	"github.com/frahmantamala/staff-management/internal/user"
)

type UserServiceAPI interface {
	TransitionWith(ctx context.Context, id int64, action user.Action, a user.Assignment) (*user.User, error)
}

type IssuerAPI interface {
	IssueWith(ctx context.Context, userID int64, action user.Action, a user.Assignment) (*invitation.IssueResult, error)
	IssueByEmail(ctx context.Context, dto invitation.InviteByEmailDTO) (*invitation.IssueResult, error)
	Accept(ctx context.Context, dto invitation.AcceptDTO) (*invitation.AcceptResult, error)
	Cancel(ctx context.Context, invitationID int64) (*invitation.Invitation, error)
	Get(ctx context.Context, id int64) (*invitation.Invitation, error)
	ListForUser(ctx context.Context, userID int64) ([]*invitation.Invitation, error)
}

type Service struct {
	users  UserServiceAPI
	issuer IssuerAPI
	logger *slog.Logger
}

func NewService(users UserServiceAPI, issuer IssuerAPI, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		issuer: issuer,
		logger: logger,
	}
}

// permissionFor maps each administrative action to the permission it requires.
var permissionFor = map[user.Action]string{
	user.ActionInvite:     capability.UserCreate,
	user.ActionResend:     capability.UserCreate,
	user.ActionActivate:   capability.UserEdit,
	user.ActionDeactivate: capability.UserEdit,
}

// TransitionUser applies action to the user. Invite and resend go through the
// issuer so the new code is created and delivered; the rest are plain status moves.
// A role/department in dto is written by the same transaction as the status change.
func (s *Service) TransitionUser(ctx context.Context, userID int64, dto TransitionDTO) (*TransitionResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	action, err := user.ParseAction(dto.Action)
	if err != nil {
		return nil, err
	}

	required := []string{permissionFor[action]}
	if dto.assigns() {
		required = append(required, capability.UserEdit)
	}
	if err := s.authorize(ctx, required...); err != nil {
		return nil, err
	}

	assignment := user.Assignment{RoleID: dto.RoleID, DepartmentID: dto.DepartmentID}
	switch action {
	case user.ActionInvite, user.ActionResend:
		res, err := s.issuer.IssueWith(ctx, userID, action, assignment)
		if err != nil {
			return nil, err
		}
		return &TransitionResult{User: res.User, Invitation: res}, nil
	default:
		u, err := s.users.TransitionWith(ctx, userID, action, assignment)
		if err != nil {
			return nil, err
		}
		return &TransitionResult{User: u}, nil
	}
}

func (s *Service) IssueInvitation(ctx context.Context, userID int64) (*invitation.IssueResult, error) {
	if err := s.authorize(ctx, capability.UserCreate); err != nil {
		return nil, err
	}
	return s.issuer.IssueWith(ctx, userID, user.ActionInvite, user.Assignment{})
}

func (s *Service) ResendInvitation(ctx context.Context, userID int64) (*invitation.IssueResult, error) {
	if err := s.authorize(ctx, capability.UserCreate); err != nil {
		return nil, err
	}
	return s.issuer.IssueWith(ctx, userID, user.ActionResend, user.Assignment{})
}

func (s *Service) InviteByEmail(ctx context.Context, dto invitation.InviteByEmailDTO) (*invitation.IssueResult, error) {
	if err := s.authorize(ctx, capability.UserCreate); err != nil {
		return nil, err
	}
	return s.issuer.IssueByEmail(ctx, dto)
}

// AcceptInvitation is public: possession of the code is the credential.
func (s *Service) AcceptInvitation(ctx context.Context, dto invitation.AcceptDTO) (*invitation.AcceptResult, error) {
	return s.issuer.Accept(ctx, dto)
}

func (s *Service) CancelInvitation(ctx context.Context, invitationID int64) (*invitation.Invitation, error) {
	if err := s.authorize(ctx, capability.UserCreate); err != nil {
		return nil, err
	}
	return s.issuer.Cancel(ctx, invitationID)
}

func (s *Service) GetInvitation(ctx context.Context, invitationID int64) (*invitation.Invitation, error) {
	if err := s.authorize(ctx, capability.UserView); err != nil {
		return nil, err
	}
	return s.issuer.Get(ctx, invitationID)
}

func (s *Service) ListInvitations(ctx context.Context, userID int64) ([]*invitation.Invitation, error) {
	if err := s.authorize(ctx, capability.UserView); err != nil {
		return nil, err
	}
	return s.issuer.ListForUser(ctx, userID)
}

// authorize requires the actor in ctx to hold every permission listed.
func (s *Service) authorize(ctx context.Context, permissions ...string) error {
	actor, ok := internal.ActorFromContext(ctx)
	if !ok {
		return internal.ErrMissingActor
	}

	granted := capability.Parse(actor.Permissions)
	for _, p := range permissions {
		if !granted.Has(p) {
			s.logger.Warn("permission denied", "actor_id", actor.ID, "required", p)
			return internal.NewPermissionDeniedError("missing permission "+p, internal.ErrCodeInsufficientPermission)
		}
	}
	return nil
}
