package staff

import (
	"context"
	"net/http"

	"github.com/frahmantamala/staff-management/internal/invitation"
	"github.com/frahmantamala/staff-management/internal/transport"
)

type ServiceAPI interface {
	TransitionUser(ctx context.Context, userID int64, dto TransitionDTO) (*TransitionResult, error)
	IssueInvitation(ctx context.Context, userID int64) (*invitation.IssueResult, error)
	ResendInvitation(ctx context.Context, userID int64) (*invitation.IssueResult, error)
	InviteByEmail(ctx context.Context, dto invitation.InviteByEmailDTO) (*invitation.IssueResult, error)
	AcceptInvitation(ctx context.Context, dto invitation.AcceptDTO) (*invitation.AcceptResult, error)
	CancelInvitation(ctx context.Context, invitationID int64) (*invitation.Invitation, error)
	GetInvitation(ctx context.Context, invitationID int64) (*invitation.Invitation, error)
	ListInvitations(ctx context.Context, userID int64) ([]*invitation.Invitation, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// TransitionUser handles POST /users/{id}/transitions
func (h *Handler) TransitionUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto TransitionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.Service.TransitionUser(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// IssueInvitation handles POST /users/{id}/invitations
func (h *Handler) IssueInvitation(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, h.Service.IssueInvitation)
}

// ResendInvitation handles POST /users/{id}/invitations/resend
func (h *Handler) ResendInvitation(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, h.Service.ResendInvitation)
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (*invitation.IssueResult, error)) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result, err := fn(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, result)
}

// ListUserInvitations handles GET /users/{id}/invitations
func (h *Handler) ListUserInvitations(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	invitations, err := h.Service.ListInvitations(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, invitation.InvitationsResponse{Invitations: invitations})
}

// InviteByEmail handles POST /invitations
func (h *Handler) InviteByEmail(w http.ResponseWriter, r *http.Request) {
	var dto invitation.InviteByEmailDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.Service.InviteByEmail(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, result)
}

// AcceptInvitation handles POST /invitations/accept
func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var dto invitation.AcceptDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.Service.AcceptInvitation(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) GetInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	inv, err := h.Service.GetInvitation(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, inv)
}

// CancelInvitation handles POST /invitations/{id}/cancel
func (h *Handler) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	inv, err := h.Service.CancelInvitation(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, inv)
}
