package role

import (
	"context"
	"net/http"

	"github.com/frahmantamala/staff-management/internal/capability"
	"github.com/frahmantamala/staff-management/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, activeOnly bool) ([]*Role, error)
	GetByID(ctx context.Context, id int64) (*Role, error)
	Capabilities(ctx context.Context, id int64) (capability.Profile, error)
	Create(ctx context.Context, dto CreateRoleDTO) (*Role, error)
	Update(ctx context.Context, id int64, dto UpdateRoleDTO) (*Role, error)
	Delete(ctx context.Context, id int64) error
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

// ListRoles handles GET /roles?active=true
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	roles, err := h.Service.List(r.Context(), activeOnly)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp := RolesResponse{Roles: make([]RoleResponse, len(roles))}
	for i, role := range roles {
		resp.Roles[i] = NewRoleResponse(role)
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	role, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, NewRoleResponse(role))
}

// GetCapabilities handles GET /roles/{id}/capabilities
func (h *Handler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	profile, err := h.Service.Capabilities(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var dto CreateRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	role, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, NewRoleResponse(role))
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	role, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, NewRoleResponse(role))
}

func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
