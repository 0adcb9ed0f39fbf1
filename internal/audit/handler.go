package audit

import (
	"context"
	"net/http"
	"strconv"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, filter Filter) ([]*Entry, error)
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

// ListAuditLogs handles GET /audit-logs?actor_id=&target_type=&target_id=&action=&limit=
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{TargetType: q.Get("target_type"), Action: q.Get("action")}

	for name, dst := range map[string]*int64{"actor_id": &filter.ActorID, "target_id": &filter.TargetID} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			h.HandleServiceError(w, internal.NewValidationFieldError(name, name+" must be a positive integer", internal.ErrCodeValidationFailed))
			return
		}
		*dst = v
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			h.HandleServiceError(w, internal.NewValidationFieldError("limit", "limit must be a positive integer", internal.ErrCodeValidationFailed))
			return
		}
		filter.Limit = limit
	}

	entries, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, EntriesResponse{Entries: entries})
}
