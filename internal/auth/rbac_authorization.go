package auth

import (
	"net/http"
	"strings"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/capability"
	"github.com/frahmantamala/staff-management/internal/transport"
)

// RBACAuthorization guards routes by the permissions of the actor's role.
type RBACAuthorization struct {
	*transport.BaseHandler
}

func NewRBACAuthorization(baseHandler *transport.BaseHandler) *RBACAuthorization {
	return &RBACAuthorization{BaseHandler: baseHandler}
}

// Require lets the request through when the actor holds at least one of permissions.
// system.admin satisfies every requirement.
func (ra *RBACAuthorization) Require(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := internal.ActorFromContext(r.Context())
			if !ok {
				ra.HandleServiceError(w, internal.ErrMissingActor)
				return
			}

			if !capability.Parse(actor.Permissions).HasAny(permissions...) {
				ra.Logger.Warn("access denied: insufficient permissions",
					"actor_id", actor.ID,
					"required_permissions", permissions,
					"actor_permissions", actor.Permissions)
				ra.HandleServiceError(w, internal.NewPermissionDeniedError(
					"requires "+strings.Join(permissions, " or "), internal.ErrCodeInsufficientPermission))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
