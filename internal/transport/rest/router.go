package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/staff-management/internal/audit"
	"github.com/frahmantamala/staff-management/internal/auth"
	"github.com/frahmantamala/staff-management/internal/capability"
	"github.com/frahmantamala/staff-management/internal/department"
	"github.com/frahmantamala/staff-management/internal/role"
	"github.com/frahmantamala/staff-management/internal/staff"
	"github.com/frahmantamala/staff-management/internal/transport/middleware"
	"github.com/frahmantamala/staff-management/internal/transport/swagger"
	"github.com/frahmantamala/staff-management/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups every HTTP surface mounted by RegisterAllRoutes. Nil handlers are skipped.
type Handlers struct {
	Health     *HealthHandler
	Auth       *auth.Handler
	RBAC       *auth.RBACAuthorization
	User       *user.Handler
	Role       *role.Handler
	Department *department.Handler
	Staff      *staff.Handler
	Audit      *audit.Handler
}

type RouterOptions struct {
	AllowedOrigins string
	SpecPath       string
	// Validator is optional; when set every documented request is checked against the OpenAPI document.
	Validator *middleware.OpenAPIValidator
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts RouterOptions, logger *slog.Logger) {
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, opts.SpecPath)
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.Health)
			r.Get("/ping", h.Health.Ping)
		}

		r.Group(func(vr chi.Router) {
			if opts.Validator != nil {
				vr.Use(opts.Validator.Middleware)
			}

			vr.Route("/auth", func(ar chi.Router) {
				ar.Post("/login", h.Auth.Login)
				ar.Post("/refresh", h.Auth.RefreshToken)
				if h.User != nil {
					ar.Post("/register", h.User.Register)
				}
			})
			if h.Staff != nil {
				vr.Post("/invitations/accept", h.Staff.AcceptInvitation)
			}

			vr.Group(func(pr chi.Router) {
				pr.Use(h.Auth.AuthMiddleware)

				if h.User != nil {
					registerUserRoutes(pr, h)
				}
				if h.Staff != nil {
					registerInvitationRoutes(pr, h)
				}
				if h.Role != nil {
					registerRoleRoutes(pr, h)
				}
				if h.Department != nil {
					registerDepartmentRoutes(pr, h)
				}
				if h.Audit != nil {
					pr.With(h.RBAC.Require(capability.SystemAudit)).Get("/audit-logs", h.Audit.ListAuditLogs)
				}
			})
		})
	})
}

func registerUserRoutes(r chi.Router, h Handlers) {
	r.Route("/users", func(ur chi.Router) {
		ur.Get("/me", h.User.Me)
		ur.With(h.RBAC.Require(capability.UserView)).Get("/", h.User.ListUsers)
		ur.With(h.RBAC.Require(capability.UserCreate)).Post("/", h.User.CreateUser)
		ur.With(h.RBAC.Require(capability.UserView)).Get("/{id}", h.User.GetUser)
		ur.With(h.RBAC.Require(capability.UserEdit)).Patch("/{id}", h.User.UpdateUser)
		ur.With(h.RBAC.Require(capability.UserDelete)).Delete("/{id}", h.User.DeleteUser)

		if h.Staff != nil {
			// permission depends on the action; checked by the staff service
			ur.Post("/{id}/transitions", h.Staff.TransitionUser)
			ur.Get("/{id}/invitations", h.Staff.ListUserInvitations)
			ur.Post("/{id}/invitations", h.Staff.IssueInvitation)
			ur.Post("/{id}/invitations/resend", h.Staff.ResendInvitation)
		}
	})
}

func registerInvitationRoutes(r chi.Router, h Handlers) {
	// shares the /invitations prefix with the public accept route, so no sub-router
	r.Post("/invitations", h.Staff.InviteByEmail)
	r.Get("/invitations/{id}", h.Staff.GetInvitation)
	r.Post("/invitations/{id}/cancel", h.Staff.CancelInvitation)
}

func registerRoleRoutes(r chi.Router, h Handlers) {
	r.Route("/roles", func(rr chi.Router) {
		rr.Get("/", h.Role.ListRoles)
		rr.Get("/{id}", h.Role.GetRole)
		rr.Get("/{id}/capabilities", h.Role.GetCapabilities)

		rr.Group(func(mr chi.Router) {
			mr.Use(h.RBAC.Require(capability.RoleManage))
			mr.Post("/", h.Role.CreateRole)
			mr.Patch("/{id}", h.Role.UpdateRole)
			mr.Delete("/{id}", h.Role.DeleteRole)
		})
	})
}

func registerDepartmentRoutes(r chi.Router, h Handlers) {
	r.Route("/departments", func(dr chi.Router) {
		dr.Get("/", h.Department.ListDepartments)
		dr.Get("/{id}", h.Department.GetDepartment)
		dr.Get("/{id}/approvers", h.Department.GetApprovers)

		dr.Group(func(mr chi.Router) {
			mr.Use(h.RBAC.Require(capability.DepartmentManage))
			mr.Post("/", h.Department.CreateDepartment)
			mr.Patch("/{id}", h.Department.UpdateDepartment)
			mr.Delete("/{id}", h.Department.DeleteDepartment)
		})
	})
}
