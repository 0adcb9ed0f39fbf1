package staff_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/capability"
	"github.com/frahmantamala/staff-management/internal/invitation"
	"github.com/frahmantamala/staff-management/internal/staff"
	"github.com/frahmantamala/staff-management/internal/transport"
	"github.com/frahmantamala/staff-management/internal/user"
	"github.com/frahmantamala/staff-management/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type scriptedService struct {
	staff.ServiceAPI
	acceptErr error
}

func (s *scriptedService) AcceptInvitation(ctx context.Context, dto invitation.AcceptDTO) (*invitation.AcceptResult, error) {
	if s.acceptErr != nil {
		return nil, s.acceptErr
	}
	return &invitation.AcceptResult{
		Invitation: &invitation.Invitation{ID: 3, Status: invitation.StatusAccepted},
		User:       &user.User{ID: 4, Status: user.StatusActive},
	}, nil
}

var _ = Describe("Staff Handler", func() {
	var (
		router  chi.Router
		actor   *internal.Actor
		service *staff.Service
	)

	BeforeEach(func() {
		actor = &internal.Actor{ID: 1, Permissions: []string{capability.UserCreate}}
		users := &fakeUsers{users: map[int64]*user.User{
			1: {ID: 1, Email: "a@example.com", Status: user.StatusPendingRegistration, RoleID: id(10), DepartmentID: id(20)},
		}}
		service = staff.NewService(users, &fakeIssuer{}, logger.Discard())
		handler := staff.NewHandler(transport.NewBaseHandler(logger.Discard()), service)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(internal.ContextWithActor(r.Context(), actor)))
			})
		})
		router.Post("/users/{id}/transitions", handler.TransitionUser)
		router.Post("/users/{id}/invitations", handler.IssueInvitation)
		router.Post("/invitations/{id}/cancel", handler.CancelInvitation)
	})

	serve := func(r chi.Router, method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	It("returns the raw code once on issuance", func() {
		w := serve(router, http.MethodPost, "/users/1/invitations", "")
		Expect(w.Code).To(Equal(http.StatusCreated))

		var resp invitation.IssueResult
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Code).To(Equal("abc"))
		Expect(resp.Delivered).To(BeTrue())
	})

	It("returns the user and invitation for an invite transition", func() {
		w := serve(router, http.MethodPost, "/users/1/transitions", `{"action":"invite"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"status":"INVITED"`))
	})

	It("answers 403 when the actor lacks the permission", func() {
		actor.Permissions = []string{capability.UserView}
		w := serve(router, http.MethodPost, "/users/1/transitions", `{"action":"invite"}`)
		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrorTypePermissionDenied)))
	})

	It("rejects a missing action", func() {
		w := serve(router, http.MethodPost, "/users/1/transitions", `{}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	DescribeTable("maps acceptance failures to distinguishable responses",
		func(err error, status int, code internal.ErrorCode) {
			h := staff.NewHandler(transport.NewBaseHandler(logger.Discard()), &scriptedService{acceptErr: err})
			r := chi.NewRouter()
			r.Post("/invitations/accept", h.AcceptInvitation)

			w := serve(r, http.MethodPost, "/invitations/accept", `{"code":"abc"}`)
			Expect(w.Code).To(Equal(status))

			var raw struct {
				Error struct {
					Code internal.ErrorCode `json:"code"`
				} `json:"error"`
			}
			Expect(json.NewDecoder(w.Body).Decode(&raw)).To(Succeed())
			Expect(raw.Error.Code).To(Equal(code))
		},
		Entry("unknown code", internal.ErrInvitationNotFound, http.StatusNotFound, internal.ErrCodeInvitationNotFound),
		Entry("expired", internal.ErrInvitationExpired, http.StatusGone, internal.ErrCodeInvitationExpired),
		Entry("already used", internal.ErrInvitationConsumed, http.StatusConflict, internal.ErrCodeInvitationConsumed),
		Entry("stale role", internal.NewStaleReferenceError("role 2 no longer exists", internal.ErrCodeStaleRole), http.StatusConflict, internal.ErrCodeStaleRole),
	)

	It("accepts without an actor", func() {
		h := staff.NewHandler(transport.NewBaseHandler(logger.Discard()), &scriptedService{})
		r := chi.NewRouter()
		r.Post("/invitations/accept", h.AcceptInvitation)

		w := serve(r, http.MethodPost, "/invitations/accept", `{"code":"abc","password":"long-enough"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"status":"ACTIVE"`))
	})
})
