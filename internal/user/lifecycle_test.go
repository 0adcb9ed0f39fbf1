package user_test

import (
	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func assigned(status user.Status) *user.User {
	roleID, departmentID := int64(1), int64(2)
	return &user.User{ID: 7, Status: status, RoleID: &roleID, DepartmentID: &departmentID}
}

var _ = Describe("StateMachine", func() {
	var sm *user.StateMachine

	BeforeEach(func() {
		sm = user.NewStateMachine()
	})

	DescribeTable("legal transitions",
		func(from user.Status, action user.Action, want user.Status) {
			to, err := sm.Next(assigned(from), action)
			Expect(err).NotTo(HaveOccurred())
			Expect(to).To(Equal(want))
		},
		Entry("pending invite", user.StatusPendingRegistration, user.ActionInvite, user.StatusInvited),
		Entry("pending activate", user.StatusPendingRegistration, user.ActionActivate, user.StatusActive),
		Entry("pending deactivate", user.StatusPendingRegistration, user.ActionDeactivate, user.StatusInactive),
		Entry("invited resend", user.StatusInvited, user.ActionResend, user.StatusInvited),
		Entry("invited reinvite", user.StatusInvited, user.ActionInvite, user.StatusInvited),
		Entry("invited accept", user.StatusInvited, user.ActionAccept, user.StatusActive),
		Entry("invited deactivate", user.StatusInvited, user.ActionDeactivate, user.StatusInactive),
		Entry("active deactivate", user.StatusActive, user.ActionDeactivate, user.StatusInactive),
		Entry("inactive reactivate", user.StatusInactive, user.ActionActivate, user.StatusActive),
		Entry("inactive reinvite", user.StatusInactive, user.ActionInvite, user.StatusInvited),
	)

	DescribeTable("illegal transitions are precondition errors",
		func(from user.Status, action user.Action) {
			_, err := sm.Next(assigned(from), action)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypePrecondition))
			Expect(appErr.Code).To(Equal(internal.ErrCodeIllegalTransition))
		},
		Entry("resend while pending", user.StatusPendingRegistration, user.ActionResend),
		Entry("invite while active", user.StatusActive, user.ActionInvite),
		Entry("resend while active", user.StatusActive, user.ActionResend),
		Entry("activate while active", user.StatusActive, user.ActionActivate),
		Entry("accept while active", user.StatusActive, user.ActionAccept),
		Entry("accept while inactive", user.StatusInactive, user.ActionAccept),
		Entry("resend while inactive", user.StatusInactive, user.ActionResend),
	)

	It("names each missing reference before an invite", func() {
		u := &user.User{Status: user.StatusPendingRegistration}
		_, err := sm.Next(u, user.ActionInvite)

		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		Expect(appErr.Code).To(Equal(internal.ErrCodeRoleDepartmentNeeded))

		details := appErr.Details.(internal.ValidationErrors)
		var fields []string
		for _, e := range details.Errors {
			fields = append(fields, e.Field)
		}
		Expect(fields).To(Equal([]string{"role_id", "department_id"}))
	})

	It("re-checks the assignment on resend", func() {
		u := assigned(user.StatusInvited)
		u.DepartmentID = nil

		_, err := sm.Next(u, user.ActionResend)
		Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
	})

	It("deactivates without any assignment", func() {
		for _, status := range user.Statuses {
			to, err := sm.Next(&user.User{Status: status}, user.ActionDeactivate)
			Expect(err).NotTo(HaveOccurred())
			Expect(to).To(Equal(user.StatusInactive))
		}
	})

	It("rejects an unknown action as a validation error", func() {
		_, err := sm.Next(assigned(user.StatusInvited), user.Action("promote"))
		Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())

		_, err = user.ParseAction("accept")
		Expect(err).To(HaveOccurred())

		action, err := user.ParseAction(" Resend ")
		Expect(err).NotTo(HaveOccurred())
		Expect(action).To(Equal(user.ActionResend))
	})

	It("lists administrative actions per status", func() {
		Expect(sm.Allowed(user.StatusActive)).To(Equal([]user.Action{user.ActionDeactivate}))
		Expect(sm.Allowed(user.StatusInvited)).To(Equal([]user.Action{
			user.ActionInvite, user.ActionResend, user.ActionActivate, user.ActionDeactivate,
		}))
	})
})
