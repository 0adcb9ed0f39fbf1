package invitation_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/approval"
	"github.com/frahmantamala/staff-management/internal/capability"
	"github.com/frahmantamala/staff-management/internal/core/database"
	"github.com/frahmantamala/staff-management/internal/core/database/dbtest"
	invitationDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/invitation"
	"github.com/frahmantamala/staff-management/internal/core/events"
	"github.com/frahmantamala/staff-management/internal/department"
	departmentPostgres "github.com/frahmantamala/staff-management/internal/department/postgres"
	"github.com/frahmantamala/staff-management/internal/invitation"
	invitationPostgres "github.com/frahmantamala/staff-management/internal/invitation/postgres"
	"github.com/frahmantamala/staff-management/internal/mailer"
	"github.com/frahmantamala/staff-management/internal/role"
	rolePostgres "github.com/frahmantamala/staff-management/internal/role/postgres"
	"github.com/frahmantamala/staff-management/internal/user"
	userPostgres "github.com/frahmantamala/staff-management/internal/user/postgres"
	"github.com/frahmantamala/staff-management/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	fail bool
}

func (s *fakeSender) Send(ctx context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp relay unavailable")
	}
	s.sent = append(s.sent, msg)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type fixture struct {
	db          *gorm.DB
	issuer      *invitation.Issuer
	users       *user.Service
	roles       *role.Service
	departments *department.Service
	sender      *fakeSender
	publisher   *recordingPublisher
	now         time.Time
	newIssuer   func(invitation.Locker) *invitation.Issuer
}

func newFixture() *fixture {
	db, err := dbtest.Open()
	Expect(err).NotTo(HaveOccurred())
	sqlxDB, err := dbtest.SQLX(db)
	Expect(err).NotTo(HaveOccurred())

	log := logger.Discard()
	f := &fixture{
		db:        db,
		sender:    &fakeSender{},
		publisher: &recordingPublisher{},
		now:       time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}

	userRepo := userPostgres.NewUserRepository(db)
	matcher := approval.MustNewMatcher(approval.DefaultBands)
	f.roles = role.NewService(rolePostgres.NewRoleRepository(db), userRepo, log)
	f.departments = department.NewService(departmentPostgres.NewDepartmentRepository(db), userRepo, f.roles, matcher, log)
	assignments := user.NewAssignmentChecker(f.roles, f.departments)
	tx := database.NewTransactor(db)

	f.users = user.NewService(user.ServiceDeps{
		Repo:        userRepo,
		Directory:   userPostgres.NewDirectory(sqlxDB),
		Assignments: assignments,
		Matcher:     matcher,
		Tx:          tx,
		BCryptCost:  bcrypt.MinCost,
		Logger:      log,
	})

	f.newIssuer = func(locker invitation.Locker) *invitation.Issuer {
		return invitation.NewIssuer(
			invitationPostgres.NewInvitationRepository(db),
			userRepo,
			assignments,
			user.NewStateMachine(),
			tx,
			locker,
			f.sender,
			f.publisher,
			invitation.Config{
				AcceptURL:  "https://staff.example.com/accept",
				BCryptCost: bcrypt.MinCost,
				Now:        func() time.Time { return f.now },
			},
			log,
		)
	}
	f.issuer = f.newIssuer(invitation.NewLocalLocker())
	return f
}

// hookLocker runs onLock once the user has been read and before the issuing
// transaction starts, then fails with err when it is set.
type hookLocker struct {
	onLock func()
	err    error
}

func (l *hookLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.onLock != nil {
		l.onLock()
	}
	if l.err != nil {
		return nil, l.err
	}
	return func() {}, nil
}

func (f *fixture) activeCount(email string) int64 {
	var n int64
	Expect(f.db.Model(&invitationDatamodel.Invitation{}).
		Where("email = ? AND status = ?", email, "active").
		Count(&n).Error).To(Succeed())
	return n
}

func id(v int64) *int64 { return &v }

var _ = Describe("Invitation Issuer", func() {
	var (
		ctx     context.Context
		f       *fixture
		manager *role.Role
		finance *department.Department
		invitee *user.User
	)

	BeforeEach(func() {
		ctx = internal.ContextWithActor(context.Background(), &internal.Actor{ID: 7, Email: "admin@example.com"})
		f = newFixture()

		var err error
		manager, err = f.roles.Create(ctx, role.CreateRoleDTO{
			Name: "Manager", Level: 40, Permissions: []string{capability.UserView},
		})
		Expect(err).NotTo(HaveOccurred())
		finance, err = f.departments.Create(ctx, department.CreateDepartmentDTO{Name: "Finance", Code: "FIN", Level: 40})
		Expect(err).NotTo(HaveOccurred())

		invitee, err = f.users.Create(ctx, user.CreateUserDTO{
			Email: "jo@example.com", FirstName: "Jo", LastName: "Park",
			RoleID: id(manager.ID), DepartmentID: id(finance.ID),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Issue", func() {
		It("moves the user to INVITED and emails a code that is stored only as a hash", func() {
			res, err := f.issuer.Issue(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Code).To(HaveLen(64))
			Expect(res.Invitation.CodeHash).To(Equal(invitation.HashCode(res.Code)))
			Expect(res.Invitation.ExpiresAt).To(Equal(f.now.Add(invitation.ExpiryWindow)))
			Expect(*res.Invitation.IssuedBy).To(Equal(int64(7)))
			Expect(res.User.Status).To(Equal(user.StatusInvited))
			Expect(res.Delivered).To(BeTrue())
			Expect(res.Superseded).To(BeEmpty())

			Expect(f.sender.sent).To(HaveLen(1))
			Expect(f.sender.sent[0].To).To(Equal("jo@example.com"))
			Expect(f.sender.sent[0].Kind).To(Equal(mailer.KindInvitation))
			Expect(f.sender.sent[0].Code).To(Equal(res.Code))

			Expect(f.publisher.types()).To(Equal([]string{
				events.EventTypeInvitationIssued,
				events.EventTypeUserStatusChanged,
			}))
		})

		It("keeps exactly one active invitation per email across reissues", func() {
			first, err := f.issuer.Issue(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())
			second, err := f.issuer.Reissue(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())

			Expect(second.Superseded).To(Equal([]int64{first.Invitation.ID}))
			Expect(f.activeCount("jo@example.com")).To(Equal(int64(1)))
			Expect(f.sender.sent[1].Kind).To(Equal(mailer.KindInvitationResend))

			_, err = f.issuer.Accept(ctx, invitation.AcceptDTO{Code: first.Code})
			Expect(err).To(MatchError(internal.ErrInvitationConsumed))
		})

		It("rejects a user without a department and changes nothing", func() {
			bare, err := f.users.Create(ctx, user.CreateUserDTO{
				Email: "bare@example.com", FirstName: "Bare", RoleID: id(manager.ID),
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = f.issuer.Issue(ctx, bare.ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(appErr.Details).To(Equal(internal.ValidationErrors{Errors: []internal.ValidationError{
				{Field: "department_id", Message: "department is required", Code: string(internal.ErrCodeRequiredField)},
			}}))

			Expect(f.activeCount("bare@example.com")).To(BeZero())
			got, err := f.users.Get(ctx, bare.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(user.StatusPendingRegistration))
			Expect(f.sender.sent).To(BeEmpty())
		})

		It("refuses to invite an ACTIVE user", func() {
			_, err := f.users.Transition(ctx, invitee.ID, user.ActionActivate)
			Expect(err).NotTo(HaveOccurred())

			_, err = f.issuer.Issue(ctx, invitee.ID)
			Expect(internal.IsType(err, internal.ErrorTypePrecondition)).To(BeTrue())
		})

		It("refuses a resend before the first invitation", func() {
			_, err := f.issuer.Reissue(ctx, invitee.ID)
			Expect(internal.IsType(err, internal.ErrorTypePrecondition)).To(BeTrue())
		})

		It("rejects a deactivated role as stale", func() {
			inactive := false
			_, err := f.roles.Update(ctx, manager.ID, role.UpdateRoleDTO{IsActive: &inactive})
			Expect(err).NotTo(HaveOccurred())

			_, err = f.issuer.Issue(ctx, invitee.ID)
			Expect(err).To(MatchError(internal.NewStaleReferenceError("", internal.ErrCodeStaleRole)))
		})

		It("keeps the invitation when delivery fails", func() {
			f.sender.fail = true

			res, err := f.issuer.Issue(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Delivered).To(BeFalse())
			Expect(res.DeliveryError).NotTo(BeNil())
			Expect(res.DeliveryError.Code).To(Equal(internal.ErrCodeDeliveryFailed))
			Expect(f.activeCount("jo@example.com")).To(Equal(int64(1)))

			_, err = f.issuer.Accept(ctx, invitation.AcceptDTO{Code: res.Code})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("IssueWith", func() {
		var pending *user.User

		BeforeEach(func() {
			var err error
			pending, err = f.users.Create(ctx, user.CreateUserDTO{Email: "new@example.com", FirstName: "New"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("assigns role and department and invites in one step", func() {
			res, err := f.issuer.IssueWith(ctx, pending.ID, user.ActionInvite,
				user.Assignment{RoleID: id(manager.ID), DepartmentID: id(finance.ID)})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.User.Status).To(Equal(user.StatusInvited))

			got, err := f.users.Get(ctx, pending.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(user.StatusInvited))
			Expect(*got.RoleID).To(Equal(manager.ID))
			Expect(*got.DepartmentID).To(Equal(finance.ID))
		})

		It("writes no assignment when the issue cannot proceed", func() {
			issuer := f.newIssuer(&hookLocker{err: internal.ErrConcurrentIssue})

			_, err := issuer.IssueWith(ctx, pending.ID, user.ActionInvite,
				user.Assignment{RoleID: id(manager.ID), DepartmentID: id(finance.ID)})
			Expect(err).To(MatchError(internal.ErrConcurrentIssue))

			got, err := f.users.Get(ctx, pending.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(user.StatusPendingRegistration))
			Expect(got.RoleID).To(BeNil())
			Expect(got.DepartmentID).To(BeNil())
			Expect(f.activeCount("new@example.com")).To(BeZero())
		})

		It("rolls the assignment back when the user changed status meanwhile", func() {
			issuer := f.newIssuer(&hookLocker{onLock: func() {
				_, err := f.users.Transition(ctx, pending.ID, user.ActionDeactivate)
				Expect(err).NotTo(HaveOccurred())
			}})

			_, err := issuer.IssueWith(ctx, pending.ID, user.ActionInvite,
				user.Assignment{RoleID: id(manager.ID), DepartmentID: id(finance.ID)})
			Expect(err).To(MatchError(internal.ErrStatusChanged))

			got, err := f.users.Get(ctx, pending.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(user.StatusInactive))
			Expect(got.RoleID).To(BeNil())
			Expect(f.activeCount("new@example.com")).To(BeZero())
			Expect(f.sender.sent).To(BeEmpty())
		})

		It("refuses an action that does not issue", func() {
			_, err := f.issuer.IssueWith(ctx, invitee.ID, user.ActionActivate, user.Assignment{})
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})
	})

	Describe("Reissue racing a deactivation", func() {
		It("gives a user deactivated after the read no fresh code", func() {
			first, err := f.issuer.Issue(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())

			issuer := f.newIssuer(&hookLocker{onLock: func() {
				_, err := f.users.Transition(ctx, invitee.ID, user.ActionDeactivate)
				Expect(err).NotTo(HaveOccurred())
			}})
			_, err = issuer.Reissue(ctx, invitee.ID)
			Expect(err).To(MatchError(internal.ErrStatusChanged))

			got, err := f.users.Get(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(user.StatusInactive))
			Expect(f.activeCount("jo@example.com")).To(BeZero())

			_, err = f.issuer.Accept(ctx, invitation.AcceptDTO{Code: first.Code})
			Expect(err).To(MatchError(internal.ErrInvitationConsumed))
		})
	})

	Describe("leaving INVITED without redemption", func() {
		var issued *invitation.IssueResult

		BeforeEach(func() {
			var err error
			issued, err = f.issuer.Issue(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("closes the outstanding code on force activation", func() {
			u, err := f.users.Transition(ctx, invitee.ID, user.ActionActivate)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Status).To(Equal(user.StatusActive))
			Expect(f.activeCount("jo@example.com")).To(BeZero())

			_, err = f.issuer.Accept(ctx, invitation.AcceptDTO{Code: issued.Code})
			Expect(err).To(MatchError(internal.ErrInvitationConsumed))
		})

		It("closes the outstanding code on deactivation", func() {
			_, err := f.users.Transition(ctx, invitee.ID, user.ActionDeactivate)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.activeCount("jo@example.com")).To(BeZero())
		})
	})

	Describe("an edit overlapping acceptance", func() {
		It("does not undo the status written by the accept", func() {
			issued, err := f.issuer.Issue(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())

			repo := userPostgres.NewUserRepository(f.db)
			stale, err := repo.GetByID(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stale.Status).To(Equal(string(user.StatusInvited)))

			_, err = f.issuer.Accept(ctx, invitation.AcceptDTO{Code: issued.Code})
			Expect(err).NotTo(HaveOccurred())

			stale.FirstName = "Joanne"
			Expect(repo.Update(ctx, stale)).To(Succeed())

			got, err := f.users.Get(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(user.StatusActive))
			Expect(got.FirstName).To(Equal("Joanne"))
		})
	})

	Describe("Accept", func() {
		var issued *invitation.IssueResult

		BeforeEach(func() {
			var err error
			issued, err = f.issuer.Issue(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("activates the user and sets the password", func() {
			res, err := f.issuer.Accept(ctx, invitation.AcceptDTO{Code: issued.Code, Password: "correct-horse"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Invitation.Status).To(Equal(invitation.StatusAccepted))
			Expect(*res.Invitation.ConsumedAt).To(Equal(f.now))
			Expect(res.User.Status).To(Equal(user.StatusActive))

			got, err := f.users.Get(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(user.StatusActive))
			Expect(bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("correct-horse"))).To(Succeed())
			Expect(f.publisher.types()).To(ContainElement(events.EventTypeInvitationAccepted))
		})

		It("accepts codes regardless of surrounding whitespace and case", func() {
			_, err := f.issuer.Accept(ctx, invitation.AcceptDTO{Code: "  " + strings.ToUpper(issued.Code) + "\n"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("succeeds only once", func() {
			_, err := f.issuer.Accept(ctx, invitation.AcceptDTO{Code: issued.Code})
			Expect(err).NotTo(HaveOccurred())

			_, err = f.issuer.Accept(ctx, invitation.AcceptDTO{Code: issued.Code})
			Expect(err).To(MatchError(internal.ErrInvitationConsumed))
		})

		It("lets exactly one of two concurrent redemptions win", func() {
			var (
				wg   sync.WaitGroup
				errs = make([]error, 2)
			)
			for i := range errs {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					_, errs[i] = f.issuer.Accept(ctx, invitation.AcceptDTO{Code: issued.Code})
				}(i)
			}
			wg.Wait()

			succeeded := 0
			for _, err := range errs {
				if err == nil {
					succeeded++
					continue
				}
				Expect(err).To(MatchError(internal.ErrInvitationConsumed))
			}
			Expect(succeeded).To(Equal(1))
		})

		It("reports expiry after the window and records it lazily", func() {
			f.now = f.now.Add(invitation.ExpiryWindow + time.Second)

			_, err := f.issuer.Accept(ctx, invitation.AcceptDTO{Code: issued.Code})
			Expect(err).To(MatchError(internal.ErrInvitationExpired))

			var row invitationDatamodel.Invitation
			Expect(f.db.First(&row, issued.Invitation.ID).Error).To(Succeed())
			Expect(row.Status).To(Equal("expired"))

			got, err := f.users.Get(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(user.StatusInvited))
		})

		It("accepts right at the expiry instant", func() {
			f.now = issued.Invitation.ExpiresAt
			_, err := f.issuer.Accept(ctx, invitation.AcceptDTO{Code: issued.Code})
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports a superseded code as consumed even after it would have expired", func() {
			_, err := f.issuer.Reissue(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())
			f.now = f.now.Add(30 * 24 * time.Hour)

			_, err = f.issuer.Accept(ctx, invitation.AcceptDTO{Code: issued.Code})
			Expect(err).To(MatchError(internal.ErrInvitationConsumed))
		})

		It("fails stale and leaves the invitation active when the department was deactivated", func() {
			inactive := false
			_, err := f.departments.Update(ctx, finance.ID, department.UpdateDepartmentDTO{IsActive: &inactive})
			Expect(err).NotTo(HaveOccurred())

			_, err = f.issuer.Accept(ctx, invitation.AcceptDTO{Code: issued.Code})
			Expect(err).To(MatchError(internal.NewStaleReferenceError("", internal.ErrCodeStaleDepartment)))
			Expect(f.activeCount("jo@example.com")).To(Equal(int64(1)))
		})

		It("does not find an unknown code", func() {
			_, err := f.issuer.Accept(ctx, invitation.AcceptDTO{Code: "deadbeef"})
			Expect(err).To(MatchError(internal.ErrInvitationNotFound))
		})

		It("requires a code", func() {
			_, err := f.issuer.Accept(ctx, invitation.AcceptDTO{Code: "   "})
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})
	})

	Describe("IssueByEmail", func() {
		It("creates the user on acceptance from the invitation snapshot", func() {
			res, err := f.issuer.IssueByEmail(ctx, invitation.InviteByEmailDTO{
				Email: "New@Example.com", FirstName: "New", LastName: "Hire",
				RoleID: manager.ID, DepartmentID: finance.ID,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Invitation.Email).To(Equal("new@example.com"))
			Expect(res.Invitation.UserID).To(BeNil())

			accepted, err := f.issuer.Accept(ctx, invitation.AcceptDTO{Code: res.Code, Password: "long-enough"})
			Expect(err).NotTo(HaveOccurred())
			Expect(accepted.User.ID).NotTo(BeZero())
			Expect(accepted.User.Status).To(Equal(user.StatusActive))
			Expect(*accepted.User.RoleID).To(Equal(manager.ID))
			Expect(*accepted.Invitation.UserID).To(Equal(accepted.User.ID))

			found, err := f.users.FindByEmail(ctx, "new@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.FirstName).To(Equal("New"))
		})

		It("sends addresses that already have a user to the user invitation flow", func() {
			_, err := f.issuer.IssueByEmail(ctx, invitation.InviteByEmailDTO{
				Email: "jo@example.com", FirstName: "Jo", RoleID: manager.ID, DepartmentID: finance.ID,
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeEmailTaken))
		})

		It("names every missing field", func() {
			_, err := f.issuer.IssueByEmail(ctx, invitation.InviteByEmailDTO{Email: "x@example.com", FirstName: "X"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			details := appErr.Details.(internal.ValidationErrors)
			fields := make([]string, len(details.Errors))
			for i, e := range details.Errors {
				fields[i] = e.Field
			}
			Expect(fields).To(ConsistOf("role_id", "department_id"))
		})
	})

	Describe("Cancel", func() {
		It("invalidates the active invitation and leaves the user INVITED", func() {
			res, err := f.issuer.Issue(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())

			inv, err := f.issuer.Cancel(ctx, res.Invitation.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.Status).To(Equal(invitation.StatusInvalidated))
			Expect(f.activeCount("jo@example.com")).To(BeZero())

			got, err := f.users.Get(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(user.StatusInvited))

			_, err = f.issuer.Cancel(ctx, res.Invitation.ID)
			Expect(internal.IsType(err, internal.ErrorTypePrecondition)).To(BeTrue())
		})
	})

	Describe("ListForUser", func() {
		It("lists newest first with lazy expiry applied", func() {
			first, err := f.issuer.Issue(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())
			f.now = f.now.Add(time.Hour)
			second, err := f.issuer.Reissue(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())
			f.now = f.now.Add(invitation.ExpiryWindow + time.Hour)

			list, err := f.issuer.ListForUser(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
			Expect(list[0].ID).To(Equal(second.Invitation.ID))
			Expect(list[0].Status).To(Equal(invitation.StatusExpired))
			Expect(list[1].ID).To(Equal(first.Invitation.ID))
			Expect(list[1].Status).To(Equal(invitation.StatusInvalidated))
		})

		It("returns not found for an unknown user", func() {
			_, err := f.issuer.ListForUser(ctx, 999)
			Expect(err).To(MatchError(internal.ErrUserNotFound))
		})
	})

	Describe("SweepExpired", func() {
		It("marks only lapsed active invitations as expired", func() {
			res, err := f.issuer.Issue(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())

			n, err := f.issuer.SweepExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())

			f.now = f.now.Add(invitation.ExpiryWindow + time.Minute)
			n, err = f.issuer.SweepExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
			Expect(f.activeCount(invitee.Email)).To(BeZero())

			_, err = f.issuer.Accept(ctx, invitation.AcceptDTO{Code: res.Code, Password: "s3cretpass"})
			Expect(err).To(MatchError(internal.ErrInvitationExpired))
		})
	})
})
