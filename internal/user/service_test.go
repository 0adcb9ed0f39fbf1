package user_test

import (
	"context"
	"sync"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/approval"
	"github.com/frahmantamala/staff-management/internal/capability"
	"github.com/frahmantamala/staff-management/internal/core/database"
	"github.com/frahmantamala/staff-management/internal/core/database/dbtest"
	invitationDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/invitation"
	"github.com/frahmantamala/staff-management/internal/core/events"
	"github.com/frahmantamala/staff-management/internal/department"
	departmentPostgres "github.com/frahmantamala/staff-management/internal/department/postgres"
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
	service     *user.Service
	roles       *role.Service
	departments *department.Service
	publisher   *recordingPublisher
}

func newFixture() *fixture {
	db, err := dbtest.Open()
	Expect(err).NotTo(HaveOccurred())
	sqlxDB, err := dbtest.SQLX(db)
	Expect(err).NotTo(HaveOccurred())

	log := logger.Discard()
	users := userPostgres.NewUserRepository(db)
	matcher := approval.MustNewMatcher(approval.DefaultBands)
	roles := role.NewService(rolePostgres.NewRoleRepository(db), users, log)
	departments := department.NewService(departmentPostgres.NewDepartmentRepository(db), users, roles, matcher, log)
	publisher := &recordingPublisher{}

	service := user.NewService(user.ServiceDeps{
		Repo:        users,
		Directory:   userPostgres.NewDirectory(sqlxDB),
		Assignments: user.NewAssignmentChecker(roles, departments),
		Matcher:     matcher,
		Tx:          database.NewTransactor(db),
		Publisher:   publisher,
		BCryptCost:  bcrypt.MinCost,
		Logger:      log,
	})

	return &fixture{db: db, service: service, roles: roles, departments: departments, publisher: publisher}
}

func id(v int64) *int64 { return &v }

var _ = Describe("User Service", func() {
	var (
		ctx     context.Context
		f       *fixture
		manager *role.Role
		finance *department.Department
	)

	BeforeEach(func() {
		ctx = internal.ContextWithActor(context.Background(), &internal.Actor{ID: 99, Email: "admin@example.com"})
		f = newFixture()

		var err error
		manager, err = f.roles.Create(ctx, role.CreateRoleDTO{
			Name:        "Manager",
			Level:       40,
			Permissions: []string{capability.UserView, capability.UserEdit, capability.DocumentApprove},
		})
		Expect(err).NotTo(HaveOccurred())
		finance, err = f.departments.Create(ctx, department.CreateDepartmentDTO{Name: "Finance", Code: "FIN", Level: 40})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Register", func() {
		It("creates a pending user with a normalized email and hashed password", func() {
			u, err := f.service.Register(ctx, user.RegisterDTO{
				Email:     "  New.Hire@Example.COM ",
				Password:  "s3cret-pass",
				FirstName: "New",
				LastName:  "Hire",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Email).To(Equal("new.hire@example.com"))
			Expect(u.Status).To(Equal(user.StatusPendingRegistration))
			Expect(u.RoleID).To(BeNil())
			Expect(bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass"))).To(Succeed())
		})

		It("treats emails case-insensitively for uniqueness", func() {
			_, err := f.service.Register(ctx, user.RegisterDTO{Email: "dup@example.com", FirstName: "A"})
			Expect(err).NotTo(HaveOccurred())

			_, err = f.service.Register(ctx, user.RegisterDTO{Email: "DUP@example.com", FirstName: "B"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeEmailTaken))
		})

		It("rejects a short password", func() {
			_, err := f.service.Register(ctx, user.RegisterDTO{Email: "a@example.com", FirstName: "A", Password: "short"})
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})
	})

	Describe("Create", func() {
		It("refuses to create an ACTIVE user without an assignment", func() {
			_, err := f.service.Create(ctx, user.CreateUserDTO{
				Email: "x@example.com", FirstName: "X", Status: "active", RoleID: id(manager.ID),
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeRoleDepartmentNeeded))
		})

		It("creates an ACTIVE user when role and department exist", func() {
			u, err := f.service.Create(ctx, user.CreateUserDTO{
				Email: "x@example.com", FirstName: "X", Status: "ACTIVE",
				RoleID: id(manager.ID), DepartmentID: id(finance.ID),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Status).To(Equal(user.StatusActive))
		})

		It("rejects references to missing entities", func() {
			_, err := f.service.Create(ctx, user.CreateUserDTO{
				Email: "x@example.com", FirstName: "X", RoleID: id(404),
			})
			Expect(internal.IsType(err, internal.ErrorTypeStaleReference)).To(BeTrue())
		})
	})

	Describe("Update", func() {
		It("blocks removing the role of an ACTIVE user", func() {
			u, err := f.service.Create(ctx, user.CreateUserDTO{
				Email: "x@example.com", FirstName: "X", Status: "ACTIVE",
				RoleID: id(manager.ID), DepartmentID: id(finance.ID),
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = f.service.Update(ctx, u.ID, user.UpdateUserDTO{RoleID: id(0)})
			Expect(internal.IsType(err, internal.ErrorTypePrecondition)).To(BeTrue())
		})

		It("lets a pending user gain and lose an assignment freely", func() {
			u, err := f.service.Register(ctx, user.RegisterDTO{Email: "p@example.com", FirstName: "P"})
			Expect(err).NotTo(HaveOccurred())

			u, err = f.service.Update(ctx, u.ID, user.UpdateUserDTO{RoleID: id(manager.ID), DepartmentID: id(finance.ID)})
			Expect(err).NotTo(HaveOccurred())
			Expect(*u.RoleID).To(Equal(manager.ID))

			u, err = f.service.Update(ctx, u.ID, user.UpdateUserDTO{RoleID: id(0)})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.RoleID).To(BeNil())
			Expect(u.Status).To(Equal(user.StatusPendingRegistration))
		})
	})

	Describe("Transition", func() {
		It("activates a pending user with a live assignment and publishes the change", func() {
			u, err := f.service.Create(ctx, user.CreateUserDTO{
				Email: "x@example.com", FirstName: "X", RoleID: id(manager.ID), DepartmentID: id(finance.ID),
			})
			Expect(err).NotTo(HaveOccurred())

			u, err = f.service.Transition(ctx, u.ID, user.ActionActivate)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Status).To(Equal(user.StatusActive))
			Expect(f.publisher.types()).To(ContainElement(events.EventTypeUserStatusChanged))
		})

		It("refuses activation when the role was deactivated", func() {
			u, err := f.service.Create(ctx, user.CreateUserDTO{
				Email: "x@example.com", FirstName: "X", RoleID: id(manager.ID), DepartmentID: id(finance.ID),
			})
			Expect(err).NotTo(HaveOccurred())
			inactive := false
			_, err = f.roles.Update(ctx, manager.ID, role.UpdateRoleDTO{IsActive: &inactive})
			Expect(err).NotTo(HaveOccurred())

			_, err = f.service.Transition(ctx, u.ID, user.ActionActivate)
			Expect(internal.IsType(err, internal.ErrorTypeStaleReference)).To(BeTrue())

			got, err := f.service.Get(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(user.StatusPendingRegistration))
		})

		It("deactivates from any status", func() {
			u, err := f.service.Register(ctx, user.RegisterDTO{Email: "p@example.com", FirstName: "P"})
			Expect(err).NotTo(HaveOccurred())

			u, err = f.service.Transition(ctx, u.ID, user.ActionDeactivate)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Status).To(Equal(user.StatusInactive))
		})
	})

	Describe("TransitionWith", func() {
		It("assigns and activates an unassigned user in one step", func() {
			u, err := f.service.Register(ctx, user.RegisterDTO{Email: "p@example.com", FirstName: "P"})
			Expect(err).NotTo(HaveOccurred())

			u, err = f.service.TransitionWith(ctx, u.ID, user.ActionActivate,
				user.Assignment{RoleID: id(manager.ID), DepartmentID: id(finance.ID)})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Status).To(Equal(user.StatusActive))

			got, err := f.service.Get(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(user.StatusActive))
			Expect(*got.RoleID).To(Equal(manager.ID))
			Expect(*got.DepartmentID).To(Equal(finance.ID))
		})

		It("writes nothing when the assignment points at a missing role", func() {
			u, err := f.service.Register(ctx, user.RegisterDTO{Email: "p@example.com", FirstName: "P"})
			Expect(err).NotTo(HaveOccurred())

			_, err = f.service.TransitionWith(ctx, u.ID, user.ActionActivate,
				user.Assignment{RoleID: id(404), DepartmentID: id(finance.ID)})
			Expect(err).To(HaveOccurred())

			got, err := f.service.Get(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(user.StatusPendingRegistration))
			Expect(got.RoleID).To(BeNil())
			Expect(got.DepartmentID).To(BeNil())
		})
	})

	Describe("Delete", func() {
		It("removes the user together with its invitations", func() {
			u, err := f.service.Register(ctx, user.RegisterDTO{Email: "p@example.com", FirstName: "P"})
			Expect(err).NotTo(HaveOccurred())
			Expect(f.db.Create(&invitationDatamodel.Invitation{
				Email: u.Email, UserID: &u.ID, RoleID: manager.ID, DepartmentID: finance.ID,
				CodeHash: "abc", Status: "active",
			}).Error).To(Succeed())

			Expect(f.service.Delete(ctx, u.ID)).To(Succeed())

			var remaining int64
			Expect(f.db.Model(&invitationDatamodel.Invitation{}).Count(&remaining).Error).To(Succeed())
			Expect(remaining).To(BeZero())
			_, err = f.service.Get(ctx, u.ID)
			Expect(err).To(MatchError(internal.ErrUserNotFound))
			Expect(f.publisher.types()).To(ContainElement(events.EventTypeUserDeleted))
		})

		It("returns not found for an unknown id", func() {
			Expect(f.service.Delete(ctx, 1234)).To(MatchError(internal.ErrUserNotFound))
		})
	})

	Describe("GetProfile", func() {
		It("annotates capabilities and approval authority", func() {
			u, err := f.service.Create(ctx, user.CreateUserDTO{
				Email: "x@example.com", FirstName: "X", Status: "ACTIVE",
				RoleID: id(manager.ID), DepartmentID: id(finance.ID),
			})
			Expect(err).NotTo(HaveOccurred())

			p, err := f.service.GetProfile(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Role.Name).To(Equal("Manager"))
			Expect(p.Department.Code).To(Equal("FIN"))
			Expect(p.Capabilities.Summary.User).To(Equal(2))
			Expect(p.Approval.CanApproveOwn).To(BeTrue())
			Expect(p.Approval.Bands).To(HaveLen(1))
			Expect(p.AllowedActions).To(Equal([]user.Action{user.ActionDeactivate}))
		})

		It("returns empty capabilities for an unassigned user", func() {
			u, err := f.service.Register(ctx, user.RegisterDTO{Email: "p@example.com", FirstName: "P"})
			Expect(err).NotTo(HaveOccurred())

			p, err := f.service.GetProfile(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Role).To(BeNil())
			Expect(p.Approval).To(BeNil())
			Expect(p.Capabilities.Capabilities).To(BeEmpty())
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			_, err := f.service.Create(ctx, user.CreateUserDTO{
				Email: "ann@example.com", FirstName: "Ann", LastName: "Lee", Status: "ACTIVE",
				RoleID: id(manager.ID), DepartmentID: id(finance.ID),
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = f.service.Register(ctx, user.RegisterDTO{Email: "bob@example.com", FirstName: "Bob"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("joins role and department names", func() {
			entries, err := f.service.List(ctx, user.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(*entries[0].RoleName).To(Equal("Manager"))
			Expect(*entries[0].DepartmentCode).To(Equal("FIN"))
			Expect(entries[1].RoleName).To(BeNil())
		})

		It("filters by status, department and search text", func() {
			entries, err := f.service.List(ctx, user.ListFilter{Status: user.StatusPendingRegistration})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Email).To(Equal("bob@example.com"))

			entries, err = f.service.List(ctx, user.ListFilter{DepartmentID: finance.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))

			entries, err = f.service.List(ctx, user.ListFilter{Search: "LEE"})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].FirstName).To(Equal("Ann"))
		})
	})
})
