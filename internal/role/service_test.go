package role_test

import (
	"context"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/capability"
	roleDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/role"
	"github.com/frahmantamala/staff-management/internal/role"
	rolePostgres "github.com/frahmantamala/staff-management/internal/role/postgres"
	"github.com/frahmantamala/staff-management/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type stubDependents struct {
	count int64
}

func (s *stubDependents) CountByRole(ctx context.Context, roleID int64) (int64, error) {
	return s.count, nil
}

func openRoleDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(db.AutoMigrate(&roleDatamodel.Role{})).To(Succeed())
	return db
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

var _ = Describe("Role Service", func() {
	var (
		ctx        context.Context
		service    *role.Service
		dependents *stubDependents
	)

	BeforeEach(func() {
		ctx = context.Background()
		dependents = &stubDependents{}
		service = role.NewService(rolePostgres.NewRoleRepository(openRoleDB()), dependents, logger.Discard())
	})

	Describe("Create", func() {
		It("normalizes permissions and defaults to active", func() {
			r, err := service.Create(ctx, role.CreateRoleDTO{
				Name:        "  Manager ",
				Level:       40,
				Permissions: []string{"User.View", "document.approve", "user.view", " "},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Name).To(Equal("Manager"))
			Expect(r.IsActive).To(BeTrue())
			Expect(r.Permissions).To(Equal([]string{"document.approve", "user.view"}))
		})

		It("keeps unrecognised permissions", func() {
			r, err := service.Create(ctx, role.CreateRoleDTO{
				Name:        "Auditor",
				Level:       50,
				Permissions: []string{"system.audit", "reports.export"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Permissions).To(ContainElement("reports.export"))
			Expect(r.Capabilities().Capabilities).To(HaveLen(1))
		})

		DescribeTable("rejects levels outside 10..120",
			func(level int) {
				_, err := service.Create(ctx, role.CreateRoleDTO{Name: "Odd", Level: level})
				Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
			},
			Entry("below range", 9),
			Entry("above range", 121),
			Entry("zero", 0),
		)

		It("rejects a duplicate name", func() {
			_, err := service.Create(ctx, role.CreateRoleDTO{Name: "Staff", Level: 10})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(ctx, role.CreateRoleDTO{Name: "Staff", Level: 11})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeRoleNameTaken))
		})

		It("rejects a second active role on a taken level but not an inactive one", func() {
			_, err := service.Create(ctx, role.CreateRoleDTO{Name: "Lead", Level: 30})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(ctx, role.CreateRoleDTO{Name: "Team Lead", Level: 30})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeRoleLevelTaken))

			_, err = service.Create(ctx, role.CreateRoleDTO{Name: "Team Lead", Level: 30, IsActive: boolPtr(false)})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Update", func() {
		It("re-checks the level when a role is reactivated", func() {
			_, err := service.Create(ctx, role.CreateRoleDTO{Name: "Lead", Level: 30})
			Expect(err).NotTo(HaveOccurred())
			dormant, err := service.Create(ctx, role.CreateRoleDTO{Name: "Old Lead", Level: 30, IsActive: boolPtr(false)})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Update(ctx, dormant.ID, role.UpdateRoleDTO{IsActive: boolPtr(true)})
			Expect(internal.IsType(err, internal.ErrorTypeConflict)).To(BeTrue())

			updated, err := service.Update(ctx, dormant.ID, role.UpdateRoleDTO{IsActive: boolPtr(true), Level: intPtr(35)})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Level).To(Equal(35))
			Expect(updated.IsActive).To(BeTrue())
		})

		It("returns not found for an unknown role", func() {
			_, err := service.Update(ctx, 77, role.UpdateRoleDTO{Level: intPtr(20)})
			Expect(err).To(MatchError(internal.ErrRoleNotFound))
		})
	})

	Describe("Delete", func() {
		It("is blocked while users hold the role", func() {
			r, err := service.Create(ctx, role.CreateRoleDTO{Name: "Staff", Level: 10})
			Expect(err).NotTo(HaveOccurred())
			dependents.count = 2

			err = service.Delete(ctx, r.ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeRoleInUse))

			dependents.count = 0
			Expect(service.Delete(ctx, r.ID)).To(Succeed())
		})
	})

	Describe("ActiveRoleLevels", func() {
		It("only reports active roles", func() {
			_, err := service.Create(ctx, role.CreateRoleDTO{Name: "Staff", Level: 10})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Create(ctx, role.CreateRoleDTO{Name: "Retired", Level: 40, IsActive: boolPtr(false)})
			Expect(err).NotTo(HaveOccurred())

			levels, err := service.ActiveRoleLevels(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(levels).To(HaveLen(1))
			Expect(levels[0].Level).To(Equal(10))
		})
	})

	Describe("Capabilities", func() {
		It("summarizes the role permissions by category", func() {
			r, err := service.Create(ctx, role.CreateRoleDTO{
				Name:        "Manager",
				Level:       40,
				Permissions: []string{capability.UserView, capability.UserEdit, capability.DocumentView},
			})
			Expect(err).NotTo(HaveOccurred())

			profile, err := service.Capabilities(ctx, r.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.Summary.User).To(Equal(2))
			Expect(profile.Summary.Document).To(Equal(1))
		})
	})
})
