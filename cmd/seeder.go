package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/staff-management/internal/capability"
	"github.com/frahmantamala/staff-management/internal/department"
	"github.com/frahmantamala/staff-management/internal/role"
	"github.com/frahmantamala/staff-management/internal/user"
	"github.com/spf13/cobra"
)

var (
	clearData     bool
	adminEmail    string
	adminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed canonical roles, departments and an administrator",
	Long:  `Seed the database with the canonical role ladder, a set of departments and one administrator account. Existing rows are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()
		app, err := newApplication(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.close(ctx)

		if clearData {
			if err := clearTables(app); err != nil {
				return err
			}
		}
		return seed(ctx, app)
	},
}

var seedRoles = []role.CreateRoleDTO{
	{Name: "Staff", Level: 10, Permissions: []string{
		capability.DocumentView, capability.DocumentCreate, capability.WorkflowView,
	}},
	{Name: "Senior Staff", Level: 20, Permissions: []string{
		capability.DocumentView, capability.DocumentCreate, capability.DocumentEdit,
		capability.DocumentShare, capability.WorkflowView, capability.WorkflowCreate,
	}},
	{Name: "Supervisor", Level: 30, Permissions: []string{
		capability.DocumentView, capability.DocumentCreate, capability.DocumentEdit, capability.DocumentApprove,
		capability.WorkflowView, capability.WorkflowCreate, capability.WorkflowApprove, capability.UserView,
	}},
	{Name: "Manager", Level: 40, Permissions: []string{
		capability.DocumentView, capability.DocumentCreate, capability.DocumentEdit, capability.DocumentDelete,
		capability.DocumentApprove, capability.WorkflowView, capability.WorkflowApprove, capability.WorkflowManage,
		capability.UserView, capability.UserCreate, capability.UserEdit,
	}},
	{Name: "Director", Level: 50, Permissions: []string{
		capability.DocumentView, capability.DocumentApprove, capability.WorkflowView, capability.WorkflowApprove,
		capability.WorkflowManage, capability.UserView, capability.UserCreate, capability.UserEdit,
		capability.UserDelete, capability.DepartmentManage, capability.SystemAudit,
	}},
	{Name: "Administrator", Level: 100, Permissions: []string{capability.SystemAdmin}},
}

var seedDepartments = []department.CreateDepartmentDTO{
	{Name: "General Affairs", Code: "GA", Level: 10},
	{Name: "Human Resources", Code: "HR", Level: 20},
	{Name: "Information Technology", Code: "IT", Level: 20},
	{Name: "Finance", Code: "FIN", Level: 30},
	{Name: "Executive Office", Code: "EXEC", Level: 50},
}

func seed(ctx context.Context, app *application) error {
	roles, err := app.roles.List(ctx, false)
	if err != nil {
		return err
	}
	roleIDs := map[string]int64{}
	for _, r := range roles {
		roleIDs[r.Name] = r.ID
	}
	for _, dto := range seedRoles {
		if _, ok := roleIDs[dto.Name]; ok {
			continue
		}
		created, err := app.roles.Create(ctx, dto)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", dto.Name, err)
		}
		roleIDs[created.Name] = created.ID
		app.logger.Info("seeded role", "name", created.Name, "level", created.Level)
	}

	departments, err := app.departments.List(ctx, false)
	if err != nil {
		return err
	}
	departmentIDs := map[string]int64{}
	for _, d := range departments {
		departmentIDs[d.Code] = d.ID
	}
	for _, dto := range seedDepartments {
		if _, ok := departmentIDs[dto.Code]; ok {
			continue
		}
		created, err := app.departments.Create(ctx, dto)
		if err != nil {
			return fmt.Errorf("seed department %s: %w", dto.Code, err)
		}
		departmentIDs[created.Code] = created.ID
		app.logger.Info("seeded department", "code", created.Code)
	}

	existing, err := app.users.FindByEmail(ctx, adminEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		app.logger.Info("administrator already exists", "email", existing.Email)
		return nil
	}

	adminRole, adminDepartment := roleIDs["Administrator"], departmentIDs["EXEC"]
	admin, err := app.users.Create(ctx, user.CreateUserDTO{
		Email:        adminEmail,
		FirstName:    "System",
		LastName:     "Administrator",
		Password:     adminPassword,
		RoleID:       &adminRole,
		DepartmentID: &adminDepartment,
		Status:       string(user.StatusActive),
	})
	if err != nil {
		return fmt.Errorf("seed administrator: %w", err)
	}
	app.logger.Info("seeded administrator", "email", admin.Email)
	return nil
}

func clearTables(app *application) error {
	for _, table := range []string{"audit_logs", "invitations", "users", "departments", "roles"} {
		if err := app.gormDB.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	app.logger.Info("cleared existing data")
	return nil
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")
	seedCmd.Flags().StringVar(&adminEmail, "admin-email", "admin@staff.local", "administrator email")
	seedCmd.Flags().StringVar(&adminPassword, "admin-password", "ChangeMe123!", "administrator password")
}
