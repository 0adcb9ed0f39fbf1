// Package dbtest opens throwaway sqlite databases carrying the production gorm models.
package dbtest

import (
	"fmt"

	auditDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/audit"
	departmentDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/department"
	invitationDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/invitation"
	roleDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/role"
	userDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/user"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table of the schema in dependency order.
var Models = []interface{}{
	&roleDatamodel.Role{},
	&departmentDatamodel.Department{},
	&userDatamodel.User{},
	&invitationDatamodel.Invitation{},
	&auditDatamodel.AuditLog{},
}

// Open returns a fresh in-memory database with the full schema migrated. The pool is
// pinned to one connection so every query sees the same memory database.
func Open() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}

// SQLX wraps the same connection pool for read models built on sqlx.
func SQLX(db *gorm.DB) (*sqlx.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return sqlx.NewDb(sqlDB, "sqlite3"), nil
}
