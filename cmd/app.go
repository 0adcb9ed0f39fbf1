package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/approval"
	"github.com/frahmantamala/staff-management/internal/audit"
	auditPostgres "github.com/frahmantamala/staff-management/internal/audit/postgres"
	"github.com/frahmantamala/staff-management/internal/auth"
	authPostgres "github.com/frahmantamala/staff-management/internal/auth/postgres"
	"github.com/frahmantamala/staff-management/internal/core/database"
	"github.com/frahmantamala/staff-management/internal/core/events"
	"github.com/frahmantamala/staff-management/internal/department"
	departmentPostgres "github.com/frahmantamala/staff-management/internal/department/postgres"
	"github.com/frahmantamala/staff-management/internal/invitation"
	invitationPostgres "github.com/frahmantamala/staff-management/internal/invitation/postgres"
	"github.com/frahmantamala/staff-management/internal/mailer"
	"github.com/frahmantamala/staff-management/internal/role"
	rolePostgres "github.com/frahmantamala/staff-management/internal/role/postgres"
	"github.com/frahmantamala/staff-management/internal/staff"
	"github.com/frahmantamala/staff-management/internal/user"
	userPostgres "github.com/frahmantamala/staff-management/internal/user/postgres"
	"github.com/frahmantamala/staff-management/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// application holds the wired services shared by the server, worker and seed commands.
type application struct {
	cfg    *internal.Config
	logger *slog.Logger
	db     *sqlx.DB
	gormDB *gorm.DB
	redis  *redis.Client
	bus    *events.EventBus

	roles       *role.Service
	departments *department.Service
	users       *user.Service
	issuer      *invitation.Issuer
	staff       *staff.Service
	auth        *auth.Service
	audit       *audit.Service
}

func newApplication(ctx context.Context, cfg *internal.Config) (*application, error) {
	log := logger.L()

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	gormDB, err := database.OpenGorm(db.DB)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &application{cfg: cfg, logger: log, db: db, gormDB: gormDB, bus: events.NewEventBus(log)}

	var locker invitation.Locker = invitation.NewLocalLocker()
	if cfg.Redis.Enabled {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.close(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		locker = invitation.NewRedisLocker(app.redis, "staff:invite:", cfg.Redis.LockTTL, log)
	}

	sender, err := mailer.New(ctx, cfg.Mailer, log)
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	matcher, err := approval.NewMatcher(approval.DefaultBands)
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	auditRepo := auditPostgres.NewAuditRepository(gormDB)
	audit.NewRecorder(auditRepo, log).Subscribe(app.bus)
	app.audit = audit.NewService(auditRepo, log)

	userRepo := userPostgres.NewUserRepository(gormDB)
	tx := database.NewTransactor(gormDB)
	machine := user.NewStateMachine()

	app.roles = role.NewService(rolePostgres.NewRoleRepository(gormDB), userRepo, log)
	app.departments = department.NewService(departmentPostgres.NewDepartmentRepository(gormDB), userRepo, app.roles, matcher, log)
	assignments := user.NewAssignmentChecker(app.roles, app.departments)

	app.users = user.NewService(user.ServiceDeps{
		Repo:        userRepo,
		Directory:   userPostgres.NewDirectory(db),
		Assignments: assignments,
		Machine:     machine,
		Matcher:     matcher,
		Tx:          tx,
		Publisher:   app.bus,
		BCryptCost:  cfg.Security.BCryptCost,
		Logger:      log,
	})

	app.issuer = invitation.NewIssuer(
		invitationPostgres.NewInvitationRepository(gormDB),
		userRepo,
		assignments,
		machine,
		tx,
		locker,
		sender,
		app.bus,
		invitation.Config{
			AcceptURL:  cfg.Invitation.AcceptURL,
			BCryptCost: cfg.Security.BCryptCost,
		},
		log,
	)
	app.staff = staff.NewService(app.users, app.issuer, log)

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	app.auth = auth.NewService(authPostgres.NewRepository(gormDB), tokens, log)

	return app, nil
}

// close drains in-flight event handlers before releasing connections.
func (a *application) close(ctx context.Context) {
	if a.bus != nil {
		if err := a.bus.Wait(ctx); err != nil {
			a.logger.Warn("event handlers still running at shutdown", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("database close error", "error", err)
	}
}

// initDB opens the pgx pool shared by sqlx, gorm and goose.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	db, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
