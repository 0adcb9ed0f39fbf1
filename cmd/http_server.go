package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/staff-management/internal/audit"
	"github.com/frahmantamala/staff-management/internal/auth"
	"github.com/frahmantamala/staff-management/internal/department"
	"github.com/frahmantamala/staff-management/internal/role"
	"github.com/frahmantamala/staff-management/internal/staff"
	"github.com/frahmantamala/staff-management/internal/transport"
	"github.com/frahmantamala/staff-management/internal/transport/middleware"
	"github.com/frahmantamala/staff-management/internal/transport/rest"
	"github.com/frahmantamala/staff-management/internal/user"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startHTTPServer(); err != nil {
			fmt.Fprintf(os.Stderr, "server: %v\n", err)
			os.Exit(1)
		}
	},
}

func startHTTPServer() error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}

	router, err := setupRoutes(ctx, app)
	if err != nil {
		app.close(ctx)
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		app.logger.Info("starting HTTP server", "address", addr)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		app.logger.Info("received signal, shutting down", "signal", sig)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.close(ctx)
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown error", "error", err)
	}
	app.close(shutdownCtx)

	app.logger.Info("server stopped")
	return nil
}

func setupRoutes(ctx context.Context, app *application) (*chi.Mux, error) {
	base := transport.NewBaseHandler(app.logger)

	opts := rest.RouterOptions{
		AllowedOrigins: app.cfg.Server.AllowedOrigins,
		SpecPath:       app.cfg.OpenAPI.SpecPath,
	}
	if app.cfg.OpenAPI.ValidateRequests {
		validator, err := middleware.NewOpenAPIValidator(ctx, app.cfg.OpenAPI.SpecPath, app.logger)
		if err != nil {
			return nil, err
		}
		opts.Validator = validator
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Health:     rest.NewHealthHandler(app.db, app.redis),
		Auth:       auth.NewHandler(base, app.auth),
		RBAC:       auth.NewRBACAuthorization(base),
		User:       user.NewHandler(base, app.users),
		Role:       role.NewHandler(base, app.roles),
		Department: department.NewHandler(base, app.departments),
		Staff:      staff.NewHandler(base, app.staff),
		Audit:      audit.NewHandler(base, app.audit),
	}, opts, app.logger)

	return router, nil
}
