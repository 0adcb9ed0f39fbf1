package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that keep stored state tidy alongside the HTTP server.`,
}

var expiryWorkerCmd = &cobra.Command{
	Use:   "expiry",
	Short: "Periodically mark lapsed invitations as expired",
	Long:  `Sweep active invitations whose expiry has passed and mark them expired. Acceptance applies expiry lazily, so the sweep only affects listings and reports.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startExpiryWorker()
	},
}

var (
	sweepInterval time.Duration
	sweepOnce     bool
)

func startExpiryWorker() error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close(context.Background())

	sweep := func() {
		sweepCtx, cancel := internal.WithTimeout(ctx, sweepInterval)
		defer cancel()
		if _, err := app.issuer.SweepExpired(sweepCtx); err != nil {
			app.logger.Error("invitation expiry sweep failed", "error", err)
		}
	}

	sweep()
	if sweepOnce {
		return nil
	}

	app.logger.Info("expiry worker is running", "interval", sweepInterval)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			app.logger.Info("shutting down expiry worker")
			return nil
		case <-ticker.C:
			sweep()
		}
	}
}

func init() {
	expiryWorkerCmd.Flags().DurationVar(&sweepInterval, "interval", 5*time.Minute, "time between sweeps")
	expiryWorkerCmd.Flags().BoolVar(&sweepOnce, "once", false, "run a single sweep and exit")

	workerCmd.AddCommand(expiryWorkerCmd)
}
