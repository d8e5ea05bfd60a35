package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ipo_applier/internal/apply"
	"ipo_applier/internal/broker"
	"ipo_applier/internal/config"
	"ipo_applier/internal/handlers"
	"ipo_applier/internal/logger"
	"ipo_applier/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

// setup loads configuration and wires the app. Configuration errors exit 1.
func setup() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cli.NewExitError(err.Error(), 1)
	}
	log := logger.New(cfg.LogLevel)

	app, err := newApp(cfg, log)
	if err != nil {
		log.Error("Startup failed", zap.Error(err))
		return nil, cli.NewExitError(err.Error(), 1)
	}
	log.Info("Configuration loaded",
		zap.Int("accounts", len(cfg.Accounts)),
		zap.Int("kitta", cfg.Shared.Kitta),
		zap.String("max_price", cfg.Shared.MaxPrice.String()),
	)
	return app, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// runCommand performs one run. It exits 1 when the run reported errors.
func runCommand(c *cli.Context) error {
	app, err := setup()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signalContext()
	defer stop()

	summary, err := app.runner.Run(ctx, apply.TriggerCLI)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	printSummary(summary)

	if err := summary.Err(); err != nil {
		app.logger.Error("Run finished with errors", zap.String("run_id", summary.Run.ID), zap.Error(err))
		return cli.NewExitError(fmt.Sprintf("run %s finished with errors", summary.Run.ID), 1)
	}
	return nil
}

func printSummary(s *apply.RunSummary) {
	fmt.Printf("Run %s: %s\n", s.Run.ID, s.Run.Status)
	for _, r := range s.Reports {
		fmt.Printf("  %-24s %-16s %d/%d eligible, %d attempts\n",
			r.AccountName, r.Status, r.EligibleIPOs, r.TotalIPOs, len(r.Attempts))
	}
	t := s.Totals
	fmt.Printf("Applied %d, already applied %d, not eligible %d, no IPOs %d, failed %d\n",
		t.Applied, t.AlreadyApplied, t.NotEligible, t.NoIPOs, t.Failed)
}

// serveCommand runs the report API and the scheduler until interrupted.
func serveCommand(c *cli.Context) error {
	app, err := setup()
	if err != nil {
		return err
	}
	defer app.Close()
	cfg := app.config
	log := app.logger.Named("server")

	deps := handlers.NewDependencies().
		WithRuns(app.runs).
		WithReports(app.reports).
		WithFiles(app.files).
		WithTrigger(app.runner).
		WithLogger(app.logger)
	router := handlers.NewRouter(deps, handlers.RouterConfig{
		APIKey:         cfg.Server.APIKey,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	app.runner.OnComplete(func(*apply.RunSummary) { router.InvalidateReports() })

	sched, err := scheduler.New(app.runner, scheduler.Options{
		RunSpec:   cfg.RunSchedule,
		Pruner:    app.runs,
		Retention: cfg.Storage.Retention,
	}, app.logger)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	if cfg.Server.APIKey == "" {
		log.Warn("API_KEY is not set, the API is unauthenticated")
	}

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signalContext()
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server starting", zap.String("address", "http://"+cfg.Server.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sched.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		return cli.NewExitError(err.Error(), 1)
	}
	log.Info("Server stopped")
	return nil
}

// encryptCommand prints an enc: value for a member secret.
func encryptCommand(c *cli.Context) error {
	account := c.String("account")
	value := c.Args().First()
	if account == "" || value == "" {
		return cli.NewExitError("usage: ipo-applier encrypt --account NAME VALUE", 1)
	}

	cfg, err := config.LoadSettings()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if cfg.EncryptionSecret == "" {
		return cli.NewExitError("ENCRYPTION_SECRET must be set", 1)
	}

	enc, err := broker.NewEncryptor(cfg.EncryptionSecret)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	sealed, err := enc.Seal(value, account)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	fmt.Fprintln(os.Stdout, sealed)
	return nil
}
