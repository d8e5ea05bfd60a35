package main

import (
	"fmt"

	"go.uber.org/zap"

	"ipo_applier/internal/apply"
	"ipo_applier/internal/broker/meroshare"
	"ipo_applier/internal/config"
	"ipo_applier/internal/database"
	"ipo_applier/internal/notify"
	"ipo_applier/internal/report"
	"ipo_applier/internal/repository"
)

// App holds the application dependencies.
type App struct {
	config  *config.Config
	logger  *zap.Logger
	db      *database.DB
	runs    *repository.RunRepository
	reports *repository.ReportRepository
	files   *report.FileStore
	runner  *apply.Runner
}

// newApp opens storage and wires the apply service for cfg.
func newApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.New(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Debug("Database migrations completed", zap.String("path", cfg.Storage.DBPath))

	files, err := report.NewFileStore(cfg.Storage.ReportDir)
	if err != nil {
		db.Close()
		return nil, err
	}

	runs := repository.NewRunRepository(db)
	reports := repository.NewReportRepository(db)

	client := meroshare.NewClient(cfg.MeroShare.BaseURL,
		meroshare.WithRateLimit(cfg.MeroShare.RequestsPerSecond),
		meroshare.WithLogger(logger),
	)

	service := apply.NewService(client, apply.Options{
		PacingInterval: cfg.Run.PacingInterval,
		SubmitTimeout:  cfg.Run.SubmitTimeout,
		Stores:         []apply.ReportStore{files, reports},
		Runs:           runs,
		Logger:         logger,
	})

	runner := apply.NewRunner(service, cfg.Accounts, cfg.Shared, notify.New(cfg.Mail, logger), logger)

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		runs:    runs,
		reports: reports,
		files:   files,
		runner:  runner,
	}, nil
}

// Close stops any background run and closes the database.
func (a *App) Close() {
	a.runner.Close()
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Closing database failed", zap.Error(err))
	}
	a.logger.Sync()
}
