// Package scheduler triggers runs and history cleanup on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ipo_applier/internal/apply"
	apperrors "ipo_applier/internal/errors"
)

// pruneSpec runs history cleanup once a day.
const pruneSpec = "@daily"

// Trigger starts a run in the background.
type Trigger interface {
	Start(trigger string) (string, error)
}

// HistoryPruner deletes old run history.
type HistoryPruner interface {
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler owns the cron instance of serve mode.
type Scheduler struct {
	cron    *cron.Cron
	trigger Trigger
	logger  *zap.Logger
	now     func() time.Time
}

// Options configures a Scheduler.
type Options struct {
	// RunSpec is a standard 5-field cron spec or descriptor. Empty disables scheduled runs.
	RunSpec string
	// Pruner and Retention enable daily history cleanup when both are set.
	Pruner    HistoryPruner
	Retention time.Duration
	Location  *time.Location
}

// New creates a scheduler. The cron expression is parsed here so a typo fails at startup.
func New(trigger Trigger, opts Options, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DiscardLogger))),
		trigger: trigger,
		logger:  logger.Named("scheduler"),
		now:     time.Now,
	}

	if opts.RunSpec != "" {
		if _, err := s.cron.AddFunc(opts.RunSpec, s.startRun); err != nil {
			return nil, apperrors.ConfigurationField("RUN_SCHEDULE", err.Error())
		}
		s.logger.Info("Scheduled runs", zap.String("spec", opts.RunSpec), zap.String("location", loc.String()))
	}

	if opts.Pruner != nil && opts.Retention > 0 {
		pruner, retention := opts.Pruner, opts.Retention
		if _, err := s.cron.AddFunc(pruneSpec, func() { s.prune(pruner, retention) }); err != nil {
			return nil, err
		}
		s.logger.Info("Scheduled history cleanup", zap.Duration("retention", retention))
	}

	return s, nil
}

// Entries returns the number of scheduled jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Run starts the cron loop and blocks until ctx is done. Jobs in flight
// are waited for before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) startRun() {
	runID, err := s.trigger.Start(apply.TriggerSchedule)
	if errors.Is(err, apperrors.ErrRunInProgress) {
		s.logger.Warn("Skipping scheduled run, another run is active")
		return
	}
	if err != nil {
		s.logger.Error("Starting scheduled run failed", zap.Error(err))
		return
	}
	s.logger.Info("Scheduled run started", zap.String("run_id", runID))
}

func (s *Scheduler) prune(pruner HistoryPruner, retention time.Duration) {
	cutoff := s.now().Add(-retention)
	deleted, err := pruner.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		s.logger.Error("Pruning run history failed", zap.Error(err))
		return
	}
	s.logger.Info("Pruned run history", zap.Int64("runs", deleted), zap.Time("before", cutoff))
}
