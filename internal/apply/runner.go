package apply

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "ipo_applier/internal/errors"
	"ipo_applier/internal/models"
)

// Run triggers.
const (
	TriggerCLI      = "cli"
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
)

// Notifier is told about every finished run.
type Notifier interface {
	NotifyRun(ctx context.Context, summary *RunSummary) error
}

// Runner makes sure only one run is active at a time, whoever triggers it.
type Runner struct {
	service  *Service
	accounts []models.Account
	shared   models.SharedParameters
	notifier Notifier
	logger   *zap.Logger

	mu         sync.Mutex
	running    bool
	current    string
	onComplete []func(*RunSummary)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a runner for a fixed account list.
func NewRunner(service *Service, accounts []models.Account, shared models.SharedParameters, notifier Notifier, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		service:  service,
		accounts: accounts,
		shared:   shared,
		notifier: notifier,
		logger:   logger.Named("runner"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnComplete registers a callback invoked after every run.
func (r *Runner) OnComplete(fn func(*RunSummary)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onComplete = append(r.onComplete, fn)
}

// Running returns the id of the active run, if any.
func (r *Runner) Running() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.running
}

// Run performs a run and blocks until it is finished.
func (r *Runner) Run(ctx context.Context, trigger string) (*RunSummary, error) {
	runID, err := r.acquire()
	if err != nil {
		return nil, err
	}
	return r.execute(ctx, runID, trigger), nil
}

// Start begins a run in the background and returns its id.
// The run is cancelled by Close, not by ctx of the caller.
func (r *Runner) Start(trigger string) (string, error) {
	runID, err := r.acquire()
	if err != nil {
		return "", err
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(r.ctx, runID, trigger)
	}()
	return runID, nil
}

// Close cancels a background run and waits for it to finish.
func (r *Runner) Close() {
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) acquire() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return "", apperrors.Wrap(apperrors.ErrRunInProgress, "run "+r.current+" is still active", nil)
	}
	r.running = true
	r.current = uuid.NewString()
	return r.current, nil
}

func (r *Runner) execute(ctx context.Context, runID, trigger string) *RunSummary {
	summary := r.service.RunAll(ctx, runID, trigger, r.accounts, r.shared)

	if r.notifier != nil {
		if err := r.notifier.NotifyRun(context.WithoutCancel(ctx), summary); err != nil {
			r.logger.Warn("Sending run notification failed", zap.String("run_id", runID), zap.Error(err))
		}
	}

	r.mu.Lock()
	callbacks := append([]func(*RunSummary){}, r.onComplete...)
	r.running = false
	r.current = ""
	r.mu.Unlock()

	for _, fn := range callbacks {
		fn(summary)
	}
	return summary
}
