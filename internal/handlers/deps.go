// Package handlers provides the HTTP handlers of the reporting API.
package handlers

import (
	"context"

	"go.uber.org/zap"

	"ipo_applier/internal/models"
	"ipo_applier/internal/repository"
)

// RunStore reads run history.
type RunStore interface {
	GetByID(ctx context.Context, id string) (*models.Run, error)
	List(ctx context.Context, p repository.Pagination) ([]*models.Run, int64, error)
}

// ReportIndex reads stored account reports.
type ReportIndex interface {
	ListByRun(ctx context.Context, runID string) ([]*models.AccountReport, error)
	Latest(ctx context.Context) ([]*models.AccountReport, error)
	LatestForAccount(ctx context.Context, accountName string) (*models.AccountReport, error)
}

// ReportFiles reads the per-account report files.
type ReportFiles interface {
	Load(accountName string) (*models.AccountReport, error)
}

// RunTrigger starts runs in the background.
type RunTrigger interface {
	Start(trigger string) (string, error)
	Running() (string, bool)
}

// Dependencies holds all handler dependencies.
type Dependencies struct {
	Runs    RunStore
	Reports ReportIndex
	Files   ReportFiles
	Trigger RunTrigger
	Logger  *zap.Logger
}

// NewDependencies creates an empty Dependencies container.
// Use the builder methods to set the dependencies.
func NewDependencies() *Dependencies {
	return &Dependencies{Logger: zap.NewNop()}
}

// WithRuns sets the run history store.
func (d *Dependencies) WithRuns(s RunStore) *Dependencies {
	d.Runs = s
	return d
}

// WithReports sets the report index.
func (d *Dependencies) WithReports(s ReportIndex) *Dependencies {
	d.Reports = s
	return d
}

// WithFiles sets the report file store.
func (d *Dependencies) WithFiles(s ReportFiles) *Dependencies {
	d.Files = s
	return d
}

// WithTrigger sets the run trigger.
func (d *Dependencies) WithTrigger(t RunTrigger) *Dependencies {
	d.Trigger = t
	return d
}

// WithLogger sets the logger.
func (d *Dependencies) WithLogger(l *zap.Logger) *Dependencies {
	d.Logger = l
	return d
}
