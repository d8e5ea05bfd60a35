package repository

import (
	"context"
	"database/sql"
	"time"

	"ipo_applier/internal/database"
	"ipo_applier/internal/models"
)

// RunRepository handles run history database operations.
type RunRepository struct {
	db *database.DB
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(db *database.DB) *RunRepository {
	return &RunRepository{db: db}
}

// StartRun creates a run entry with its initial status.
func (r *RunRepository) StartRun(ctx context.Context, run *models.Run) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, trigger_source, status, account_count, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Trigger, run.Status, run.AccountCount, run.StartedAt)
	return err
}

// CompleteRun stores the final status and counts of a run.
func (r *RunRepository) CompleteRun(ctx context.Context, run *models.Run) error {
	completedAt := time.Now()
	if run.CompletedAt != nil {
		completedAt = *run.CompletedAt
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, applied_count = ?, failed_count = ?, error_message = ?,
		    completed_at = ?, duration_ms = ?
		WHERE id = ?
	`, run.Status, run.AppliedCount, run.FailedCount, nullString(run.ErrorMessage),
		completedAt, run.DurationMs, run.ID)
	return err
}

// GetByID retrieves a run by ID. Returns nil if it does not exist.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, trigger_source, status, account_count, applied_count, failed_count, error_message, started_at, completed_at, duration_ms
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// List returns runs, most recent first, with the total count.
func (r *RunRepository) List(ctx context.Context, p Pagination) ([]*models.Run, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, trigger_source, status, account_count, applied_count, failed_count, error_message, started_at, completed_at, duration_ms
		FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	runs := make([]*models.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

// DeleteOlderThan removes runs (and their reports) started before the given time.
func (r *RunRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.Run, error) {
	run := &models.Run{}
	var errorMsg sql.NullString
	var completedAt sql.NullTime
	var durationMs sql.NullInt64

	err := s.Scan(
		&run.ID,
		&run.Trigger,
		&run.Status,
		&run.AccountCount,
		&run.AppliedCount,
		&run.FailedCount,
		&errorMsg,
		&run.StartedAt,
		&completedAt,
		&durationMs,
	)
	if err != nil {
		return nil, err
	}

	if errorMsg.Valid {
		run.ErrorMessage = errorMsg.String
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if durationMs.Valid {
		run.DurationMs = durationMs.Int64
	}
	return run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
