package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"ipo_applier/internal/database"
	"ipo_applier/internal/models"
)

// ReportRepository handles account report database operations.
type ReportRepository struct {
	db *database.DB
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *database.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, run_id, account_name, total_ipos, eligible_ipos, status, error, filtered_json, started_at, completed_at`

// SaveReport stores a report and its attempts, replacing an earlier copy
// for the same run and account.
func (r *ReportRepository) SaveReport(ctx context.Context, report *models.AccountReport) error {
	var filtered sql.NullString
	if len(report.Filtered) > 0 {
		data, err := json.Marshal(report.Filtered)
		if err != nil {
			return fmt.Errorf("encoding filtered offerings: %w", err)
		}
		filtered = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM account_reports WHERE run_id = ? AND account_name = ?`,
		report.RunID, report.AccountName); err != nil {
		return err
	}

	var completedAt sql.NullTime
	if report.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *report.CompletedAt, Valid: true}
	}
	result, err := tx.ExecContext(ctx, `
		INSERT INTO account_reports (run_id, account_name, total_ipos, eligible_ipos, status, error, filtered_json, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.RunID, report.AccountName, report.TotalIPOs, report.EligibleIPOs, string(report.Status),
		nullString(report.Error), filtered, report.StartedAt, completedAt)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	for i, a := range report.Attempts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO application_attempts (report_id, position, company, scrip, kitta, max_price, bank, status_code, status, message, attempted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, i, a.Company, a.Scrip, a.Kitta, a.MaxPrice, a.Bank, a.StatusCode, string(a.Status), a.Message, a.AttemptedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	report.ID = id
	return nil
}

// ListByRun returns the reports of one run, in the order they were written.
func (r *ReportRepository) ListByRun(ctx context.Context, runID string) ([]*models.AccountReport, error) {
	return r.queryReports(ctx, `SELECT `+reportColumns+` FROM account_reports WHERE run_id = ? ORDER BY id`, runID)
}

// Latest returns the most recent report of every account.
func (r *ReportRepository) Latest(ctx context.Context) ([]*models.AccountReport, error) {
	return r.queryReports(ctx, `
		SELECT `+reportColumns+`
		FROM account_reports ar
		WHERE ar.id = (
			SELECT x.id FROM account_reports x
			WHERE x.account_name = ar.account_name
			ORDER BY x.started_at DESC, x.id DESC
			LIMIT 1
		)
		ORDER BY ar.account_name
	`)
}

// LatestForAccount returns the most recent report of one account, or nil.
func (r *ReportRepository) LatestForAccount(ctx context.Context, accountName string) (*models.AccountReport, error) {
	reports, err := r.queryReports(ctx, `
		SELECT `+reportColumns+`
		FROM account_reports
		WHERE account_name = ?
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`, accountName)
	if err != nil || len(reports) == 0 {
		return nil, err
	}
	return reports[0], nil
}

func (r *ReportRepository) queryReports(ctx context.Context, query string, args ...any) ([]*models.AccountReport, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	reports := make([]*models.AccountReport, 0)
	byID := make(map[int64]*models.AccountReport)
	for rows.Next() {
		report := &models.AccountReport{Attempts: []models.ApplicationAttempt{}}
		var errorMsg, filtered sql.NullString
		var completedAt sql.NullTime
		var status string

		if err := rows.Scan(
			&report.ID,
			&report.RunID,
			&report.AccountName,
			&report.TotalIPOs,
			&report.EligibleIPOs,
			&status,
			&errorMsg,
			&filtered,
			&report.StartedAt,
			&completedAt,
		); err != nil {
			rows.Close()
			return nil, err
		}

		report.Status = models.ReportStatus(status)
		if errorMsg.Valid {
			report.Error = errorMsg.String
		}
		if completedAt.Valid {
			report.CompletedAt = &completedAt.Time
		}
		if filtered.Valid && filtered.String != "" {
			if err := json.Unmarshal([]byte(filtered.String), &report.Filtered); err != nil {
				rows.Close()
				return nil, fmt.Errorf("decoding filtered offerings: %w", err)
			}
		}

		reports = append(reports, report)
		byID[report.ID] = report
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Close before the next query; the pool holds a single connection.
	rows.Close()

	if len(reports) == 0 {
		return reports, nil
	}
	if err := r.loadAttempts(ctx, byID); err != nil {
		return nil, err
	}
	return reports, nil
}

// loadAttempts fills in the attempts of the given reports, in submission order.
func (r *ReportRepository) loadAttempts(ctx context.Context, byID map[int64]*models.AccountReport) error {
	ids := make([]any, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := r.db.QueryContext(ctx, `
		SELECT a.report_id, a.company, a.scrip, a.kitta, a.max_price, a.bank, a.status_code, a.status, a.message, a.attempted_at, ar.account_name
		FROM application_attempts a
		JOIN account_reports ar ON ar.id = a.report_id
		WHERE a.report_id IN (`+placeholders+`)
		ORDER BY a.report_id, a.position
	`, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var reportID int64
		var a models.ApplicationAttempt
		var bank, message sql.NullString
		var statusCode sql.NullInt64
		var status string

		if err := rows.Scan(
			&reportID,
			&a.Company,
			&a.Scrip,
			&a.Kitta,
			&a.MaxPrice,
			&bank,
			&statusCode,
			&status,
			&message,
			&a.AttemptedAt,
			&a.AccountName,
		); err != nil {
			return err
		}
		a.Status = models.OutcomeStatus(status)
		a.Bank = bank.String
		a.Message = message.String
		a.StatusCode = int(statusCode.Int64)

		if report, ok := byID[reportID]; ok {
			report.Attempts = append(report.Attempts, a)
		}
	}
	return rows.Err()
}
