package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ipo_applier/internal/models"
)

func sampleReport(runID, account string, startedAt time.Time) *models.AccountReport {
	r := models.NewAccountReport(runID, account, startedAt)
	r.TotalIPOs = 3
	r.EligibleIPOs = 2
	r.Status = models.ReportApplied
	completed := startedAt.Add(10 * time.Second)
	r.CompletedAt = &completed
	r.Filtered = []models.EligibilityVerdict{{
		Offering: models.Offering{CompanyName: "Mutual Fund", Scrip: "MF1", ShareTypeName: "IPO", ShareGroupName: "Mutual Fund"},
		Reasons:  []string{"share group is not Ordinary Shares"},
	}}
	r.Attempts = []models.ApplicationAttempt{
		{
			AccountName: account,
			Company:     "Hydro Ltd",
			Scrip:       "HYD",
			Kitta:       10,
			MaxPrice:    decimal.RequireFromString("100.50"),
			Bank:        "Nabil Bank",
			StatusCode:  201,
			Status:      models.OutcomeSuccess,
			Message:     "Share has been applied successfully.",
			AttemptedAt: startedAt.Add(time.Second),
		},
		{
			AccountName: account,
			Company:     "Power Ltd",
			Scrip:       "PWR",
			Kitta:       10,
			MaxPrice:    decimal.RequireFromString("100.50"),
			Bank:        "Nabil Bank",
			StatusCode:  409,
			Status:      models.OutcomeAlreadyApplied,
			Message:     "Already applied",
			AttemptedAt: startedAt.Add(2 * time.Second),
		},
	}
	return r
}

func TestReportRepository_SaveAndListByRun(t *testing.T) {
	db := setupTestDB(t)
	runs := NewRunRepository(db)
	repo := NewReportRepository(db)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	createRun(t, runs, "run-1", started)

	report := sampleReport("run-1", "Alice", started)
	if err := repo.SaveReport(ctx, report); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	if report.ID == 0 {
		t.Error("expected report ID to be set")
	}

	reports, err := repo.ListByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListByRun() error = %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("len(reports) = %d, want 1", len(reports))
	}

	got := reports[0]
	if got.AccountName != "Alice" || got.Status != models.ReportApplied {
		t.Errorf("report = %+v", got)
	}
	if got.TotalIPOs != 3 || got.EligibleIPOs != 2 {
		t.Errorf("counts = %d/%d, want 3/2", got.TotalIPOs, got.EligibleIPOs)
	}
	if len(got.Attempts) != 2 {
		t.Fatalf("len(Attempts) = %d, want 2", len(got.Attempts))
	}
	if got.Attempts[0].Company != "Hydro Ltd" || got.Attempts[1].Company != "Power Ltd" {
		t.Errorf("attempt order = %s, %s", got.Attempts[0].Company, got.Attempts[1].Company)
	}
	if !got.Attempts[0].MaxPrice.Equal(decimal.RequireFromString("100.5")) {
		t.Errorf("MaxPrice = %s, want 100.5", got.Attempts[0].MaxPrice)
	}
	if got.Attempts[1].Status != models.OutcomeAlreadyApplied || got.Attempts[1].StatusCode != 409 {
		t.Errorf("second attempt = %+v", got.Attempts[1])
	}
	if got.Attempts[0].AccountName != "Alice" {
		t.Errorf("AccountName = %q, want Alice", got.Attempts[0].AccountName)
	}
	if len(got.Filtered) != 1 || got.Filtered[0].Offering.Scrip != "MF1" {
		t.Errorf("Filtered = %+v", got.Filtered)
	}
}

func TestReportRepository_SaveReport_ReplacesSameRunAndAccount(t *testing.T) {
	db := setupTestDB(t)
	runs := NewRunRepository(db)
	repo := NewReportRepository(db)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	createRun(t, runs, "run-1", started)

	if err := repo.SaveReport(ctx, sampleReport("run-1", "Alice", started)); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	second := models.NewAccountReport("run-1", "Alice", started)
	second.Status = models.ReportFailed
	second.Error = "authentication failed"
	if err := repo.SaveReport(ctx, second); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	reports, err := repo.ListByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListByRun() error = %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("len(reports) = %d, want 1", len(reports))
	}
	if reports[0].Status != models.ReportFailed || reports[0].Error != "authentication failed" {
		t.Errorf("report = %+v", reports[0])
	}
	if len(reports[0].Attempts) != 0 {
		t.Errorf("old attempts should be removed, got %d", len(reports[0].Attempts))
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM application_attempts`).Scan(&count); err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != 0 {
		t.Errorf("application_attempts rows = %d, want 0", count)
	}
}

func TestReportRepository_SaveReport_UnknownRun_Fails(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReportRepository(db)

	err := repo.SaveReport(context.Background(), sampleReport("missing", "Alice", time.Now()))
	if err == nil {
		t.Error("expected foreign key error for unknown run")
	}
}

func TestReportRepository_Latest(t *testing.T) {
	db := setupTestDB(t)
	runs := NewRunRepository(db)
	repo := NewReportRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	createRun(t, runs, "run-1", base)
	createRun(t, runs, "run-2", base.Add(time.Hour))

	old := sampleReport("run-1", "Alice", base)
	if err := repo.SaveReport(ctx, old); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	bob := models.NewAccountReport("run-1", "Bob", base)
	bob.Status = models.ReportNoIPOs
	if err := repo.SaveReport(ctx, bob); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	newer := models.NewAccountReport("run-2", "Alice", base.Add(time.Hour))
	newer.Status = models.ReportNotEligible
	if err := repo.SaveReport(ctx, newer); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	latest, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("len(latest) = %d, want 2", len(latest))
	}
	if latest[0].AccountName != "Alice" || latest[0].RunID != "run-2" {
		t.Errorf("latest[0] = %s/%s, want Alice/run-2", latest[0].AccountName, latest[0].RunID)
	}
	if latest[1].AccountName != "Bob" || latest[1].Status != models.ReportNoIPOs {
		t.Errorf("latest[1] = %+v", latest[1])
	}

	alice, err := repo.LatestForAccount(ctx, "Alice")
	if err != nil {
		t.Fatalf("LatestForAccount() error = %v", err)
	}
	if alice == nil || alice.Status != models.ReportNotEligible {
		t.Errorf("LatestForAccount(Alice) = %+v", alice)
	}

	none, err := repo.LatestForAccount(ctx, "Carol")
	if err != nil {
		t.Fatalf("LatestForAccount() error = %v", err)
	}
	if none != nil {
		t.Errorf("expected nil for unknown account, got %+v", none)
	}
}

func TestReportRepository_DeletingRunCascades(t *testing.T) {
	db := setupTestDB(t)
	runs := NewRunRepository(db)
	repo := NewReportRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	createRun(t, runs, "run-1", base)
	if err := repo.SaveReport(ctx, sampleReport("run-1", "Alice", base)); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	if _, err := runs.DeleteOlderThan(ctx, base.Add(time.Minute)); err != nil {
		t.Fatalf("DeleteOlderThan() error = %v", err)
	}

	reports, err := repo.ListByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListByRun() error = %v", err)
	}
	if len(reports) != 0 {
		t.Errorf("len(reports) = %d, want 0", len(reports))
	}
}
