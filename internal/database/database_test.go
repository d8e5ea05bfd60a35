package database

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	return db
}

func TestNew_CreatesConnection(t *testing.T) {
	// Setup: use temporary directory
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "data", "test.db")

	// Test: create new database connection
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	defer db.Close()

	// Verify: database file exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}

	// Verify: can ping database
	if err := db.Ping(); err != nil {
		t.Errorf("Ping() error = %v, want nil", err)
	}
}

func TestNew_InvalidPath_ReturnsError(t *testing.T) {
	// A regular file where a parent directory should be; MkdirAll fails even for root
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := New(filepath.Join(blocker, "data", "test.db"))
	if err == nil {
		t.Error("New() with invalid path should return error")
	}
}

func TestRunMigrations_CreatesAllTables(t *testing.T) {
	db := newTestDB(t)

	expectedTables := []string{
		"runs",
		"account_reports",
		"application_attempts",
	}

	for _, table := range expectedTables {
		var exists int
		query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
		if err := db.QueryRow(query, table).Scan(&exists); err != nil {
			t.Errorf("checking table %s: %v", table, err)
			continue
		}
		if exists != 1 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestRunMigrations_CreatesIndexes(t *testing.T) {
	db := newTestDB(t)

	expectedIndexes := []string{
		"idx_runs_started",
		"idx_account_reports_run",
		"idx_account_reports_account",
		"idx_application_attempts_report",
	}

	for _, index := range expectedIndexes {
		var exists int
		query := `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?`
		if err := db.QueryRow(query, index).Scan(&exists); err != nil {
			t.Errorf("checking index %s: %v", index, err)
			continue
		}
		if exists != 1 {
			t.Errorf("index %s does not exist", index)
		}
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := newTestDB(t)

	// Test: run migrations multiple more times
	for i := 0; i < 3; i++ {
		if err := db.RunMigrations(); err != nil {
			t.Fatalf("RunMigrations() iteration %d error = %v, want nil", i+1, err)
		}
	}

	var tableCount int
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'`
	if err := db.QueryRow(query).Scan(&tableCount); err != nil {
		t.Fatalf("counting tables: %v", err)
	}
	if tableCount != 3 {
		t.Errorf("table count = %d, want 3", tableCount)
	}

	// Verify: the ALTER migration added its column exactly once
	var cols int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('account_reports') WHERE name = 'filtered_json'`).Scan(&cols); err != nil {
		t.Fatalf("reading table info: %v", err)
	}
	if cols != 1 {
		t.Errorf("filtered_json columns = %d, want 1", cols)
	}
}

func TestAlter_IgnoresOnlyDuplicateColumn(t *testing.T) {
	db := newTestDB(t)

	// filtered_json already exists after RunMigrations
	if err := db.alter(migrationAddReportFiltered); err != nil {
		t.Errorf("alter() on existing column error = %v, want nil", err)
	}

	if err := db.alter(`ALTER TABLE missing_table ADD COLUMN note TEXT`); err == nil {
		t.Error("alter() on a missing table should return error")
	}
	if err := db.alter(`ALTER TABLE runs ADD COLUMN`); err == nil {
		t.Error("alter() with a syntax error should return error")
	}
}

func TestDB_Close(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}

	// Verify: operations fail after close
	if err := db.Ping(); err == nil {
		t.Error("Ping() after Close() should return error")
	}
}

func TestDB_ForeignKeyConstraints(t *testing.T) {
	db := newTestDB(t)

	// Test: try to insert a report for a run that does not exist
	_, err := db.Exec(
		`INSERT INTO account_reports (run_id, account_name, status, started_at) VALUES (?, ?, ?, ?)`,
		"missing-run", "Ram", "pending", "2025-03-14 10:00:00",
	)
	if err == nil {
		t.Error("inserting report with invalid run_id should fail")
	}
}

func TestDB_CascadeDelete(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.Exec(`INSERT INTO runs (id, trigger_source, status, started_at) VALUES ('r1', 'cli', 'success', '2025-03-14 10:00:00')`); err != nil {
		t.Fatalf("inserting run: %v", err)
	}
	res, err := db.Exec(`INSERT INTO account_reports (run_id, account_name, status, started_at) VALUES ('r1', 'Ram', 'applied', '2025-03-14 10:00:00')`)
	if err != nil {
		t.Fatalf("inserting report: %v", err)
	}
	reportID, _ := res.LastInsertId()
	if _, err := db.Exec(`INSERT INTO application_attempts (report_id, position, company, scrip, kitta, status, attempted_at) VALUES (?, 0, 'HPL', 'HPL', 10, 'success', '2025-03-14 10:00:00')`, reportID); err != nil {
		t.Fatalf("inserting attempt: %v", err)
	}

	if _, err := db.Exec(`DELETE FROM runs WHERE id = 'r1'`); err != nil {
		t.Fatalf("deleting run: %v", err)
	}

	for _, table := range []string{"account_reports", "application_attempts"} {
		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s has %d rows after cascade, want 0", table, n)
		}
	}
}
