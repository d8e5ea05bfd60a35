package database

// SQL migrations for the run history database.
// All migrations use IF NOT EXISTS to be idempotent.

// migrationRuns records each run over the configured accounts.
const migrationRuns = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    trigger_source TEXT NOT NULL,
    status TEXT NOT NULL,
    account_count INTEGER DEFAULT 0,
    applied_count INTEGER DEFAULT 0,
    failed_count INTEGER DEFAULT 0,
    error_message TEXT,
    started_at DATETIME NOT NULL,
    completed_at DATETIME,
    duration_ms INTEGER
);
`

// migrationAccountReports holds one report per account per run.
const migrationAccountReports = `
CREATE TABLE IF NOT EXISTS account_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    account_name TEXT NOT NULL,
    total_ipos INTEGER NOT NULL DEFAULT 0,
    eligible_ipos INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    error TEXT,
    started_at DATETIME NOT NULL,
    completed_at DATETIME,
    UNIQUE(run_id, account_name)
);
`

// migrationApplicationAttempts holds the submissions of a report, in order.
const migrationApplicationAttempts = `
CREATE TABLE IF NOT EXISTS application_attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    report_id INTEGER NOT NULL REFERENCES account_reports(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    company TEXT NOT NULL,
    scrip TEXT NOT NULL,
    kitta INTEGER NOT NULL,
    max_price TEXT NOT NULL DEFAULT '0',
    bank TEXT,
    status_code INTEGER,
    status TEXT NOT NULL,
    message TEXT,
    attempted_at DATETIME NOT NULL
);
`

// migrationIndexes adds indexes for the report lookups
const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_account_reports_run ON account_reports(run_id);
CREATE INDEX IF NOT EXISTS idx_account_reports_account ON account_reports(account_name, started_at);
CREATE INDEX IF NOT EXISTS idx_application_attempts_report ON application_attempts(report_id);
`

// migrationAddReportFiltered stores the excluded offerings with their reasons as JSON.
const migrationAddReportFiltered = `
ALTER TABLE account_reports ADD COLUMN filtered_json TEXT;
`
