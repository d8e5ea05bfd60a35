// Package models contains the domain models for the IPO applier.
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zapcore"
)

// Credentials are the MeroShare login secrets for one account.
type Credentials struct {
	Username string `json:"-"`
	Password string `json:"-"`
	DP       string `json:"-"` // Depository participant code, e.g. "13700"
}

// String never prints the secrets.
func (c Credentials) String() string {
	return "credentials{redacted}"
}

// MarshalLogObject keeps credentials out of structured logs.
func (c Credentials) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("dp", c.DP)
	enc.AddBool("redacted", true)
	return nil
}

// Account is one brokerage identity under automation.
type Account struct {
	Name           string      `json:"name"`
	Credentials    Credentials `json:"-"`
	BankPreference string      `json:"bankPreference,omitempty"` // empty = any bank
	TransactionPIN string      `json:"-"`
	CRN            string      `json:"-"`
}

// SharedParameters are common to all accounts for one run.
type SharedParameters struct {
	Kitta    int             `json:"kitta"`
	MaxPrice decimal.Decimal `json:"maxPrice"`
}

// Offering is one primary-share issue as reported by MeroShare.
type Offering struct {
	CompanyShareID int64  `json:"companyShareId"`
	CompanyName    string `json:"companyName"`
	Scrip          string `json:"scrip"`
	ShareTypeName  string `json:"shareTypeName"`
	ShareGroupName string `json:"shareGroupName"`
	SubGroup       string `json:"subGroup"`
	AlreadyActed   bool   `json:"alreadyActed"`
}

// Key returns the (company name, scrip) identity of the offering.
func (o Offering) Key() string {
	return o.CompanyName + "|" + o.Scrip
}

// EligibilityVerdict is the filter result for one offering.
type EligibilityVerdict struct {
	Offering Offering `json:"offering"`
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons,omitempty"`
}

// OutcomeStatus is the classified result of one application attempt.
type OutcomeStatus string

const (
	OutcomeSuccess        OutcomeStatus = "success"
	OutcomeAlreadyApplied OutcomeStatus = "already_applied"
	OutcomeFailed         OutcomeStatus = "failed"
	// OutcomeUnclassified marks an attempt that ended in a protocol violation.
	OutcomeUnclassified OutcomeStatus = "unclassified"
)

// ApplicationAttempt is one submission to an eligible offering.
type ApplicationAttempt struct {
	AccountName string          `json:"accountName"`
	Company     string          `json:"company"`
	Scrip       string          `json:"scrip"`
	Kitta       int             `json:"kitta"`
	MaxPrice    decimal.Decimal `json:"maxPrice"`
	Bank        string          `json:"bank"`
	StatusCode  int             `json:"statusCode"`
	Status      OutcomeStatus   `json:"status"`
	Message     string          `json:"message"`
	AttemptedAt time.Time       `json:"attemptedAt"`
}

// ReportStatus is the overall status of an account report.
type ReportStatus string

const (
	ReportPending        ReportStatus = "pending"
	ReportNoIPOs         ReportStatus = "no_ipos"
	ReportNotEligible    ReportStatus = "not_eligible"
	ReportApplied        ReportStatus = "applied"
	ReportAlreadyApplied ReportStatus = "already_applied"
	ReportFailed         ReportStatus = "failed"
)

// AccountReport is the per-account result of one run.
type AccountReport struct {
	ID           int64                `json:"-"`
	RunID        string               `json:"runId"`
	AccountName  string               `json:"name"`
	TotalIPOs    int                  `json:"totalIPOs"`
	EligibleIPOs int                  `json:"eligibleIPOs"`
	Attempts     []ApplicationAttempt `json:"appliedIPOs"`
	Filtered     []EligibilityVerdict `json:"filteredIPOs,omitempty"`
	Status       ReportStatus         `json:"status"`
	Error        string               `json:"error,omitempty"`
	StartedAt    time.Time            `json:"startedAt"`
	CompletedAt  *time.Time           `json:"completedAt,omitempty"`
}

// NewAccountReport creates a pending report for an account.
func NewAccountReport(runID, accountName string, startedAt time.Time) *AccountReport {
	return &AccountReport{
		RunID:       runID,
		AccountName: accountName,
		Attempts:    []ApplicationAttempt{},
		Status:      ReportPending,
		StartedAt:   startedAt,
	}
}

// Run is one execution over all configured accounts.
type Run struct {
	ID           string     `json:"id"`
	Trigger      string     `json:"trigger"` // "cli", "api", "schedule"
	Status       string     `json:"status"`  // "started", "success", "violation", "error"
	AccountCount int        `json:"accountCount"`
	AppliedCount int        `json:"appliedCount"`
	FailedCount  int        `json:"failedCount"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	DurationMs   int64      `json:"durationMs,omitempty"`
}
