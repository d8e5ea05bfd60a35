// Package outcome classifies MeroShare application responses and folds them
// into account reports.
package outcome

import (
	"fmt"
	"net/http"

	apperrors "ipo_applier/internal/errors"
	"ipo_applier/internal/models"
)

// Default messages used when MeroShare returns an empty body message.
const (
	DefaultAlreadyAppliedMessage = "Already applied"
	DefaultInvalidDataMessage    = "Invalid data"
)

// Outcome is the classified result of one submission.
type Outcome struct {
	Status  models.OutcomeStatus `json:"status"`
	Message string               `json:"message"`
}

// ProtocolViolationError reports a submission response outside 201/400/409.
type ProtocolViolationError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ProtocolViolationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected application status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected application status %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is match ErrProtocolViolation.
func (e *ProtocolViolationError) Unwrap() error {
	return apperrors.ErrProtocolViolation
}

// Classify maps a submission status code to an outcome. Any code other than
// 201, 400 or 409 is returned as a *ProtocolViolationError.
func Classify(statusCode int, message string) (Outcome, error) {
	switch statusCode {
	case http.StatusCreated:
		return Outcome{Status: models.OutcomeSuccess, Message: message}, nil
	case http.StatusConflict:
		if message == "" {
			message = DefaultAlreadyAppliedMessage
		}
		return Outcome{Status: models.OutcomeAlreadyApplied, Message: message}, nil
	case http.StatusBadRequest:
		if message == "" {
			message = DefaultInvalidDataMessage
		}
		return Outcome{Status: models.OutcomeFailed, Message: message}, nil
	default:
		return Outcome{}, &ProtocolViolationError{StatusCode: statusCode, Message: message}
	}
}

// ReportStatusFor returns the account status an attempt outcome contributes.
func ReportStatusFor(s models.OutcomeStatus) models.ReportStatus {
	switch s {
	case models.OutcomeSuccess:
		return models.ReportApplied
	case models.OutcomeAlreadyApplied:
		return models.ReportAlreadyApplied
	default:
		return models.ReportFailed
	}
}

// Reduce derives the account status from its attempts. The last attempt wins;
// with no attempts the current status is kept.
func Reduce(current models.ReportStatus, attempts []models.ApplicationAttempt) models.ReportStatus {
	if len(attempts) == 0 {
		return current
	}
	return ReportStatusFor(attempts[len(attempts)-1].Status)
}

// Record appends an attempt to the report and re-derives its status.
func Record(report *models.AccountReport, attempt models.ApplicationAttempt) {
	report.Attempts = append(report.Attempts, attempt)
	report.Status = Reduce(report.Status, report.Attempts)
}

// Summary counts report statuses across one run.
type Summary struct {
	Accounts       int
	Applied        int
	AlreadyApplied int
	NotEligible    int
	NoIPOs         int
	Failed         int
}

// Summarize tallies the final status of each report.
func Summarize(reports []*models.AccountReport) Summary {
	s := Summary{Accounts: len(reports)}
	for _, r := range reports {
		switch r.Status {
		case models.ReportApplied:
			s.Applied++
		case models.ReportAlreadyApplied:
			s.AlreadyApplied++
		case models.ReportNotEligible:
			s.NotEligible++
		case models.ReportNoIPOs:
			s.NoIPOs++
		case models.ReportFailed:
			s.Failed++
		}
	}
	return s
}
