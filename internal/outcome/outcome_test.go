package outcome

import (
	"errors"
	"testing"
	"time"

	apperrors "ipo_applier/internal/errors"
	"ipo_applier/internal/models"
)

var fixedTime = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func TestClassify_AcceptedCodes(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		message     string
		wantStatus  models.OutcomeStatus
		wantMessage string
	}{
		{"created", 201, "Applied successfully", models.OutcomeSuccess, "Applied successfully"},
		{"conflict with message", 409, "You have already applied", models.OutcomeAlreadyApplied, "You have already applied"},
		{"conflict empty message", 409, "", models.OutcomeAlreadyApplied, "Already applied"},
		{"bad request with message", 400, "Invalid CRN", models.OutcomeFailed, "Invalid CRN"},
		{"bad request empty message", 400, "", models.OutcomeFailed, "Invalid data"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Classify(tc.code, tc.message)
			if err != nil {
				t.Fatalf("Classify() error = %v, want nil", err)
			}
			if got.Status != tc.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tc.wantStatus)
			}
			if got.Message != tc.wantMessage {
				t.Errorf("Message = %q, want %q", got.Message, tc.wantMessage)
			}
		})
	}
}

func TestClassify_OtherCodesAreProtocolViolations(t *testing.T) {
	for _, code := range []int{0, 200, 202, 401, 403, 404, 422, 429, 500, 502, 503} {
		got, err := Classify(code, "whatever")
		if err == nil {
			t.Errorf("Classify(%d) error = nil, want protocol violation (got %+v)", code, got)
			continue
		}
		if !errors.Is(err, apperrors.ErrProtocolViolation) {
			t.Errorf("Classify(%d) error = %v, want ErrProtocolViolation", code, err)
		}
		var pv *ProtocolViolationError
		if !errors.As(err, &pv) || pv.StatusCode != code {
			t.Errorf("Classify(%d) error should carry the status code, got %v", code, err)
		}
		if got.Status != "" {
			t.Errorf("Classify(%d) Status = %q, want empty", code, got.Status)
		}
	}
}

func TestReduce_LastAttemptWins(t *testing.T) {
	attempts := []models.ApplicationAttempt{
		{Company: "A", Status: models.OutcomeSuccess},
		{Company: "B", Status: models.OutcomeFailed},
		{Company: "C", Status: models.OutcomeAlreadyApplied},
	}

	if got := Reduce(models.ReportPending, attempts); got != models.ReportAlreadyApplied {
		t.Errorf("Reduce() = %q, want already_applied", got)
	}
	if got := Reduce(models.ReportPending, attempts[:2]); got != models.ReportFailed {
		t.Errorf("Reduce() = %q, want failed", got)
	}
	if got := Reduce(models.ReportPending, attempts[:1]); got != models.ReportApplied {
		t.Errorf("Reduce() = %q, want applied", got)
	}
}

func TestReduce_NoAttemptsKeepsCurrent(t *testing.T) {
	if got := Reduce(models.ReportNotEligible, nil); got != models.ReportNotEligible {
		t.Errorf("Reduce() = %q, want not_eligible", got)
	}
}

func TestReduce_UnclassifiedIsFailed(t *testing.T) {
	attempts := []models.ApplicationAttempt{{Status: models.OutcomeSuccess}, {Status: models.OutcomeUnclassified}}
	if got := Reduce(models.ReportPending, attempts); got != models.ReportFailed {
		t.Errorf("Reduce() = %q, want failed", got)
	}
}

func TestRecord_AppendsAndOverwritesStatus(t *testing.T) {
	report := models.NewAccountReport("run", "alice", fixedTime)

	Record(report, models.ApplicationAttempt{Company: "A", Status: models.OutcomeSuccess})
	if report.Status != models.ReportApplied {
		t.Errorf("Status = %q, want applied", report.Status)
	}

	Record(report, models.ApplicationAttempt{Company: "B", Status: models.OutcomeFailed})
	if report.Status != models.ReportFailed {
		t.Errorf("Status = %q, want failed", report.Status)
	}
	if len(report.Attempts) != 2 || report.Attempts[0].Company != "A" {
		t.Errorf("Attempts = %+v, want [A B]", report.Attempts)
	}
}

func TestSummarize(t *testing.T) {
	reports := []*models.AccountReport{
		{Status: models.ReportApplied},
		{Status: models.ReportApplied},
		{Status: models.ReportNoIPOs},
		{Status: models.ReportFailed},
		{Status: models.ReportNotEligible},
		{Status: models.ReportAlreadyApplied},
	}

	s := Summarize(reports)
	want := Summary{Accounts: 6, Applied: 2, AlreadyApplied: 1, NotEligible: 1, NoIPOs: 1, Failed: 1}
	if s != want {
		t.Errorf("Summarize() = %+v, want %+v", s, want)
	}
}
