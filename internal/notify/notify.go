// Package notify emails run summaries.
package notify

import (
	"context"
	"fmt"
	"strings"

	"ipo_applier/internal/apply"
	"ipo_applier/internal/models"
)

// Nop discards notifications. Used when mail is not configured.
type Nop struct{}

// NotifyRun does nothing.
func (Nop) NotifyRun(ctx context.Context, summary *apply.RunSummary) error {
	return nil
}

// Compose renders the subject and plain-text body for a run summary.
// Only names and outcomes appear; credentials never reach the message.
func Compose(summary *apply.RunSummary) (subject, body string) {
	run := summary.Run
	t := summary.Totals

	subject = fmt.Sprintf("IPO run %s: %d applied, %d failed", run.Status, t.Applied, t.Failed)

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s) started %s\n", run.ID, run.Trigger, run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Accounts: %d  Applied: %d  Already applied: %d  Not eligible: %d  No IPOs: %d  Failed: %d\n\n",
		t.Accounts, t.Applied, t.AlreadyApplied, t.NotEligible, t.NoIPOs, t.Failed)

	for _, r := range summary.Reports {
		fmt.Fprintf(&b, "%s: %s", r.AccountName, statusLabel(r.Status))
		if r.Error != "" {
			fmt.Fprintf(&b, " (%s)", r.Error)
		}
		b.WriteString("\n")
		for _, a := range r.Attempts {
			fmt.Fprintf(&b, "  - %s [%s] %s", a.Company, a.Scrip, a.Status)
			if a.Message != "" {
				fmt.Fprintf(&b, ": %s", a.Message)
			}
			b.WriteString("\n")
		}
	}

	if err := summary.Err(); err != nil {
		fmt.Fprintf(&b, "\nErrors:\n%s\n", err)
	}
	return subject, b.String()
}

func statusLabel(s models.ReportStatus) string {
	return strings.ReplaceAll(string(s), "_", " ")
}
