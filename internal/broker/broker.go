// Package broker defines the collaborators the applier drives: login,
// the open-offering directory and the application submitter.
package broker

import (
	"context"
	"net/http"
	"time"

	"ipo_applier/internal/models"
)

// Session is an authenticated "act as this account" context.
type Session struct {
	AccountName string
	Token       string
	Cookies     []*http.Cookie
	ExpiresAt   time.Time
	Data        map[string]string
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// BankOption is one entry of the disbursing-bank list offered on the application form.
type BankOption struct {
	ID   string
	Name string
}

// Submission is everything needed to apply for one offering.
type Submission struct {
	Offering       models.Offering
	Bank           BankOption
	Kitta          int
	CRN            string
	TransactionPIN string
}

// SubmissionResult is the raw answer to a submission. It is not classified here.
type SubmissionResult struct {
	StatusCode int
	Message    string
}

// SessionGateway authenticates an account.
type SessionGateway interface {
	// Login authenticates with the broker and returns a session.
	Login(ctx context.Context, account string, creds models.Credentials) (*Session, error)
}

// OfferingDirectory lists the offerings currently open to an account.
type OfferingDirectory interface {
	// ApplicableIssues returns the open offerings in directory order.
	ApplicableIssues(ctx context.Context, session *Session) ([]models.Offering, error)
}

// ApplicationSubmitter performs the concrete application.
type ApplicationSubmitter interface {
	// Banks returns the bank options offered on the application form.
	Banks(ctx context.Context, session *Session) ([]BankOption, error)

	// Submit applies for one offering and blocks until the broker answers.
	Submit(ctx context.Context, session *Session, sub Submission) (*SubmissionResult, error)
}

// Broker is the full counterparty surface used by the orchestrator.
type Broker interface {
	SessionGateway
	OfferingDirectory
	ApplicationSubmitter
}
