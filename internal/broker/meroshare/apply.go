package meroshare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"ipo_applier/internal/broker"
)

// Banks returns the disbursing banks linked to the account, in MeroShare's order.
func (c *Client) Banks(ctx context.Context, session *broker.Session) ([]broker.BankOption, error) {
	var banks []bank
	if err := c.getJSON(ctx, request{method: http.MethodGet, path: "/bank/"}, session, &banks, "banks"); err != nil {
		return nil, err
	}

	options := make([]broker.BankOption, 0, len(banks))
	for _, b := range banks {
		options = append(options, broker.BankOption{ID: itoa(b.ID), Name: b.Name})
	}
	return options, nil
}

// bankAccount returns the first account linked to a bank, as the web form
// preselects it.
func (c *Client) bankAccount(ctx context.Context, session *broker.Session, bankID string) (*bankAccount, error) {
	var accounts []bankAccount
	r := request{method: http.MethodGet, path: "/bank/" + bankID}
	if err := c.getJSON(ctx, r, session, &accounts, "bank accounts"); err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: bank %s", ErrNoBankAccount, bankID)
	}
	return &accounts[0], nil
}

// Submit applies for one offering. The raw status code and message are
// returned unclassified; any HTTP answer is a result, not an error.
func (c *Client) Submit(ctx context.Context, session *broker.Session, sub broker.Submission) (*broker.SubmissionResult, error) {
	if session == nil || session.Token == "" || session.IsExpired() {
		return nil, ErrSessionExpired
	}

	acct, err := c.bankAccount(ctx, session, sub.Bank.ID)
	if err != nil {
		return nil, fmt.Errorf("selecting bank account: %w", err)
	}

	body := applyRequest{
		Demat:           session.Data[DataDemat],
		BOID:            session.Data[DataBOID],
		AccountNumber:   acct.AccountNumber,
		CustomerID:      acct.ID,
		AccountBranchID: acct.AccountBranchID,
		AccountTypeID:   acct.AccountTypeID,
		AppliedKitta:    strconv.Itoa(sub.Kitta),
		CRNNumber:       sub.CRN,
		TransactionPIN:  sub.TransactionPIN,
		CompanyShareID:  itoa(sub.Offering.CompanyShareID),
		BankID:          sub.Bank.ID,
	}

	resp, err := c.do(ctx, request{method: http.MethodPost, path: "/applicantForm/share/apply", body: body, noRetry: true}, session)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("reading apply response: %w", err)
	}

	var msg messageResponse
	if len(raw) > 0 {
		// A non-JSON body leaves the message empty; the caller applies defaults.
		_ = json.Unmarshal(raw, &msg)
	}

	c.logger.Info("Application submitted",
		zap.String("account", session.AccountName),
		zap.String("company", sub.Offering.CompanyName),
		zap.Int("status", resp.StatusCode),
		zap.String("message", msg.Message),
	)

	return &broker.SubmissionResult{StatusCode: resp.StatusCode, Message: msg.Message}, nil
}
