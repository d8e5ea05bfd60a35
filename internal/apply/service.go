// Package apply runs the IPO application workflow over configured accounts.
package apply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ipo_applier/internal/broker"
	"ipo_applier/internal/eligibility"
	apperrors "ipo_applier/internal/errors"
	"ipo_applier/internal/models"
	"ipo_applier/internal/outcome"
)

// Run status values.
const (
	RunStarted   = "started"
	RunSuccess   = "success"
	RunViolation = "violation"
	RunError     = "error"
)

// ErrReportNotSaved marks a report that could not be written to a store.
var ErrReportNotSaved = errors.New("report not saved")

// Sleeper waits between accounts.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper sleeps on a real timer and returns early if ctx is done.
type TimerSleeper struct{}

// Sleep implements Sleeper.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ReportStore persists a finished account report.
type ReportStore interface {
	SaveReport(ctx context.Context, report *models.AccountReport) error
}

// RunRecorder keeps the history of runs.
type RunRecorder interface {
	StartRun(ctx context.Context, run *models.Run) error
	CompleteRun(ctx context.Context, run *models.Run) error
}

// Options configures a Service.
type Options struct {
	PacingInterval time.Duration
	SubmitTimeout  time.Duration
	Sleeper        Sleeper
	Stores         []ReportStore
	Runs           RunRecorder
	Logger         *zap.Logger
	Now            func() time.Time
}

// Service drives accounts through login, filtering and application.
type Service struct {
	broker        broker.Broker
	stores        []ReportStore
	runs          RunRecorder
	sleeper       Sleeper
	pacing        time.Duration
	submitTimeout time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

// NewService creates a new apply service.
func NewService(b broker.Broker, opts Options) *Service {
	s := &Service{
		broker:        b,
		stores:        opts.Stores,
		runs:          opts.Runs,
		sleeper:       opts.Sleeper,
		pacing:        opts.PacingInterval,
		submitTimeout: opts.SubmitTimeout,
		now:           opts.Now,
		logger:        opts.Logger,
	}
	if s.sleeper == nil {
		s.sleeper = TimerSleeper{}
	}
	if s.submitTimeout <= 0 {
		s.submitTimeout = 30 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named("apply")
	return s
}

// RunSummary is the result of one run over all accounts.
type RunSummary struct {
	Run     *models.Run
	Reports []*models.AccountReport
	Totals  outcome.Summary
	// Errs holds protocol violations, unsaved reports and any other error
	// except login and directory failures, which stay on their reports.
	Errs []error
}

// Err returns a non-nil error if the run should be treated as failed.
func (s *RunSummary) Err() error {
	return errors.Join(s.Errs...)
}

// RunAll processes accounts strictly in order, pausing between them.
func (s *Service) RunAll(ctx context.Context, runID, trigger string, accounts []models.Account, shared models.SharedParameters) *RunSummary {
	started := s.now()
	run := &models.Run{
		ID:           runID,
		Trigger:      trigger,
		Status:       RunStarted,
		AccountCount: len(accounts),
		StartedAt:    started,
	}
	summary := &RunSummary{Run: run, Reports: make([]*models.AccountReport, 0, len(accounts))}

	log := s.logger.With(zap.String("run_id", runID), zap.String("trigger", trigger))
	log.Info("Starting run", zap.Int("accounts", len(accounts)), zap.Int("kitta", shared.Kitta))

	if s.runs != nil {
		if err := s.runs.StartRun(ctx, run); err != nil {
			log.Warn("Recording run start failed", zap.Error(err))
		}
	}

	for i, account := range accounts {
		if ctx.Err() != nil {
			summary.Errs = append(summary.Errs, fmt.Errorf("run stopped before %s: %w", account.Name, ctx.Err()))
			break
		}
		report, err := s.RunAccount(ctx, i, account, shared, runID)
		if report != nil {
			summary.Reports = append(summary.Reports, report)
		}
		if err != nil && !isolated(err) {
			summary.Errs = append(summary.Errs, err)
		}
	}

	summary.Totals = outcome.Summarize(summary.Reports)

	completed := s.now()
	run.CompletedAt = &completed
	run.DurationMs = completed.Sub(started).Milliseconds()
	run.AppliedCount = summary.Totals.Applied
	run.FailedCount = summary.Totals.Failed
	switch err := summary.Err(); {
	case err == nil:
		run.Status = RunSuccess
	case apperrors.IsProtocolViolation(err):
		run.Status = RunViolation
		run.ErrorMessage = err.Error()
	default:
		run.Status = RunError
		run.ErrorMessage = err.Error()
	}

	if s.runs != nil {
		if err := s.runs.CompleteRun(context.WithoutCancel(ctx), run); err != nil {
			log.Warn("Recording run completion failed", zap.Error(err))
		}
	}

	log.Info("Run finished",
		zap.String("status", run.Status),
		zap.Int("applied", summary.Totals.Applied),
		zap.Int("already_applied", summary.Totals.AlreadyApplied),
		zap.Int("not_eligible", summary.Totals.NotEligible),
		zap.Int("no_ipos", summary.Totals.NoIPOs),
		zap.Int("failed", summary.Totals.Failed),
		zap.Int64("duration_ms", run.DurationMs),
	)
	return summary
}

// RunAccount runs the flow for one account. index is the account's position
// in the run; every account after the first waits the pacing interval.
// A report is always returned and persisted, even when err is non-nil.
func (s *Service) RunAccount(ctx context.Context, index int, account models.Account, shared models.SharedParameters, runID string) (*models.AccountReport, error) {
	log := s.logger.With(zap.String("account", account.Name), zap.Object("credentials", account.Credentials))

	report := models.NewAccountReport(runID, account.Name, s.now())
	f := newFlow()

	var err error
	if index > 0 {
		log.Debug("Pacing before account", zap.Duration("interval", s.pacing))
		if serr := s.sleeper.Sleep(ctx, s.pacing); serr != nil {
			err = fmt.Errorf("waiting before %s: %w", account.Name, serr)
		}
	}
	if err == nil {
		err = s.execute(ctx, f, account, shared, report, log)
	}

	if err != nil {
		f.abort()
		report.Status = models.ReportFailed
		report.Error = err.Error()
		if apperrors.IsProtocolViolation(err) {
			log.Error("Protocol violation, remaining offerings skipped", zap.Error(err))
		} else {
			log.Error("Account run failed", zap.Error(err))
		}
	} else if ferr := f.finish(); ferr != nil {
		err = ferr
		report.Status = models.ReportFailed
		report.Error = ferr.Error()
	}

	completed := s.now()
	report.CompletedAt = &completed

	if perr := s.persist(context.WithoutCancel(ctx), report); perr != nil {
		log.Error("Saving report failed", zap.Error(perr))
		if err == nil {
			err = perr
		} else {
			err = errors.Join(err, perr)
		}
	}

	log.Info("Account done",
		zap.String("status", string(report.Status)),
		zap.Int("total", report.TotalIPOs),
		zap.Int("eligible", report.EligibleIPOs),
		zap.Int("attempts", len(report.Attempts)),
	)
	return report, err
}

func (s *Service) execute(ctx context.Context, f *flow, account models.Account, shared models.SharedParameters, report *models.AccountReport, log *zap.Logger) error {
	log.Info("Logging in")
	session, err := s.broker.Login(ctx, account.Name, account.Credentials)
	if err != nil {
		return apperrors.Authentication(account.Name, err)
	}
	if err := f.advance(StateAuthenticated); err != nil {
		return err
	}

	offerings, err := s.broker.ApplicableIssues(ctx, session)
	if err != nil {
		return apperrors.Directory(account.Name, err)
	}
	if err := f.advance(StateOfferingsFetched); err != nil {
		return err
	}
	report.TotalIPOs = len(offerings)
	log.Info("Fetched offerings", zap.Int("total", len(offerings)))

	if len(offerings) == 0 {
		report.Status = models.ReportNoIPOs
		return f.advance(StateNoOfferings)
	}

	if err := f.advance(StateFiltering); err != nil {
		return err
	}
	eligible, verdicts := eligibility.Filter(offerings)
	for _, v := range verdicts {
		if v.Eligible {
			log.Info("Offering eligible", zap.String("company", v.Offering.CompanyName), zap.String("scrip", v.Offering.Scrip))
			continue
		}
		log.Info("Offering filtered",
			zap.String("company", v.Offering.CompanyName),
			zap.String("scrip", v.Offering.Scrip),
			zap.Strings("reasons", v.Reasons),
		)
		report.Filtered = append(report.Filtered, v)
	}
	report.EligibleIPOs = len(eligible)

	if len(eligible) == 0 {
		report.Status = models.ReportNotEligible
		return f.advance(StateNoEligible)
	}

	if err := f.advance(StateApplying); err != nil {
		return err
	}

	// The bank list belongs to the account, not the offering, so every form gets the same choice.
	options, err := s.broker.Banks(ctx, session)
	if err != nil {
		return fmt.Errorf("fetching banks for %s: %w", account.Name, err)
	}
	bank, matched, err := ResolveBank(account.BankPreference, options)
	if err != nil {
		return fmt.Errorf("selecting bank for %s: %w", account.Name, err)
	}
	log.Debug("Available banks", zap.Int("count", len(SelectableBanks(options))), zap.String("looking_for", account.BankPreference))
	if account.BankPreference != "" && !matched {
		log.Warn("Bank not found, selecting first available", zap.String("looking_for", account.BankPreference), zap.String("bank", bank.Name))
	} else {
		log.Info("Selected bank", zap.String("bank", bank.Name))
	}

	for _, o := range eligible {
		if err := s.apply(ctx, session, account, shared, bank, o, report, log); err != nil {
			return err
		}
	}
	return nil
}

// apply submits one offering and records the attempt on the report.
func (s *Service) apply(ctx context.Context, session *broker.Session, account models.Account, shared models.SharedParameters, bank broker.BankOption, o models.Offering, report *models.AccountReport, log *zap.Logger) error {
	log = log.With(zap.String("company", o.CompanyName), zap.String("scrip", o.Scrip))

	sub := broker.Submission{
		Offering:       o,
		Bank:           bank,
		Kitta:          shared.Kitta,
		CRN:            account.CRN,
		TransactionPIN: account.TransactionPIN,
	}

	subCtx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	res, err := s.broker.Submit(subCtx, session, sub)
	cancel()

	attempt := models.ApplicationAttempt{
		AccountName: account.Name,
		Company:     o.CompanyName,
		Scrip:       o.Scrip,
		Kitta:       shared.Kitta,
		MaxPrice:    shared.MaxPrice,
		Bank:        bank.Name,
		AttemptedAt: s.now(),
	}

	if err != nil {
		switch {
		case ctx.Err() != nil:
			err = fmt.Errorf("submitting %s: %w", o.CompanyName, err)
		case errors.Is(err, context.DeadlineExceeded):
			err = apperrors.Wrap(apperrors.ErrSubmissionTimeout,
				fmt.Sprintf("no response for %s within %s", o.CompanyName, s.submitTimeout), err)
		default:
			err = apperrors.Wrap(apperrors.ErrProtocolViolation,
				fmt.Sprintf("submitting %s", o.CompanyName), err)
		}
		attempt.Status = models.OutcomeUnclassified
		attempt.Message = err.Error()
		outcome.Record(report, attempt)
		return err
	}

	attempt.StatusCode = res.StatusCode
	result, err := outcome.Classify(res.StatusCode, res.Message)
	if err != nil {
		attempt.Status = models.OutcomeUnclassified
		attempt.Message = res.Message
		outcome.Record(report, attempt)
		return fmt.Errorf("applying for %s: %w", o.CompanyName, err)
	}

	attempt.Status = result.Status
	attempt.Message = result.Message
	outcome.Record(report, attempt)

	switch result.Status {
	case models.OutcomeSuccess:
		log.Info("Successfully applied", zap.String("message", result.Message))
	case models.OutcomeAlreadyApplied:
		log.Warn("Already applied", zap.String("message", result.Message))
	default:
		log.Warn("Application failed", zap.String("message", result.Message))
	}
	return nil
}

func (s *Service) persist(ctx context.Context, report *models.AccountReport) error {
	var errs []error
	for _, store := range s.stores {
		if err := store.SaveReport(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("%w for %s: %w", ErrReportNotSaved, report.AccountName, err))
		}
	}
	return errors.Join(errs...)
}

// isolated reports whether err only affects its own account. Login and
// directory failures are; violations and unsaved reports are not.
func isolated(err error) bool {
	if apperrors.IsProtocolViolation(err) || errors.Is(err, ErrReportNotSaved) {
		return false
	}
	return errors.Is(err, apperrors.ErrAuthentication) || errors.Is(err, apperrors.ErrDirectory)
}
