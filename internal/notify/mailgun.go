package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"

	"ipo_applier/internal/apply"
	"ipo_applier/internal/config"
)

const sendTimeout = 20 * time.Second

// Sender delivers one plain-text message.
type Sender interface {
	Send(ctx context.Context, from, subject, text, to string) (string, error)
}

// mailgunSender sends through the Mailgun API.
type mailgunSender struct {
	mg mailgun.Mailgun
}

func (s mailgunSender) Send(ctx context.Context, from, subject, text, to string) (string, error) {
	message := s.mg.NewMessage(from, subject, text, to)
	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		return "", fmt.Errorf("mailgun send failed: %w. Response: %s", err, resp)
	}
	return id, nil
}

// Mailer emails a summary after every run.
type Mailer struct {
	sender    Sender
	from      string
	recipient string
	logger    *zap.Logger
}

// NewMailgun creates a Mailer backed by Mailgun.
func NewMailgun(cfg config.MailConfig, logger *zap.Logger) *Mailer {
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	return NewMailer(mailgunSender{mg: mg}, cfg.Sender, cfg.Recipient, logger)
}

// NewMailer creates a Mailer with a custom sender.
func NewMailer(sender Sender, from, recipient string, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{
		sender:    sender,
		from:      from,
		recipient: recipient,
		logger:    logger.Named("notify"),
	}
}

// NotifyRun emails the run summary.
func (m *Mailer) NotifyRun(ctx context.Context, summary *apply.RunSummary) error {
	subject, body := Compose(summary)

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	id, err := m.sender.Send(ctx, m.from, subject, body, m.recipient)
	if err != nil {
		return err
	}
	m.logger.Info("Run summary sent", zap.String("run_id", summary.Run.ID), zap.String("message_id", id))
	return nil
}

// New returns the notifier matching the mail settings.
func New(cfg config.MailConfig, logger *zap.Logger) apply.Notifier {
	if !cfg.Enabled() {
		return Nop{}
	}
	return NewMailgun(cfg, logger)
}
