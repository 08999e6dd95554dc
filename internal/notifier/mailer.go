package notifier

import (
	"context"
	"fmt"

	"billbuddy/internal/config"
	"billbuddy/pkg/utils"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SMTPMailer struct {
	cfg utils.SMTPConfig
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: utils.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPEmail,
		Password: cfg.SMTPPass,
		From:     cfg.From,
	}}
}

func (m *SMTPMailer) Send(_ context.Context, e Email) error {
	return utils.SendEmail(m.cfg, e.To, e.Subject, e.HTMLBody)
}

type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridMailer(cfg config.MailConfig) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:   mail.NewEmail("Bill Buddy", cfg.From),
	}
}

// message builds an HTML-only email; the bodies are rendered HTML with no
// plain-text twin.
func (m *SendGridMailer) message(e Email) *mail.SGMailV3 {
	return mail.NewSingleEmail(m.from, e.Subject, mail.NewEmail("", e.To), "", e.HTMLBody)
}

func (m *SendGridMailer) Send(ctx context.Context, e Email) error {
	resp, err := m.client.SendWithContext(ctx, m.message(e))
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

// LogMailer only logs. It backs MAIL_BACKEND=none.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, e Email) error {
	utils.Logger.WithField("kind", e.Kind).Infof("mail backend disabled, not sending %q to %s", e.Subject, e.To)
	return nil
}

// NewMailer returns the Sender for the configured mail backend.
func NewMailer(cfg config.MailConfig) (Sender, error) {
	switch cfg.Backend {
	case "smtp":
		return NewSMTPMailer(cfg), nil
	case "sendgrid":
		return NewSendGridMailer(cfg), nil
	case "none":
		return LogMailer{}, nil
	default:
		return nil, fmt.Errorf("unsupported mail backend %q", cfg.Backend)
	}
}
