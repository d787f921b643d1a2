package sender

import (
	"context"
	"fmt"
	"time"
)

type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// EmailSender delivers one HTML email to one recipient.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) (SendResult, error)
}

// From identifies the sending mailbox.
type From struct {
	Name  string
	Email string
}

// Provider names accepted by MAIL_PROVIDER.
const (
	ProviderSendGrid = "sendgrid"
	ProviderGmail    = "gmail"
	ProviderBrevo    = "brevo"
	ProviderSMTP     = "smtp"
)

// Options carries every setting any provider may need.
type Options struct {
	Provider       string
	From           From
	SendGridAPIKey string
	SendGridHost   string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPass       string
	Timeout        time.Duration
}

// New returns the sender selected by opts.Provider.
func New(opts Options) (EmailSender, error) {
	if opts.From.Email == "" {
		return nil, fmt.Errorf("sender address not set")
	}
	switch opts.Provider {
	case "", ProviderSendGrid:
		return NewSendGridSender(opts.SendGridAPIKey, opts.SendGridHost, opts.From)
	case ProviderGmail, ProviderBrevo, ProviderSMTP:
		return NewSMTPSender(opts.Provider, SMTPSettings{
			Host:     opts.SMTPHost,
			Port:     opts.SMTPPort,
			Username: opts.SMTPUser,
			Password: opts.SMTPPass,
			Timeout:  opts.Timeout,
		}, opts.From)
	default:
		return nil, fmt.Errorf("unknown mail provider %q", opts.Provider)
	}
}
