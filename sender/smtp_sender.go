package sender

import (
	"context"
	"fmt"
	"time"

	mail "github.com/wneessen/go-mail"
)

// SMTPSettings configures the relay connection.
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
	// SSL selects implicit TLS (port 465); otherwise STARTTLS is required.
	SSL bool
}

// presets fill in the relay endpoints of known providers.
var presets = map[string]SMTPSettings{
	ProviderGmail: {Host: "smtp.gmail.com", Port: 465, SSL: true},
	ProviderBrevo: {Host: "smtp-relay.brevo.com", Port: 587},
}

// ResolveSMTPSettings merges the preset of provider with the explicit
// settings. Explicit host and port win over the preset.
func ResolveSMTPSettings(provider string, s SMTPSettings) (SMTPSettings, error) {
	if p, ok := presets[provider]; ok {
		if s.Host == "" {
			s.Host = p.Host
		}
		if s.Port == 0 {
			s.Port = p.Port
			s.SSL = p.SSL
		}
	}
	if s.Port == 0 {
		s.Port = 587
	}
	if s.Port == 465 {
		s.SSL = true
	}
	if s.Timeout == 0 {
		s.Timeout = 15 * time.Second
	}

	if s.Host == "" {
		return s, fmt.Errorf("SMTP_HOST not set")
	}
	if s.Username == "" {
		return s, fmt.Errorf("SMTP_USER not set")
	}
	if s.Password == "" {
		return s, fmt.Errorf("SMTP_PASS not set")
	}
	return s, nil
}

// SMTPSender relays mail through an authenticated SMTP server.
type SMTPSender struct {
	settings SMTPSettings
	from     From
}

func NewSMTPSender(provider string, settings SMTPSettings, from From) (*SMTPSender, error) {
	resolved, err := ResolveSMTPSettings(provider, settings)
	if err != nil {
		return nil, err
	}
	return &SMTPSender{settings: resolved, from: from}, nil
}

// Settings returns the resolved relay settings.
func (s *SMTPSender) Settings() SMTPSettings {
	return s.settings
}

// BuildMessage assembles the MIME message for one recipient.
func (s *SMTPSender) BuildMessage(to, subject, htmlBody string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.from.Name, s.from.Email); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetMessageID()
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	return msg, nil
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, htmlBody string) (SendResult, error) {
	msg, err := s.BuildMessage(to, subject, htmlBody)
	if err != nil {
		return SendResult{}, err
	}

	opts := []mail.Option{
		mail.WithPort(s.settings.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.settings.Username),
		mail.WithPassword(s.settings.Password),
		mail.WithTimeout(s.settings.Timeout),
	}
	if s.settings.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(s.settings.Host, opts...)
	if err != nil {
		return SendResult{}, fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return SendResult{}, fmt.Errorf("smtp send failed: %w", err)
	}

	messageID := ""
	if ids := msg.GetGenHeader(mail.HeaderMessageID); len(ids) > 0 {
		messageID = ids[0]
	}
	return SendResult{MessageID: messageID, SentAt: time.Now()}, nil
}
