package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridEndpoint = "/v3/mail/send"

// SendGridSender delivers through the SendGrid transactional email API.
type SendGridSender struct {
	apiKey string
	host   string
	from   From
}

// NewSendGridSender builds a sender. host may be empty to use the public API.
func NewSendGridSender(apiKey, host string, from From) (*SendGridSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("SENDGRID_API_KEY not set")
	}
	if host == "" {
		host = "https://api.sendgrid.com"
	}
	return &SendGridSender{apiKey: apiKey, host: host, from: from}, nil
}

func (s *SendGridSender) SendEmail(ctx context.Context, to, subject, htmlBody string) (SendResult, error) {
	if to == "" {
		return SendResult{}, fmt.Errorf("to address is empty")
	}

	message := mail.NewV3MailInit(
		mail.NewEmail(s.from.Name, s.from.Email),
		subject,
		mail.NewEmail("", to),
		mail.NewContent("text/html", htmlBody),
	)

	request := sendgrid.GetRequest(s.apiKey, sendGridEndpoint, s.host)
	request.Method = rest.Post
	request.Body = mail.GetRequestBody(message)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return SendResult{}, fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 300 {
		return SendResult{}, fmt.Errorf("sendgrid send failed: status=%d body=%s", response.StatusCode, response.Body)
	}

	messageID := ""
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		messageID = ids[0]
	}
	return SendResult{MessageID: messageID, SentAt: time.Now()}, nil
}
