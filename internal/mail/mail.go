// Package mail sends account activation email.
package mail

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const activationSubject = "Please Activate Your Synchrify Account"

// ErrMissingConfig is returned when SENDGRID_API_KEY or MAIL_SENDER is
// not set.
var ErrMissingConfig = errors.New("missing SENDGRID_API_KEY or MAIL_SENDER environment variable")

// Mailer delivers activation email.
type Mailer interface {
	SendActivation(ctx context.Context, email, activationURL string) error
}

// SendGridMailer delivers mail through the SendGrid API.
type SendGridMailer struct {
	client *sendgrid.Client
	sender string
}

// NewSendGridMailer creates a mailer from SENDGRID_API_KEY and
// MAIL_SENDER environment variables.
func NewSendGridMailer() (*SendGridMailer, error) {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	sender := os.Getenv("MAIL_SENDER")
	if apiKey == "" || sender == "" {
		return nil, ErrMissingConfig
	}
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		sender: sender,
	}, nil
}

// SendActivation emails the activation link to a newly registered user.
func (m *SendGridMailer) SendActivation(ctx context.Context, email, activationURL string) error {
	from := sgmail.NewEmail("Synchrify", m.sender)
	to := sgmail.NewEmail("", email)
	body := "Activate your account: " + activationURL
	message := sgmail.NewSingleEmail(from, activationSubject, to, body, body)

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sending activation mail: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sending activation mail: status %d", response.StatusCode)
	}
	return nil
}

// LogMailer logs activation links instead of delivering them (for
// development without a SendGrid account).
type LogMailer struct {
	Logf func(format string, args ...any)
}

// SendActivation logs the activation link.
func (m *LogMailer) SendActivation(_ context.Context, email, activationURL string) error {
	m.Logf("activation mail for %s: %s", email, activationURL)
	return nil
}

// Ensure both mailers implement Mailer.
var (
	_ Mailer = (*SendGridMailer)(nil)
	_ Mailer = (*LogMailer)(nil)
)
