// Package resendmail delivers verification emails through the Resend API.
package resendmail

import (
	"context"

	"github.com/resend/resend-go/v2"

	auth "github.com/filmhub/go-auth"
)

// Mailer sends verification emails via Resend.
type Mailer struct {
	client  *resend.Client
	from    string
	baseURL string
}

// Option customizes the Mailer.
type Option func(*Mailer)

// WithClient overrides the Resend client, useful for tests.
func WithClient(client *resend.Client) Option {
	return func(m *Mailer) {
		if client != nil {
			m.client = client
		}
	}
}

// New creates a Mailer. from is the sender address, baseURL the frontend root
// the verification link points at.
func New(apiKey, from, baseURL string, opts ...Option) *Mailer {
	m := &Mailer{
		client:  resend.NewClient(apiKey),
		from:    from,
		baseURL: baseURL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// SendVerificationEmail implements auth.Mailer.
func (m *Mailer) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	msg := auth.BuildVerificationEmail(m.baseURL, to, name, token)

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	_, err := m.client.Emails.SendWithContext(ctx, params)
	return err
}

var _ auth.Mailer = (*Mailer)(nil)
