package auth

import (
	"context"
	"fmt"
)

// VerificationEmail is the rendered message handed to Mailer implementations.
type VerificationEmail struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// BuildVerificationEmail renders the verification message pointing at the
// frontend confirm route.
func BuildVerificationEmail(baseURL, to, name, token string) VerificationEmail {
	url := fmt.Sprintf("%s/verify-email/%s", baseURL, token)

	return VerificationEmail{
		To:      to,
		Subject: "Email Verification",
		HTML: fmt.Sprintf(
			`<p>Please verify your email by clicking the following link:</p><a href="%s">Verify Email</a>`,
			url,
		),
		Text: fmt.Sprintf("Please verify your email by visiting: %s", url),
	}
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, to, name, token string) error

// SendVerificationEmail implements Mailer.
func (f MailerFunc) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	if f == nil {
		return nil
	}
	return f(ctx, to, name, token)
}

type noopMailer struct{}

func (noopMailer) SendVerificationEmail(context.Context, string, string, string) error {
	return nil
}

// NoopMailer returns a Mailer that drops every message, useful in tests and
// local development.
func NoopMailer() Mailer {
	return noopMailer{}
}
