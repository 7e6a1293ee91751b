// Package mailer composes the application's transactional emails on top of
// the email sender.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"

	"github.com/devblog-app/devblog/pkg/email"
)

var resetTemplate = template.Must(template.New("reset").Parse(`<p>Hi {{.Username}},</p>
<p>We received a request to reset your password. Click the link below to choose a new one. The link is valid for one hour and can be used once.</p>
<p><a href="{{.ResetURL}}">Reset your password</a></p>
<p>If you did not request this, you can safely ignore this email.</p>
`))

// Mailer builds and sends user-facing emails. ClientURL is the public base
// URL of the web client receiving the reset link.
type Mailer struct {
	sender    email.Sender
	clientURL string
}

func New(sender email.Sender, clientURL string) *Mailer {
	return &Mailer{sender: sender, clientURL: clientURL}
}

// SendPasswordReset delivers the reset link carrying the single-use token.
func (m *Mailer) SendPasswordReset(ctx context.Context, toEmail, username, resetToken string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", m.clientURL, url.QueryEscape(resetToken))

	var body bytes.Buffer
	err := resetTemplate.Execute(&body, struct {
		Username string
		ResetURL string
	}{Username: username, ResetURL: resetURL})
	if err != nil {
		return fmt.Errorf("failed to render reset email: %w", err)
	}

	return m.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   toEmail,
		Subject:  "Reset your password",
		BodyHTML: body.String(),
		Tag:      "password-reset",
	})
}
