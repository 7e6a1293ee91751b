// Package email abstracts outbound transactional email behind a small
// sender interface with a Postmark implementation for production and a
// file-based one for local development.
package email

import (
	"context"
	"fmt"
	"regexp"
)

// Sender sends a single transactional email.
type Sender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams represents the parameters for sending an email.
type SendEmailParams struct {
	SendTo   string `json:"send_to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	Tag      string `json:"tag,omitempty"` // Optional
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks that the params describe a sendable email.
func (p SendEmailParams) Validate() error {
	if p.SendTo == "" || !emailRegex.MatchString(p.SendTo) {
		return fmt.Errorf("%w: invalid recipient %q", ErrInvalidParams, p.SendTo)
	}
	if p.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if p.BodyHTML == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}

// Config holds email delivery configuration. The Postmark token is optional
// so development environments can run with the file-based sender instead.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"no-reply@devblog.local"`
	DevOutputDir         string `env:"EMAIL_DEV_DIR" envDefault:"./var/outbox"`
}

// NewFromConfig returns the Postmark sender when tokens are configured and
// the development sender otherwise.
func NewFromConfig(cfg Config) (Sender, error) {
	if cfg.PostmarkServerToken != "" {
		return NewPostmarkClient(cfg)
	}
	return NewDevSender(cfg.DevOutputDir), nil
}
