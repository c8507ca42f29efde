// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"

	"github.com/mailwarden/mailwarden/internal/email"
)

// Provider is the interface that email delivery backends must implement.
// Each provider handles the actual sending of parsed email messages to its
// target (AWS SES, an upstream SMTP relay, a local maildir, stdout).
type Provider interface {
	// Send delivers an email message through this provider.
	// It returns an error if the delivery fails.
	Send(ctx context.Context, msg *email.Email) error

	// Name returns the human-readable name of this provider.
	Name() string
}
