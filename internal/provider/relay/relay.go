// Package relay implements a Provider that forwards mail to an upstream
// SMTP server (the MTA actually responsible for external delivery).
package relay

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/mailwarden/mailwarden/internal/email"
)

// Config holds upstream relay settings.
type Config struct {
	// Addr is the upstream server in host:port form.
	Addr string

	// Username and Password enable PLAIN auth when both are set.
	Username string
	Password string

	// Sender is the envelope sender used for relayed mail.
	Sender string
}

// Provider relays messages to an upstream MTA over SMTP.
type Provider struct {
	cfg  Config
	send sendFunc
}

// sendFunc matches net/smtp.SendMail, injectable for tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// New creates a relay Provider. It validates the configuration but does not
// dial; connection failures surface per message from Send.
func New(cfg Config) (*Provider, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("relay address is required")
	}
	if !strings.Contains(cfg.Addr, ":") {
		return nil, fmt.Errorf("relay address %q must be host:port", cfg.Addr)
	}
	if cfg.Sender == "" {
		return nil, fmt.Errorf("relay sender is required")
	}
	return &Provider{cfg: cfg, send: smtp.SendMail}, nil
}

// NewWithSendFunc creates a relay Provider with a custom transport, used
// for testing.
func NewWithSendFunc(cfg Config, send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) *Provider {
	return &Provider{cfg: cfg, send: send}
}

// Send relays the message upstream. The original wire form is forwarded
// when available so upstream signatures stay intact; otherwise a MIME
// message is built from the parsed fields.
func (p *Provider) Send(ctx context.Context, msg *email.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw := msg.Raw
	if len(raw) == 0 {
		built, err := email.BuildMIME(p.cfg.Sender, msg)
		if err != nil {
			return fmt.Errorf("failed to build relay message: %w", err)
		}
		raw = built
	}

	var auth smtp.Auth
	if p.cfg.Username != "" && p.cfg.Password != "" {
		host := p.cfg.Addr[:strings.LastIndexByte(p.cfg.Addr, ':')]
		auth = smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, host)
	}

	if err := p.send(p.cfg.Addr, auth, p.cfg.Sender, msg.Recipients(), raw); err != nil {
		return fmt.Errorf("relay to %s failed: %w", p.cfg.Addr, err)
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "relay"
}
