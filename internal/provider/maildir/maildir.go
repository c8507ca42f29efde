// Package maildir implements a Provider that delivers mail into a local
// maildir-style directory, the agent-facing mailbox for inbound messages.
package maildir

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mailwarden/mailwarden/internal/email"
)

// Provider writes each message as one file under <dir>/new, in the maildir
// tradition: the file is created in tmp and renamed into new so readers
// never observe a partial message.
type Provider struct {
	dir string
}

// New creates a maildir Provider rooted at dir, creating the maildir
// subdirectories if needed.
func New(dir string) (*Provider, error) {
	for _, sub := range []string{"tmp", "new", "cur"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create maildir: %w", err)
		}
	}
	return &Provider{dir: dir}, nil
}

// Send writes the message into the maildir.
func (p *Provider) Send(ctx context.Context, msg *email.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := email.BuildMIME(msg.From, msg)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	name := fmt.Sprintf("%d.%s.mailwarden", time.Now().Unix(), uuid.NewString())
	tmpPath := filepath.Join(p.dir, "tmp", name)
	newPath := filepath.Join(p.dir, "new", name)

	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := os.Rename(tmpPath, newPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to deliver message: %w", err)
	}

	slog.Debug("delivered to maildir", "file", newPath, "subject", msg.Subject)
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "maildir"
}
