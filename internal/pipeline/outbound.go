// Package pipeline wires the security engine into the gateway's two mail
// paths: outbound (scan, then send or hold) and inbound (sanitize, score,
// attach advisory, deliver).
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mailwarden/mailwarden/internal/email"
	"github.com/mailwarden/mailwarden/internal/hold"
	"github.com/mailwarden/mailwarden/internal/provider"
	"github.com/mailwarden/mailwarden/internal/security"
)

// BlockedError reports that an outbound message was held instead of sent.
// It is a first-class outcome, not a transport failure: the SMTP layer maps
// it to a permanent reply carrying the scan summary.
type BlockedError struct {
	ID      string
	Summary string
}

// Error implements the error interface.
func (e *BlockedError) Error() string {
	return fmt.Sprintf("message blocked and held (%s): %s", e.ID, e.Summary)
}

// SMTPStatus maps the block to a permanent SMTP failure.
func (e *BlockedError) SMTPStatus() (int, string) {
	return 550, fmt.Sprintf("Message held for owner approval (id %s). %s", e.ID, e.Summary)
}

// Outbound scans composed messages before transmission. Blocked messages go
// to the hold store; everything else is passed to the delivery provider.
type Outbound struct {
	scanner *security.Scanner
	store   *hold.Store
	deliver provider.Provider
}

// NewOutbound builds the outbound path.
func NewOutbound(scanner *security.Scanner, store *hold.Store, deliver provider.Provider) *Outbound {
	return &Outbound{scanner: scanner, store: store, deliver: deliver}
}

// Name identifies the handler in logs and server banners.
func (o *Outbound) Name() string {
	return "outbound/" + o.deliver.Name()
}

// Handle scans the message and either delivers it or holds it. A blocked
// message yields a *BlockedError after being persisted so the owner can
// approve or reject it later.
func (o *Outbound) Handle(ctx context.Context, msg *email.Email) error {
	res := o.scanner.ScanOutbound(msg)

	if res.Blocked {
		id, err := o.store.Put(msg, res.Summary)
		if err != nil {
			return fmt.Errorf("failed to hold blocked message: %w", err)
		}
		slog.Warn("outbound message blocked",
			"hold_id", id,
			"warnings", len(res.Warnings),
			"summary", res.Summary,
		)
		return &BlockedError{ID: id, Summary: res.Summary}
	}

	if res.HasMediumSeverity {
		for _, w := range res.Warnings {
			slog.Warn("outbound content warning",
				"rule", w.RuleID,
				"category", string(w.Category),
				"severity", w.Severity.String(),
			)
		}
	}

	return o.deliver.Send(ctx, msg)
}
