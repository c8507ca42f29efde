package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mailwarden/mailwarden/internal/email"
	"github.com/mailwarden/mailwarden/internal/provider"
	"github.com/mailwarden/mailwarden/internal/security"
	"github.com/mailwarden/mailwarden/internal/spam"
)

// Advisory/annotation headers attached to inbound mail before delivery.
const (
	HeaderAdvisory  = "X-Mailwarden-Advisory"
	HeaderSanitized = "X-Mailwarden-Sanitized"
)

// InboundResult carries everything the inbound pipeline derived from one
// message: the sanitization log, the scorer verdict, and the advisory.
type InboundResult struct {
	Sanitization security.SanitizeResult
	Spam         spam.Result
	Advisory     security.Advisory
}

// Inbound processes mail fetched from the outside world before it reaches
// the agent mailbox. It never rejects: sanitization is always applied and
// the advisory is informational.
type Inbound struct {
	scorer  *spam.Scorer
	deliver provider.Provider
}

// NewInbound builds the inbound path.
func NewInbound(scorer *spam.Scorer, deliver provider.Provider) *Inbound {
	return &Inbound{scorer: scorer, deliver: deliver}
}

// Name identifies the handler in logs and server banners.
func (i *Inbound) Name() string {
	return "inbound/" + i.deliver.Name()
}

// Process scores, sanitizes, and annotates the message in place, returning
// the derived results. Scoring runs against the original content so signals
// the sanitizer strips (invisible unicode in particular) are still counted.
func (i *Inbound) Process(msg *email.Email) InboundResult {
	spamRes := i.scorer.Score(msg)

	san := security.Sanitize(msg.TextBody, msg.HtmlBody)
	msg.TextBody = san.Text
	msg.HtmlBody = san.HTML

	adv := security.BuildAdvisory(&spamRes, msg.Attachments)

	if adv.Summary != "" {
		msg.SetHeader(HeaderAdvisory, renderAdvisory(adv))
	}
	if san.WasModified {
		msg.SetHeader(HeaderSanitized, detectionTypes(san.Detections))
	}

	return InboundResult{Sanitization: san, Spam: spamRes, Advisory: adv}
}

// Handle processes the message and delivers it to the agent mailbox.
func (i *Inbound) Handle(ctx context.Context, msg *email.Email) error {
	res := i.Process(msg)

	if res.Sanitization.WasModified || res.Advisory.Summary != "" {
		slog.Info("inbound message annotated",
			"from", msg.From,
			"sanitized", res.Sanitization.WasModified,
			"spam_score", res.Spam.Score,
			"advisory", res.Advisory.Summary,
		)
	}

	return i.deliver.Send(ctx, msg)
}

// renderAdvisory flattens the advisory into a single header value: the
// summary first, then each warning detail.
func renderAdvisory(adv security.Advisory) string {
	parts := []string{adv.Summary}
	for _, w := range adv.AttachmentWarnings {
		parts = append(parts, string(w.Risk)+": "+w.Detail)
	}
	for _, w := range adv.LinkWarnings {
		parts = append(parts, w.Detail)
	}
	return strings.Join(parts, " | ")
}

// detectionTypes joins detection type tags for the sanitized header.
func detectionTypes(ds []security.Detection) string {
	types := make([]string, 0, len(ds))
	for _, d := range ds {
		types = append(types, d.Type)
	}
	return strings.Join(types, ", ")
}
