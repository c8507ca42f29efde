package security

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/mailwarden/mailwarden/internal/email"
)

// maxMatchLen is the longest matched substring reported verbatim in a
// warning; anything longer is truncated and marked with an ellipsis.
const maxMatchLen = 80

// Warning is a single rule match found in an outbound message.
type Warning struct {
	RuleID      string
	Category    Category
	Severity    Severity
	Match       string
	Description string
}

// ScanResult is the outbound scanner's verdict for one message.
// Blocked is true exactly when a HIGH severity warning exists; callers must
// treat Blocked as a hard stop and hold the message instead of sending it.
type ScanResult struct {
	Warnings          []Warning
	HasHighSeverity   bool
	HasMediumSeverity bool
	Blocked           bool
	Summary           string
}

// Scanner applies a rule catalog to outbound messages. It holds no mutable
// state: one Scanner may serve any number of goroutines.
type Scanner struct {
	catalog Catalog
	policy  ScanPolicy
}

// NewScanner builds a Scanner around the given catalog and policy.
func NewScanner(catalog Catalog, policy ScanPolicy) *Scanner {
	return &Scanner{catalog: catalog, policy: policy}
}

// ScanOutbound inspects a composed message before transmission.
//
// Agent-to-agent mail is exempt: when every recipient (to, cc, and bcc) is
// at exactly the local domain the scan is skipped and an empty result is
// returned. A single external recipient anywhere in the set means the whole
// message is scanned.
func (s *Scanner) ScanOutbound(msg *email.Email) ScanResult {
	if msg == nil {
		return ScanResult{}
	}

	rcpts := msg.Recipients()
	if len(rcpts) > 0 && s.allLocal(rcpts) {
		return ScanResult{}
	}

	var warnings []Warning

	// Subject, text body, and tag-stripped HTML body are scanned as one
	// buffer so secrets split across fields are still caught.
	buffer := msg.Subject + "\n" + msg.TextBody + "\n" + HTMLToText(msg.HtmlBody)
	warnings = append(warnings, s.scanText(buffer, "")...)

	for _, att := range msg.Attachments {
		warnings = append(warnings, s.scanAttachment(att)...)
	}

	return s.aggregate(warnings)
}

// scanText runs every catalog rule over text. attachment, when non-empty,
// is the filename appended to each warning description.
func (s *Scanner) scanText(text, attachment string) []Warning {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var warnings []Warning
	for _, rule := range s.catalog {
		for _, m := range rule.Match(text) {
			desc := rule.Description
			if attachment != "" {
				desc = fmt.Sprintf("%s (attachment: %s)", desc, attachment)
			}
			warnings = append(warnings, Warning{
				RuleID:      rule.ID,
				Category:    rule.Category,
				Severity:    rule.Severity,
				Match:       truncateMatch(m),
				Description: desc,
			})
		}
	}
	return warnings
}

// scanAttachment produces filename-based risk warnings and, for text-like
// payloads, re-applies the text catalog to the decoded content.
func (s *Scanner) scanAttachment(att email.Attachment) []Warning {
	var warnings []Warning

	ext := strings.ToLower(filepath.Ext(att.Filename))
	switch {
	case ext == "":
		// No extension, no filename warning.
	case sensitiveFileExts[ext]:
		warnings = append(warnings, Warning{
			RuleID:      "ob_sensitive_file",
			Category:    CategoryAttachment,
			Severity:    SeverityHigh,
			Match:       att.Filename,
			Description: fmt.Sprintf("Key or credential file attached (%s)", ext),
		})
	case dataFileExts[ext]:
		warnings = append(warnings, Warning{
			RuleID:      "ob_data_file",
			Category:    CategoryAttachment,
			Severity:    SeverityMedium,
			Match:       att.Filename,
			Description: fmt.Sprintf("Data or configuration file attached (%s)", ext),
		})
	}

	if s.policy.shouldScanContent(att) {
		warnings = append(warnings, s.scanText(string(att.Content), att.Filename)...)
	}

	return warnings
}

// allLocal reports whether every address is at exactly the local domain.
func (s *Scanner) allLocal(addrs []string) bool {
	local := strings.ToLower(s.policy.LocalDomain)
	if local == "" {
		local = "localhost"
	}
	for _, addr := range addrs {
		if domainOf(addr) != local {
			return false
		}
	}
	return true
}

// aggregate folds warnings into the block/allow verdict and summary.
func (s *Scanner) aggregate(warnings []Warning) ScanResult {
	res := ScanResult{Warnings: warnings}

	high, medium := 0, 0
	for _, w := range warnings {
		switch w.Severity {
		case SeverityHigh:
			high++
		case SeverityMedium:
			medium++
		}
	}

	res.HasHighSeverity = high > 0
	res.HasMediumSeverity = medium > 0
	res.Blocked = res.HasHighSeverity

	if len(warnings) == 0 {
		return res
	}

	var clauses []string
	if high > 0 {
		clauses = append(clauses, fmt.Sprintf("%d HIGH severity", high))
	}
	if medium > 0 {
		clauses = append(clauses, fmt.Sprintf("%d MEDIUM severity", medium))
	}

	summary := fmt.Sprintf("Outbound scan found %d issue(s): %s.",
		len(warnings), strings.Join(clauses, ", "))
	if res.Blocked {
		summary += " Message BLOCKED - NOT sent; held for owner approval."
	}
	res.Summary = summary

	return res
}

// truncateMatch caps a matched substring at maxMatchLen characters,
// appending an ellipsis marker when truncated. Truncation counts runes, not
// bytes, so multibyte matches are never split mid-codepoint.
func truncateMatch(m string) string {
	if utf8.RuneCountInString(m) <= maxMatchLen {
		return m
	}
	runes := []rune(m)
	return string(runes[:maxMatchLen]) + "..."
}
