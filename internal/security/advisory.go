package security

import (
	"fmt"
	"strings"

	"github.com/mailwarden/mailwarden/internal/email"
	"github.com/mailwarden/mailwarden/internal/spam"
)

// AttachmentRisk grades an inbound attachment by filename alone.
type AttachmentRisk string

const (
	RiskMedium   AttachmentRisk = "MEDIUM"
	RiskHigh     AttachmentRisk = "HIGH"
	RiskCritical AttachmentRisk = "CRITICAL"
)

// AttachmentWarning flags a risky inbound attachment. Classification is
// purely filename-based; content is never inspected here.
type AttachmentWarning struct {
	Risk   AttachmentRisk
	Detail string
}

// LinkWarning is an advisory line derived from a scorer phishing rule.
type LinkWarning struct {
	Detail string
}

// Advisory is the compact security note delivered to the agent alongside
// sanitized inbound mail. It is informational only and never affects
// delivery.
type Advisory struct {
	AttachmentWarnings []AttachmentWarning
	LinkWarnings       []LinkWarning
	IsSpam             bool
	SpamScore          float64
	SpamCategory       string
	IsWarning          bool
	Summary            string
}

// Extension classes for attachment risk grading. All lookups are against
// lower-cased extension segments without the leading dot.
var (
	executableExts = map[string]bool{
		"exe": true, "bat": true, "cmd": true, "ps1": true, "sh": true,
		"msi": true, "scr": true, "com": true, "vbs": true, "wsf": true,
		"hta": true, "cpl": true, "jar": true, "app": true, "dmg": true,
		"run": true,
	}
	archiveExts = map[string]bool{
		"zip": true, "rar": true, "7z": true, "tar": true, "gz": true,
		"bz2": true, "xz": true, "cab": true, "iso": true,
	}
	// Cover extensions an attacker uses to disguise an executable,
	// e.g. invoice.pdf.exe.
	coverExts = map[string]bool{
		"pdf": true, "doc": true, "docx": true, "xls": true, "xlsx": true,
		"ppt": true, "pptx": true, "txt": true, "rtf": true, "odt": true,
		"csv": true, "jpg": true, "jpeg": true, "png": true, "gif": true,
		"bmp": true, "svg": true, "mp3": true, "mp4": true, "avi": true,
		"mov": true, "zip": true, "html": true, "htm": true,
	}
)

// linkAdvisories maps scorer rule IDs to advisory text. Rule IDs not listed
// here are silently ignored so the scorer catalog can grow independently.
var linkAdvisories = map[string]string{
	"ph_mismatched_display_url": "PHISHING: link text displays a different URL than its destination",
	"ph_homograph":              "PHISHING: link domain uses lookalike (homograph) characters",
	"ph_spoofed_sender":         "PHISHING: sender address appears spoofed",
	"ph_credential_harvest":     "PHISHING: message asks for credentials or account verification",
	"de_webhook_exfil":          "PHISHING: message references a webhook endpoint for replies or data",
	"pi_invisible_unicode":      "PHISHING: message contained invisible characters that can hide instructions",
}

// BuildAdvisory combines attachment-type risk grading with selected scorer
// signals. Either input may be nil/empty; the zero-value advisory has an
// empty summary.
func BuildAdvisory(spamRes *spam.Result, attachments []email.Attachment) Advisory {
	adv := Advisory{}

	for _, att := range attachments {
		if w := classifyAttachment(att.Filename); w != nil {
			adv.AttachmentWarnings = append(adv.AttachmentWarnings, *w)
		}
	}

	if spamRes != nil {
		adv.IsSpam = spamRes.IsSpam
		adv.IsWarning = spamRes.IsWarning
		adv.SpamScore = spamRes.Score
		adv.SpamCategory = spamRes.Category
		for _, m := range spamRes.Matches {
			if text, ok := linkAdvisories[m.RuleID]; ok {
				adv.LinkWarnings = append(adv.LinkWarnings, LinkWarning{Detail: text})
			}
		}
	}

	adv.Summary = buildSummary(adv)
	return adv
}

// classifyAttachment grades one filename. The double-extension check runs
// first: an executable-class final extension behind a non-executable cover
// extension is the classic disguise and outranks everything else. Files
// with no extension and known-safe types produce no warning.
func classifyAttachment(filename string) *AttachmentWarning {
	segs := strings.Split(strings.ToLower(filename), ".")
	if len(segs) < 2 {
		return nil
	}
	exts := segs[1:]
	last := exts[len(exts)-1]

	if executableExts[last] {
		if len(exts) >= 2 {
			cover := exts[len(exts)-2]
			if !executableExts[cover] && coverExts[cover] {
				return &AttachmentWarning{
					Risk: RiskCritical,
					Detail: fmt.Sprintf("%q is an executable (.%s) disguised with a .%s extension",
						filename, last, cover),
				}
			}
		}
		return &AttachmentWarning{
			Risk:   RiskHigh,
			Detail: fmt.Sprintf("%q is an executable file (.%s)", filename, last),
		}
	}

	if archiveExts[last] {
		return &AttachmentWarning{
			Risk:   RiskMedium,
			Detail: fmt.Sprintf("%q is an archive; contents cannot be verified", filename),
		}
	}

	if last == "html" || last == "htm" {
		return &AttachmentWarning{
			Risk:   RiskHigh,
			Detail: fmt.Sprintf("%q is an HTML file and may contain active content", filename),
		}
	}

	return nil
}

// buildSummary renders the compact advisory line. Empty when there are no
// warnings and no elevated spam signal.
func buildSummary(adv Advisory) string {
	var parts []string

	switch {
	case adv.IsSpam:
		line := fmt.Sprintf("[SPAM] score %.1f", adv.SpamScore)
		if adv.SpamCategory != "" {
			line += ", category " + adv.SpamCategory
		}
		parts = append(parts, line)
	case adv.IsWarning:
		parts = append(parts, fmt.Sprintf("[WARNING] suspicious signals, score %.1f", adv.SpamScore))
	}

	if n := len(adv.AttachmentWarnings); n > 0 {
		parts = append(parts, fmt.Sprintf("%d attachment warning(s)", n))
	}
	if n := len(adv.LinkWarnings); n > 0 {
		parts = append(parts, fmt.Sprintf("%d link/content warning(s)", n))
	}

	return strings.Join(parts, "; ")
}
