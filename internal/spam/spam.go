// Package spam provides the spam/phishing scoring contract the gateway
// consumes and a deterministic rule-based scorer implementing it. The
// advisory builder reads scorer output by rule ID; it never depends on how
// the score was produced.
package spam

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"github.com/mailwarden/mailwarden/internal/email"
)

// Match is a single scorer rule hit.
type Match struct {
	RuleID string
	Detail string
}

// Result is the scorer verdict attached to inbound mail.
type Result struct {
	Score     float64
	Category  string
	IsSpam    bool
	IsWarning bool
	Matches   []Match
}

// Score thresholds.
const (
	spamThreshold    = 5.0
	warningThreshold = 2.0
)

// rule is one weighted heuristic check.
type rule struct {
	id     string
	weight float64
	check  func(msg *email.Email) (bool, string)
}

// Scorer evaluates inbound messages against a fixed heuristic rule set.
// It is stateless and safe for concurrent use.
type Scorer struct {
	rules []rule
}

// NewScorer returns a Scorer with the built-in rule set.
func NewScorer() *Scorer {
	return &Scorer{rules: builtinRules()}
}

// Score runs every rule against the message. Rules are independent; the
// score is the sum of the weights of all matching rules.
func (s *Scorer) Score(msg *email.Email) Result {
	res := Result{}
	if msg == nil {
		return res
	}

	phishing := false
	for _, r := range s.rules {
		hit, detail := r.check(msg)
		if !hit {
			continue
		}
		res.Score += r.weight
		res.Matches = append(res.Matches, Match{RuleID: r.id, Detail: detail})
		if strings.HasPrefix(r.id, "ph_") {
			phishing = true
		}
	}

	res.IsSpam = res.Score >= spamThreshold
	res.IsWarning = res.Score >= warningThreshold
	switch {
	case phishing:
		res.Category = "phishing"
	case len(res.Matches) > 0:
		res.Category = "suspicious"
	}
	return res
}

var (
	displayURLAnchorRe = regexp.MustCompile(`(?is)<a\b[^>]*href\s*=\s*["'](https?://[^"'\s]+)["'][^>]*>\s*(https?://[^<\s]+)`)
	urlRe              = regexp.MustCompile(`https?://[^\s"'<>]+`)
	credentialAskRe    = regexp.MustCompile(`(?i)\b(?:verify\s+your\s+(?:account|password|identity)|confirm\s+your\s+(?:password|account)|re-?enter\s+your\s+(?:password|credentials)|log\s*in\s+to\s+(?:verify|confirm|restore)|account\s+(?:has\s+been\s+)?suspended)\b`)
	webhookURLRe       = regexp.MustCompile(`https://hooks\.slack\.com/services/\S+|https://discord(?:app)?\.com/api/webhooks/\S+`)
	urgencyRe          = regexp.MustCompile(`(?i)\b(?:act\s+now|urgent(?:ly)?|immediately|within\s+24\s+hours|final\s+(?:notice|warning))\b`)
)

func builtinRules() []rule {
	return []rule{
		{"ph_mismatched_display_url", 3.0, checkMismatchedDisplayURL},
		{"ph_homograph", 3.0, checkHomograph},
		{"ph_spoofed_sender", 3.0, checkSpoofedSender},
		{"ph_credential_harvest", 2.5, checkCredentialHarvest},
		{"de_webhook_exfil", 2.0, checkWebhookExfil},
		{"pi_invisible_unicode", 2.0, checkInvisibleUnicode},
		{"sp_urgency", 1.0, checkUrgency},
	}
}

// checkMismatchedDisplayURL flags anchors whose visible text is a URL on a
// different host than the actual destination.
func checkMismatchedDisplayURL(msg *email.Email) (bool, string) {
	for _, m := range displayURLAnchorRe.FindAllStringSubmatch(msg.HtmlBody, -1) {
		dest := hostOf(m[1])
		shown := hostOf(m[2])
		if dest != "" && shown != "" && dest != shown {
			return true, "link text shows " + shown + " but points to " + dest
		}
	}
	return false, ""
}

// checkHomograph flags URLs whose host contains non-ASCII codepoints or
// punycode, the raw material of lookalike-domain attacks.
func checkHomograph(msg *email.Email) (bool, string) {
	for _, raw := range urlRe.FindAllString(msg.TextBody+"\n"+msg.HtmlBody, -1) {
		host := hostOf(raw)
		if host == "" {
			continue
		}
		if strings.Contains(host, "xn--") {
			return true, "punycode host " + host
		}
		for _, r := range host {
			if r > 0x7F {
				return true, "non-ASCII host " + host
			}
		}
	}
	return false, ""
}

// checkSpoofedSender flags a From header whose display name contains an
// address at a different domain than the actual sender address.
func checkSpoofedSender(msg *email.Email) (bool, string) {
	addr, err := mail.ParseAddress(msg.From)
	if err != nil || addr.Name == "" {
		return false, ""
	}
	shownAt := strings.LastIndexByte(addr.Name, '@')
	if shownAt < 0 {
		return false, ""
	}
	rest := strings.Fields(addr.Name[shownAt+1:])
	if len(rest) == 0 {
		return false, ""
	}
	shownDomain := strings.ToLower(strings.TrimRight(rest[0], ">\"'"))
	realAt := strings.LastIndexByte(addr.Address, '@')
	if realAt < 0 {
		return false, ""
	}
	realDomain := strings.ToLower(addr.Address[realAt+1:])
	if shownDomain != "" && shownDomain != realDomain {
		return true, "display name claims " + shownDomain + ", actual sender at " + realDomain
	}
	return false, ""
}

func checkCredentialHarvest(msg *email.Email) (bool, string) {
	buf := msg.Subject + "\n" + msg.TextBody + "\n" + msg.HtmlBody
	if m := credentialAskRe.FindString(buf); m != "" {
		return true, m
	}
	return false, ""
}

func checkWebhookExfil(msg *email.Email) (bool, string) {
	buf := msg.TextBody + "\n" + msg.HtmlBody
	if m := webhookURLRe.FindString(buf); m != "" {
		return true, "webhook endpoint in message body"
	}
	return false, ""
}

// checkInvisibleUnicode runs against the original (pre-sanitization)
// channels: the gateway scores before sanitizing so this signal survives.
func checkInvisibleUnicode(msg *email.Email) (bool, string) {
	for _, r := range msg.TextBody + msg.HtmlBody {
		switch {
		case r >= 0xE0001 && r <= 0xE007F,
			r == 0x200B, r == 0x200C, r == 0x200D, r == 0x2060, r == 0xFEFF,
			r >= 0x202A && r <= 0x202E:
			return true, "invisible unicode characters present"
		}
	}
	return false, ""
}

func checkUrgency(msg *email.Email) (bool, string) {
	if m := urgencyRe.FindString(msg.Subject + "\n" + msg.TextBody); m != "" {
		return true, m
	}
	return false, ""
}

// hostOf extracts the lower-cased host of a URL, or empty string.
func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimRight(raw, ".,;)"))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
