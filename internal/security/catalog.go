// Package security implements the email content security pipeline: an
// outbound DLP scanner, an inbound adversarial-content sanitizer, and an
// inbound security advisory builder. All entry points are pure functions of
// their input and safe for concurrent use.
package security

import (
	"regexp"
	"strings"
)

// Category classifies what kind of sensitive data a rule detects.
type Category string

const (
	CategoryPII        Category = "pii"
	CategoryCredential Category = "credential"
	CategorySystem     Category = "system"
	CategoryOwner      Category = "owner_privacy"
	CategoryFinancial  Category = "financial"
	CategoryAttachment Category = "attachment"
)

// Severity is the weight a rule match carries in the block/allow verdict.
type Severity uint8

const (
	SeverityMedium Severity = iota
	SeverityHigh
)

// String returns the canonical upper-case name used in summaries.
func (s Severity) String() string {
	if s == SeverityHigh {
		return "HIGH"
	}
	return "MEDIUM"
}

// Rule is a single immutable detection rule. Rules are independent: every
// rule in a catalog runs against the full scan buffer and contributes its
// own warnings, so evaluation order never affects the result set.
type Rule struct {
	ID          string
	Category    Category
	Severity    Severity
	Description string

	match func(text string) []string
}

// Match returns the exact substrings of text that trigger this rule,
// or nil when the rule does not apply.
func (r Rule) Match(text string) []string {
	if r.match == nil {
		return nil
	}
	return r.match(text)
}

// Catalog is an ordered, immutable set of rules. Construct one with
// DefaultCatalog at process start and pass it by reference; tests may
// substitute a smaller catalog.
type Catalog []Rule

// regexRule builds a rule whose matches are all occurrences of pattern.
func regexRule(id string, cat Category, sev Severity, desc, pattern string) Rule {
	re := regexp.MustCompile(pattern)
	return Rule{
		ID:          id,
		Category:    cat,
		Severity:    sev,
		Description: desc,
		match: func(text string) []string {
			return re.FindAllString(text, -1)
		},
	}
}

// pairRule builds a co-occurrence rule: primary's matches are reported, but
// only when context also matches somewhere in the same scan buffer.
func pairRule(id string, cat Category, sev Severity, desc, primary, context string) Rule {
	pri := regexp.MustCompile(primary)
	ctx := regexp.MustCompile(context)
	return Rule{
		ID:          id,
		Category:    cat,
		Severity:    sev,
		Description: desc,
		match: func(text string) []string {
			if ctx.FindStringIndex(text) == nil {
				return nil
			}
			return pri.FindAllString(text, -1)
		},
	}
}

// envAssignLine matches a single shell-style environment assignment.
var envAssignLine = regexp.MustCompile(`^\s*(?:export\s+)?[A-Z][A-Z0-9_]*=\S.*$`)

// envBlockRule reports runs of minLines or more consecutive KEY=value lines.
// A run shorter than minLines is ignored so that an isolated pair of
// assignments in prose does not count as a leaked environment file.
func envBlockRule(id string, sev Severity, desc string, minLines int) Rule {
	return Rule{
		ID:          id,
		Category:    CategoryCredential,
		Severity:    sev,
		Description: desc,
		match: func(text string) []string {
			var found []string
			var run []string
			flush := func() {
				if len(run) >= minLines {
					found = append(found, strings.Join(run, "\n"))
				}
				run = nil
			}
			for _, line := range strings.Split(text, "\n") {
				if envAssignLine.MatchString(strings.TrimRight(line, "\r")) {
					run = append(run, strings.TrimSpace(strings.TrimRight(line, "\r")))
					continue
				}
				flush()
			}
			flush()
			return found
		},
	}
}

// DefaultCatalog returns the built-in outbound detection catalog. The
// returned slice is freshly allocated; rules themselves are immutable.
func DefaultCatalog() Catalog {
	return Catalog{
		// PII, exact-format identifiers.
		regexRule("ob_ssn", CategoryPII, SeverityHigh,
			"US Social Security Number",
			`\b\d{3}-\d{2}-\d{4}\b`),
		regexRule("ob_ssn_obfuscated", CategoryPII, SeverityHigh,
			"US Social Security Number (obfuscated separators, keyword context)",
			`(?i)\b(?:ssn|social\s+security(?:\s+(?:number|no\.?|#))?)\s*[:#]?\s*(?:\d{3}[. ]\d{2}[. ]\d{4}|\d{9})\b`),
		regexRule("ob_credit_card", CategoryPII, SeverityHigh,
			"Payment card number",
			`\b(?:4\d{3}|5[1-5]\d{2}|3[47]\d{2}|6011|65\d{2})[ -]?\d{4}[ -]?\d{4}[ -]?\d{3,4}\b`),
		regexRule("ob_passport", CategoryPII, SeverityHigh,
			"Passport number",
			`(?i)\bpassport\s*(?:no\.?|number|#)?\s*[:#]?\s*(?:[A-Z]\d{7,8}|\d{9})\b`),
		regexRule("ob_tax_id", CategoryPII, SeverityHigh,
			"Tax identification number (EIN)",
			`(?i)\b(?:ein|tax\s*id(?:entification)?(?:\s*number)?)\s*[:#]?\s*\d{2}-?\d{7}\b`),
		regexRule("ob_itin", CategoryPII, SeverityHigh,
			"Individual Taxpayer Identification Number",
			`\b9\d{2}-[5-9]\d-\d{4}\b`),
		regexRule("ob_medicare", CategoryPII, SeverityHigh,
			"Medicare beneficiary identifier",
			`\b\d[AC-HJKMNP-RT-Y][AC-HJKMNP-RT-Y0-9]\d[AC-HJKMNP-RT-Y][AC-HJKMNP-RT-Y0-9]\d[AC-HJKMNP-RT-Y]{2}\d{2}\b`),
		regexRule("ob_immigration", CategoryPII, SeverityHigh,
			"Immigration identifier (A-number/USCIS)",
			`(?i)\b(?:alien\s+(?:registration\s+)?number|uscis\s*(?:number|no\.?|#)?|a-number)\s*[:#]?\s*A?\d{7,9}\b`),
		regexRule("ob_drivers_license", CategoryPII, SeverityHigh,
			"Driver's license number",
			`(?i)\bdriver'?s?\s+licen[sc]e\s*(?:no\.?|number|#)?\s*[:#]?\s*[A-Z]?\d{4,12}[A-Z]?\b`),
		regexRule("ob_bank_routing", CategoryPII, SeverityHigh,
			"Bank routing number",
			`(?i)\b(?:routing|aba)\s*(?:number|no\.?|#)?\s*[:#]?\s*[0-3]\d{8}\b`),
		regexRule("ob_iban", CategoryPII, SeverityHigh,
			"International Bank Account Number",
			`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`),

		// PII, contact and context-dependent formats.
		regexRule("ob_phone", CategoryPII, SeverityMedium,
			"US phone number",
			`\(\d{3}\)\s?\d{3}[-.]\d{4}|\b\d{3}[-.]\d{3}[-.]\d{4}\b`),
		regexRule("ob_dob", CategoryPII, SeverityMedium,
			"Date of birth",
			`(?i)\b(?:date\s+of\s+birth|dob|birth\s*date|born(?:\s+on)?)\s*[:#]?\s*(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4})`),
		regexRule("ob_pin", CategoryPII, SeverityMedium,
			"PIN code",
			`(?i)\bpin\s*(?:code|number)?\s*(?:is|[:=])\s*\d{4,6}\b`),

		// Credentials and secrets.
		regexRule("ob_api_key", CategoryCredential, SeverityHigh,
			"API key",
			`\b(?:sk|pk)[-_](?:ant|live|test|proj)?[-_]?[A-Za-z0-9_-]{16,}|(?i)\b(?:api|access)[-_]?key\s*[:=]\s*["']?[A-Za-z0-9_\-./+=]{16,}`),
		regexRule("ob_aws_key", CategoryCredential, SeverityHigh,
			"AWS access key",
			`\b(?:AKIA|ASIA|ABIA|ACCA)[0-9A-Z]{16}\b|\bAWS_ACCESS_KEY_ID\s*=\s*\S+`),
		regexRule("ob_stripe_key", CategoryCredential, SeverityHigh,
			"Stripe API key",
			`\b[rs]k_(?:live|test)_[A-Za-z0-9]{10,}\b|\bpk_(?:live|test)_[A-Za-z0-9]{10,}\b`),
		regexRule("ob_github_token", CategoryCredential, SeverityHigh,
			"GitHub token",
			`\bgh[pousr]_[A-Za-z0-9]{20,}\b|\bgithub_pat_[A-Za-z0-9_]{20,}\b`),
		regexRule("ob_jwt", CategoryCredential, SeverityHigh,
			"JSON Web Token",
			`\beyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`),
		regexRule("ob_bearer_token", CategoryCredential, SeverityHigh,
			"Bearer token",
			`(?i)\bbearer\s+[A-Za-z0-9_\-./+=]{16,}`),
		regexRule("ob_oauth_token", CategoryCredential, SeverityHigh,
			"OAuth token",
			`\bya29\.[A-Za-z0-9_-]{20,}|(?i)\b(?:oauth|refresh)[-_]?token\s*[:=]\s*["']?[A-Za-z0-9_\-./+=]{16,}`),
		regexRule("ob_private_key", CategoryCredential, SeverityHigh,
			"Private key material",
			`-----BEGIN [A-Z ]*PRIVATE KEY(?: BLOCK)?-----`),
		regexRule("ob_password_value", CategoryCredential, SeverityHigh,
			"Password value",
			`(?i)\b(?:p[a4@]ssw[o0]rd|p[a4@]ss|passwd|pwd)\s*(?:is|[:=])\s*["']?\S{4,}`),
		pairRule("ob_credential_pair", CategoryCredential, SeverityHigh,
			"Username and password pair",
			`(?i)\b(?:pass(?:word)?|pwd)\s*[:=]\s*\S+`,
			`(?i)\b(?:user(?:name)?|login|email)\s*[:=]\s*\S+`),
		regexRule("ob_vpn_creds", CategoryCredential, SeverityHigh,
			"VPN credentials",
			`(?i)\bvpn\b[^\n]{0,60}?\b(?:credentials?|pass(?:word)?|login|username|key)\b`),
		regexRule("ob_webhook_url", CategoryCredential, SeverityHigh,
			"Webhook URL",
			`https://hooks\.slack\.com/services/[A-Za-z0-9/_-]+|https://discord(?:app)?\.com/api/webhooks/\d+/[A-Za-z0-9_-]+`),
		regexRule("ob_connection_string", CategoryCredential, SeverityHigh,
			"Database connection string with credentials",
			`\b(?:mongodb(?:\+srv)?|postgres(?:ql)?|mysql|rediss?|amqps?)://[^\s"'<>@]+@[^\s"'<>]+`),
		regexRule("ob_seed_phrase", CategoryCredential, SeverityHigh,
			"Wallet seed phrase",
			`(?i)\b(?:seed|recovery|mnemonic)\s+(?:phrase|words?)\s*[:#]?\s*(?:[a-z]+\s+){11,23}[a-z]+`),
		regexRule("ob_2fa_codes", CategoryCredential, SeverityHigh,
			"Two-factor backup codes",
			`(?i)\b(?:2fa|two[-\s]factor|backup|recovery)\s+codes?\s*[:#]?\s*(?:\d{6,8}[\s,;]+)+\d{6,8}\b`),
		envBlockRule("ob_env_block", SeverityHigh,
			"Environment file contents", 3),

		// System internals.
		regexRule("ob_private_ip", CategorySystem, SeverityMedium,
			"Private network address",
			`\b(?:10\.\d{1,3}\.\d{1,3}\.\d{1,3}|192\.168\.\d{1,3}\.\d{1,3}|172\.(?:1[6-9]|2\d|3[01])\.\d{1,3}\.\d{1,3})\b`),
		regexRule("ob_file_path", CategorySystem, SeverityMedium,
			"Local filesystem path",
			`(?:/Users|/home|/etc)/[A-Za-z0-9._~/-]+`),
		regexRule("ob_env_variable", CategorySystem, SeverityMedium,
			"Environment variable assignment",
			`\b[A-Z][A-Z0-9_]*_(?:KEY|SECRET|TOKEN|PASSWORD)\s*=\s*\S+`),

		// Owner privacy.
		regexRule("ob_owner_info", CategoryOwner, SeverityMedium,
			"Reference to owner identity",
			`(?i)\b(?:my\s+)?owner'?s\s+(?:name|email|phone|address|identity)\b`),
		regexRule("ob_personal_reveal", CategoryOwner, SeverityHigh,
			"Reveals the operating human",
			`(?i)\b(?:my\s+human\s+is|my\s+operator(?:\s+is)?|(?:the\s+)?person\s+who\s+owns\s+me|my\s+owner\s+is)\b`),

		// Financial and crypto.
		regexRule("ob_swift", CategoryFinancial, SeverityHigh,
			"SWIFT/BIC code",
			`(?i)\bswift\s*(?:code|bic)?\s*[:#]?\s*[A-Z]{6}[A-Z0-9]{2}(?:[A-Z0-9]{3})?\b`),
		regexRule("ob_crypto_wallet", CategoryFinancial, SeverityHigh,
			"Cryptocurrency wallet address",
			`\b(?:bc1[a-z0-9]{25,59}|0x[a-fA-F0-9]{40})\b`),
		pairRule("ob_wire_transfer", CategoryFinancial, SeverityHigh,
			"Wire transfer instructions",
			`(?i)\bwire\s+(?:transfer|instructions?)\b`,
			`(?i)\b(?:account|routing|iban|swift)\b`),
		regexRule("ob_security_qa", CategoryFinancial, SeverityHigh,
			"Security question or answer",
			`(?i)\b(?:security\s+(?:question|answer)s?|mother'?s\s+maiden\s+name|(?:my\s+)?first\s+pet)\b`),
	}
}

// Filename extension sets for content-independent attachment risk rules.
// Lookups are case-insensitive; keys include the leading dot.
var (
	sensitiveFileExts = map[string]bool{
		".pem": true, ".key": true, ".p12": true, ".pfx": true,
		".env": true, ".credentials": true, ".keystore": true,
		".jks": true, ".p8": true,
	}
	dataFileExts = map[string]bool{
		".db": true, ".sqlite": true, ".sqlite3": true, ".sql": true,
		".csv": true, ".tsv": true, ".json": true, ".yml": true,
		".yaml": true, ".conf": true, ".config": true, ".ini": true,
	}
)
