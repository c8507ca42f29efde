package security

import (
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/mailwarden/mailwarden/internal/email"
)

// HTMLToText converts HTML into a plain-text scan buffer. Script and style
// blocks are dropped entirely, all other tags are removed, and entities are
// decoded. Text nodes are concatenated without inserting separators so a
// value split across adjacent tags still forms one scannable token.
func HTMLToText(src string) string {
	if src == "" {
		return ""
	}

	tok := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skipUntil := "" // inside a <script> or <style> element

	for {
		switch tok.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := tok.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skipUntil = tag
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			if string(name) == skipUntil {
				skipUntil = ""
			}
		case html.TextToken:
			if skipUntil == "" {
				b.Write(tok.Text())
			}
		}
	}
}

// ScanPolicy carries the caller-configurable knobs of the outbound scanner:
// the trusted local domain and the allowlist deciding which attachment
// payloads count as text-like and get content-scanned. Unknown content
// types are never scanned.
type ScanPolicy struct {
	// LocalDomain is the internal-trust mail domain. Scanning is skipped
	// only when every recipient is at exactly this domain.
	LocalDomain string

	// ScannableTypes holds content types eligible for content scanning.
	// An entry ending in "/" matches as a prefix (e.g. "text/").
	ScannableTypes []string

	// ScannableExtensions is the fallback used when an attachment
	// declares no content type. Entries include the leading dot.
	ScannableExtensions []string
}

// DefaultScanPolicy returns the conservative built-in policy.
func DefaultScanPolicy() ScanPolicy {
	return ScanPolicy{
		LocalDomain: "localhost",
		ScannableTypes: []string{
			"text/",
			"application/json",
			"application/xml",
			"application/x-sh",
			"application/x-shellscript",
			"application/x-yaml",
			"application/yaml",
			"application/csv",
		},
		ScannableExtensions: []string{
			".txt", ".md", ".log", ".json", ".csv", ".tsv", ".xml",
			".yml", ".yaml", ".sh", ".env", ".conf", ".config",
			".ini", ".sql",
		},
	}
}

// shouldScanContent reports whether an attachment's payload is text-like
// under the policy. The declared content type wins; the filename extension
// is consulted only when no type is declared.
func (p ScanPolicy) shouldScanContent(att email.Attachment) bool {
	if len(att.Content) == 0 {
		return false
	}

	if ct := strings.ToLower(strings.TrimSpace(att.ContentType)); ct != "" {
		// Strip any parameters ("text/plain; charset=utf-8").
		if i := strings.IndexByte(ct, ';'); i >= 0 {
			ct = strings.TrimSpace(ct[:i])
		}
		for _, allowed := range p.ScannableTypes {
			if strings.HasSuffix(allowed, "/") {
				if strings.HasPrefix(ct, allowed) {
					return true
				}
			} else if ct == allowed {
				return true
			}
		}
		return false
	}

	ext := strings.ToLower(filepath.Ext(att.Filename))
	for _, allowed := range p.ScannableExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// domainOf returns the lower-cased domain of an email address, or empty
// string when the address has no @.
func domainOf(addr string) string {
	at := strings.LastIndexByte(addr, '@')
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	domain := addr[at+1:]
	// Tolerate angle-bracket remnants from loose envelope parsing.
	domain = strings.TrimRight(domain, ">")
	return strings.ToLower(domain)
}
