package security

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Detection records one sanitization pass that changed content. The type is
// suffixed _text or _html for passes that run on both channels; HTML-only
// passes use bare names (hidden_css, script_tags, data_uri,
// suspicious_comments).
type Detection struct {
	Type string
}

// SanitizeResult holds the cleaned channels plus the detection log.
// Sanitization never blocks: the cleaned content is always usable.
type SanitizeResult struct {
	Text        string
	HTML        string
	WasModified bool
	Detections  []Detection
}

// Sanitize strips adversarial and invisible content from inbound text and
// HTML. Both channels default to empty strings; the function never fails.
func Sanitize(text, htmlSrc string) SanitizeResult {
	res := SanitizeResult{}

	cleanText := sanitizeChannel(text, "text", false, &res)
	cleanHTML := sanitizeChannel(htmlSrc, "html", true, &res)

	res.Text = cleanText
	res.HTML = cleanHTML
	res.WasModified = cleanText != text || cleanHTML != htmlSrc
	return res
}

// runePass describes an invisible-codepoint stripping pass shared by both
// channels.
type runePass struct {
	name string
	drop func(r rune) bool
}

var runePasses = []runePass{
	// Unicode tag characters: an invisible steganographic channel capable
	// of smuggling whole instructions. Outside the BMP, so rune-based
	// stripping is required.
	{"unicode_tags", func(r rune) bool {
		return r >= 0xE0001 && r <= 0xE007F
	}},
	{"zero_width", func(r rune) bool {
		switch r {
		case 0x200B, 0x200C, 0x200D, 0x2060, 0xFEFF:
			return true
		}
		return false
	}},
	{"bidi_controls", func(r rune) bool {
		if r >= 0x202A && r <= 0x202E {
			return true
		}
		if r >= 0x2066 && r <= 0x2069 {
			return true
		}
		return r == 0x200E || r == 0x200F || r == 0x061C
	}},
	{"soft_hyphen", func(r rune) bool {
		return r == 0x00AD
	}},
}

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleBlockRe  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	// Attribute values may be double-quoted, single-quoted, or bare; the
	// attacker chooses the quoting, so all three forms are covered.
	dataURIAttrRe = regexp.MustCompile(`(?i)\b(src|href|background|action)\s*=\s*(?:"data:[^"]*"|'data:[^']*'|data:[^\s>]*)`)
	htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	injectionRe   = regexp.MustCompile(`(?i)ignore\s+(?:all\s+|any\s+)?(?:previous|prior|above)|instructions?|system\s+prompt|you\s+are\s+an?\s|assistant|disregard|override`)
	newlineRunRe  = regexp.MustCompile(`(?:\r?\n){3,}`)

	hiddenStyleRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)display\s*:\s*none`),
		regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
		regexp.MustCompile(`(?i)font-size\s*:\s*0(?:px|pt|em|rem|%)?\s*(?:;|$)`),
	}
)

// sanitizeChannel applies every pass for one channel, recording a detection
// each time a pass changes the content.
func sanitizeChannel(in, channel string, isHTML bool, res *SanitizeResult) string {
	out := in

	for _, pass := range runePasses {
		stripped := stripRunes(out, pass.drop)
		if stripped != out {
			res.Detections = append(res.Detections, Detection{Type: pass.name + "_" + channel})
			out = stripped
		}
	}

	if isHTML {
		if cleaned := removeHiddenElements(out); cleaned != out {
			res.Detections = append(res.Detections, Detection{Type: "hidden_css"})
			out = cleaned
		}

		if cleaned := styleBlockRe.ReplaceAllString(scriptBlockRe.ReplaceAllString(out, ""), ""); cleaned != out {
			res.Detections = append(res.Detections, Detection{Type: "script_tags"})
			out = cleaned
		}

		if cleaned := dataURIAttrRe.ReplaceAllString(out, `${1}=""`); cleaned != out {
			res.Detections = append(res.Detections, Detection{Type: "data_uri"})
			out = cleaned
		}

		if cleaned := removeInjectionComments(out); cleaned != out {
			res.Detections = append(res.Detections, Detection{Type: "suspicious_comments"})
			out = cleaned
		}
	}

	if normalized := normalizeWhitespace(out); normalized != out {
		res.Detections = append(res.Detections, Detection{Type: "whitespace_normalized_" + channel})
		out = normalized
	}

	return out
}

// stripRunes removes every rune for which drop returns true. Iteration is
// by codepoint, not byte, since several target ranges sit outside the BMP.
func stripRunes(s string, drop func(rune) bool) string {
	if !strings.ContainsFunc(s, drop) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !drop(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// removeHiddenElements drops elements whose inline style makes them
// invisible (display:none, visibility:hidden, font-size:0), including their
// text content. When no matching close tag is found only the opening tag is
// removed.
func removeHiddenElements(src string) string {
	for {
		start, end, name, found := findHiddenTag(src)
		if !found {
			return src
		}
		elemEnd := findElementEnd(src, end, name)
		src = src[:start] + src[elemEnd:]
	}
}

// findHiddenTag locates the first opening tag with a hiding style and
// returns its bounds and tag name. Attributes are read through the HTML
// tokenizer, which handles double-quoted, single-quoted, and bare values
// alike and unescapes entities before the style is inspected.
func findHiddenTag(src string) (start, end int, name string, found bool) {
	z := html.NewTokenizer(strings.NewReader(src))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return 0, 0, "", false
		}
		rawLen := len(z.Raw())
		tokStart := offset
		offset += rawLen

		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tagName, hasAttr := z.TagName()
		if !hasAttr {
			continue
		}
		for {
			key, val, more := z.TagAttr()
			if string(key) == "style" && isHiddenStyle(string(val)) {
				return tokStart, tokStart + rawLen, string(tagName), true
			}
			if !more {
				break
			}
		}
	}
}

// isHiddenStyle reports whether an inline style value makes the element
// invisible.
func isHiddenStyle(style string) bool {
	for _, re := range hiddenStyleRes {
		if re.MatchString(style) {
			return true
		}
	}
	return false
}

// findElementEnd returns the index just past the closing tag matching the
// element whose opening tag ends at from, handling same-name nesting. When
// no close tag exists it returns from (opening tag removed alone).
func findElementEnd(src string, from int, name string) int {
	re := regexp.MustCompile(`(?i)<(/?)` + regexp.QuoteMeta(name) + `\b[^>]*>`)
	depth := 1
	pos := from
	for depth > 0 {
		m := re.FindStringSubmatchIndex(src[pos:])
		if m == nil {
			return from
		}
		closing := m[3] > m[2] // the "/" group matched
		if closing {
			depth--
		} else {
			depth++
		}
		pos += m[1]
	}
	return pos
}

// removeInjectionComments strips HTML comments whose body reads like an
// injected instruction; benign comments are preserved.
func removeInjectionComments(src string) string {
	return htmlCommentRe.ReplaceAllStringFunc(src, func(comment string) string {
		if injectionRe.MatchString(comment) {
			return ""
		}
		return comment
	})
}

// normalizeWhitespace collapses runs of 3+ newlines to exactly 2 and trims
// leading/trailing whitespace.
func normalizeWhitespace(s string) string {
	if s == "" {
		return s
	}
	collapsed := newlineRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(collapsed)
}
