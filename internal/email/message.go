// Package email defines the core email data model used throughout the gateway.
package email

import "time"

// Email represents a parsed email message with all its components.
type Email struct {
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Date        time.Time
	TextBody    string
	HtmlBody    string
	Attachments []Attachment
	RawHeaders  map[string][]string
	MessageID   string

	// Raw is the original wire form of the message, kept so a held
	// message can be re-submitted verbatim after owner approval.
	Raw []byte
}

// Attachment represents a file attached to an email message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Recipients returns the union of To, Cc, and Bcc addresses in that order.
func (e *Email) Recipients() []string {
	out := make([]string, 0, len(e.To)+len(e.Cc)+len(e.Bcc))
	out = append(out, e.To...)
	out = append(out, e.Cc...)
	out = append(out, e.Bcc...)
	return out
}

// SetHeader sets a header value, replacing any existing values for the key.
func (e *Email) SetHeader(key, value string) {
	if e.RawHeaders == nil {
		e.RawHeaders = make(map[string][]string)
	}
	e.RawHeaders[key] = []string{value}
}
