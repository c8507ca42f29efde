package email

import (
	"strings"
	"testing"
)

func TestBuildMIME_PlainText(t *testing.T) {
	t.Parallel()

	msg := &Email{
		To:       []string{"to@example.com"},
		Subject:  "Plain",
		TextBody: "just text",
	}

	raw, err := BuildMIME("sender@example.com", msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wire := string(raw)
	if !strings.Contains(wire, "From: sender@example.com") {
		t.Error("missing From header")
	}
	if !strings.Contains(wire, "Content-Type: text/plain; charset=UTF-8") {
		t.Error("missing plain text content type")
	}
	if !strings.Contains(wire, "just text") {
		t.Error("missing body")
	}
	if strings.Contains(wire, "multipart/mixed") {
		t.Error("single-part message should not be multipart")
	}
}

func TestBuildMIME_HTMLPreferred(t *testing.T) {
	t.Parallel()

	msg := &Email{
		To:       []string{"to@example.com"},
		Subject:  "HTML",
		TextBody: "fallback",
		HtmlBody: "<p>rich</p>",
	}

	raw, err := BuildMIME("sender@example.com", msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(string(raw), "Content-Type: text/html; charset=UTF-8") {
		t.Error("HTML body should select the html content type")
	}
}

func TestBuildMIME_GatewayHeaders(t *testing.T) {
	t.Parallel()

	msg := &Email{
		To:       []string{"agent@localhost"},
		Subject:  "Annotated",
		TextBody: "body",
	}
	msg.SetHeader("X-Mailwarden-Advisory", "[SPAM] score 6.5, category phishing")
	msg.SetHeader("Received", "from somewhere")

	raw, err := BuildMIME("sender@example.com", msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wire := string(raw)
	if !strings.Contains(wire, "X-Mailwarden-Advisory: [SPAM] score 6.5, category phishing") {
		t.Error("gateway annotation header should be emitted")
	}
	if strings.Contains(wire, "Received:") {
		t.Error("non-gateway raw headers should not be emitted")
	}
}

func TestBuildMIME_WithAttachments(t *testing.T) {
	t.Parallel()

	msg := &Email{
		To:       []string{"to@example.com"},
		Cc:       []string{"cc@example.com"},
		Subject:  "Attached",
		TextBody: "see file",
		Attachments: []Attachment{
			{Filename: "doc.pdf", ContentType: "application/pdf", Content: []byte("pdf content")},
			{Filename: "noname.bin", Content: []byte{0x01, 0x02}},
		},
	}

	raw, err := BuildMIME("sender@example.com", msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wire := string(raw)
	checks := []struct {
		name     string
		contains string
	}{
		{"Cc header", "Cc: cc@example.com"},
		{"MIME-Version", "MIME-Version: 1.0"},
		{"multipart boundary", "multipart/mixed"},
		{"attachment content type", "application/pdf"},
		{"attachment filename", "doc.pdf"},
		{"base64 encoding", "Content-Transfer-Encoding: base64"},
		{"octet-stream fallback", "application/octet-stream"},
	}
	for _, check := range checks {
		if !strings.Contains(wire, check.contains) {
			t.Errorf("missing %s: expected to contain %q", check.name, check.contains)
		}
	}
}

func TestEncodeBase64WithLineBreaks(t *testing.T) {
	t.Parallel()

	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}

	encoded := encodeBase64WithLineBreaks(data)
	lines := strings.Split(encoded, "\r\n")
	for i, line := range lines {
		if i < len(lines)-1 && len(line) != 76 {
			t.Errorf("line %d length: got %d, want 76", i, len(line))
		}
		if len(line) > 76 {
			t.Errorf("line %d exceeds 76 chars: got %d", i, len(line))
		}
	}
}

func TestRecipients(t *testing.T) {
	t.Parallel()

	msg := &Email{
		To:  []string{"a@example.com"},
		Cc:  []string{"b@example.com"},
		Bcc: []string{"c@example.com"},
	}

	got := msg.Recipients()
	want := []string{"a@example.com", "b@example.com", "c@example.com"}
	if len(got) != len(want) {
		t.Fatalf("Recipients(): got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Recipients()[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSetHeaderReplaces(t *testing.T) {
	t.Parallel()

	msg := &Email{}
	msg.SetHeader("X-Mailwarden-Sanitized", "zero_width_text")
	msg.SetHeader("X-Mailwarden-Sanitized", "zero_width_text, hidden_css")

	values := msg.RawHeaders["X-Mailwarden-Sanitized"]
	if len(values) != 1 || values[0] != "zero_width_text, hidden_css" {
		t.Errorf("SetHeader should replace existing values, got %v", values)
	}
}
