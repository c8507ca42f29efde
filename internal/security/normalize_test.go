package security

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mailwarden/mailwarden/internal/email"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain text passthrough", "no tags here", "no tags here"},
		{"tags stripped without separators", "<b>123-45-</b><i>6789</i>", "123-45-6789"},
		{"script body dropped", "<script>var x = 1;</script>visible", "visible"},
		{"style body dropped", "<style>p { color: red }</style>visible", "visible"},
		{"entities decoded", "a &amp; b", "a & b"},
		{"nested markup", "<div><p>one</p><p>two</p></div>", "onetwo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLToText(tt.in))
		})
	}
}

func TestScanPolicy_ShouldScanContent(t *testing.T) {
	p := DefaultScanPolicy()

	tests := []struct {
		name string
		att  email.Attachment
		want bool
	}{
		{"text plain", email.Attachment{Filename: "a.bin", ContentType: "text/plain", Content: []byte("x")}, true},
		{"text with params", email.Attachment{Filename: "a.bin", ContentType: "text/plain; charset=utf-8", Content: []byte("x")}, true},
		{"text prefix match", email.Attachment{Filename: "a.bin", ContentType: "text/markdown", Content: []byte("x")}, true},
		{"json", email.Attachment{Filename: "a.bin", ContentType: "application/json", Content: []byte("x")}, true},
		{"shell", email.Attachment{Filename: "a.bin", ContentType: "application/x-sh", Content: []byte("x")}, true},
		{"image", email.Attachment{Filename: "secret.txt", ContentType: "image/jpeg", Content: []byte("x")}, false},
		{"declared type beats extension", email.Attachment{Filename: "a.txt", ContentType: "application/octet-stream", Content: []byte("x")}, false},
		{"extension fallback txt", email.Attachment{Filename: "a.txt", Content: []byte("x")}, true},
		{"extension fallback sh", email.Attachment{Filename: "run.sh", Content: []byte("x")}, true},
		{"extension fallback case", email.Attachment{Filename: "A.TXT", Content: []byte("x")}, true},
		{"unknown extension", email.Attachment{Filename: "a.bin", Content: []byte("x")}, false},
		{"no extension no type", email.Attachment{Filename: "README", Content: []byte("x")}, false},
		{"empty content never scanned", email.Attachment{Filename: "a.txt", ContentType: "text/plain"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.shouldScanContent(tt.att))
		})
	}
}

func TestDomainOf(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"agent@localhost", "localhost"},
		{"USER@EXAMPLE.COM", "example.com"},
		{"a@sub.localhost", "sub.localhost"},
		{"no-at-sign", ""},
		{"trailing@", ""},
		{"bracket@localhost>", "localhost"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, domainOf(tt.addr), "domainOf(%q)", tt.addr)
	}
}
