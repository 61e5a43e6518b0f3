package mail

import (
	"strings"
	"testing"
)

// TestBuildMessage checks RFC-style header framing and body separation.
func TestBuildMessage(t *testing.T) {
	msg := buildMessage("robot@example.com", "user@example.com", "Your transcription (job abc)", "hello\nworld")

	headerEnd := strings.Index(msg, "\r\n\r\n")
	if headerEnd < 0 {
		t.Fatal("message must separate headers from body with a blank line")
	}
	headers := msg[:headerEnd]
	body := msg[headerEnd+4:]

	for _, want := range []string{
		"From: robot@example.com",
		"To: user@example.com",
		"Subject: Your transcription (job abc)",
		"Content-Type: text/plain; charset=utf-8",
	} {
		if !strings.Contains(headers, want) {
			t.Fatalf("headers missing %q:\n%s", want, headers)
		}
	}
	if body != "hello\nworld" {
		t.Fatalf("body = %q", body)
	}
}
