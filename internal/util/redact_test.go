package util

import (
	"strings"
	"testing"
)

func TestRedactSecrets(t *testing.T) {
	input := "api_key=abc123secret token: xyz789 plain text"
	out := RedactSecrets(input)
	if strings.Contains(out, "abc123secret") {
		t.Fatalf("api key not redacted: %s", out)
	}
	if strings.Contains(out, "xyz789") {
		t.Fatalf("token not redacted: %s", out)
	}
	if !strings.Contains(out, "plain text") {
		t.Fatalf("plain text removed: %s", out)
	}
}

func TestRedactProviderKey(t *testing.T) {
	out := RedactSecrets("using sk-abcdefghijklmnopqrstuvwxyz123456 for auth")
	if strings.Contains(out, "sk-abcdef") {
		t.Fatalf("provider key not redacted: %s", out)
	}
}

func TestTruncateBytes(t *testing.T) {
	out, truncated := TruncateBytes("hello world", 5)
	if out != "hello" || !truncated {
		t.Fatalf("unexpected truncation: %q %v", out, truncated)
	}
	out, truncated = TruncateBytes("short", 100)
	if out != "short" || truncated {
		t.Fatalf("unexpected truncation of short input: %q %v", out, truncated)
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("first\nsecond", 100); got != "first" {
		t.Fatalf("unexpected first line: %q", got)
	}
	if got := FirstLine("a very long single line", 6); got != "a very" {
		t.Fatalf("unexpected clipped line: %q", got)
	}
}
