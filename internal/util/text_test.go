package util

import "testing"

func TestNormalizeWhitespace(t *testing.T) {
	if got := NormalizeWhitespace("  hello   world\n\nnewlines\t"); got != "hello world newlines" {
		t.Fatalf("got %q", got)
	}
}

func TestRuneLen(t *testing.T) {
	if got := RuneLen("🌶️ hot"); got != 6 {
		t.Fatalf("got %d", got)
	}
}
