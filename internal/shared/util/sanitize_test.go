package util

import (
	"strings"
	"testing"
)

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"report.pdf":         "report.pdf",
		"  a/b.docx ":        "a_b.docx",
		"evil\x00\nname.png": "evilname.png",
		"":                   "upload",
		"\t\r":               "upload",
		"résumé.pdf":         "résumé.pdf",
	}
	for in, want := range cases {
		if got := DisplayName(in, "upload"); got != want {
			t.Fatalf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}

	long := strings.Repeat("é", 300)
	if got := DisplayName(long, "upload"); len([]rune(got)) != 255 {
		t.Fatalf("expected 255 runes, got %d", len([]rune(got)))
	}
}
