package util

import (
	"strings"
	"unicode"
)

const maxDisplayNameRunes = 255

// DisplayName makes a client supplied file name safe to echo in receipts and logs: control
// characters and path separators are replaced, and the result is capped at 255 runes.
// An empty result returns fallback.
func DisplayName(name, fallback string) string {
	var b strings.Builder
	n := 0
	for _, r := range strings.TrimSpace(name) {
		if n == maxDisplayNameRunes {
			break
		}
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case unicode.IsControl(r) || r == unicode.ReplacementChar:
			continue
		default:
			b.WriteRune(r)
		}
		n++
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return fallback
	}
	return out
}
