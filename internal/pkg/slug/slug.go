// Package slug turns arbitrary text into filesystem- and branch-safe names.
package slug

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Make builds a lowercase ascii slug: NFKC-normalize, map every run of
// non-alphanumerics to a single hyphen, trim, and cap at maxLen runes.
// Falls back to fallback when nothing survives.
func Make(text string, maxLen int, fallback string) string {
	normalized := norm.NFKC.String(strings.ToLower(text))

	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range normalized {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	s := strings.Trim(b.String(), "-")
	if maxLen > 0 && len(s) > maxLen {
		s = strings.Trim(s[:maxLen], "-")
	}
	if s == "" {
		return fallback
	}
	return s
}
