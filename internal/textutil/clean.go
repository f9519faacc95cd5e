package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanSerial normalizes raw OCR text for validation and comparison: NFKC
// fold, surrounding whitespace trimmed, interior whitespace removed, and the
// result uppercased. It never rejects; unrecognized characters pass through
// for downstream validation to report.
func CleanSerial(text string) string {
	folded := norm.NFKC.String(text)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.TrimSpace(folded) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
