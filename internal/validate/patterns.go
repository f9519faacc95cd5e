package validate

import (
	"strings"

	"serialscan/internal/resolve"
)

// Accepted serial shapes, first match wins. All operate on cleaned
// (uppercased, alphabet-checked) text, so they only need to discriminate
// structure, not character set.
type pattern struct {
	name  string
	match func(string) bool
}

var patternList = []pattern{
	{"fixed_alphanumeric_12", func(s string) bool {
		return len(s) == 12 && hasLetter(s) && hasDigit(s)
	}},
	{"fixed_alphanumeric_11", func(s string) bool {
		return len(s) == 11 && hasLetter(s) && hasDigit(s)
	}},
	{"prefix_letter_digits", func(s string) bool {
		if len(s) < 10 || len(s) > 12 {
			return false
		}
		return isLetter(rune(s[0])) && hasDigit(s)
	}},
	{"legacy_alphanumeric_10", func(s string) bool {
		return len(s) == 10 && hasLetter(s) && hasDigit(s)
	}},
}

// knownPrefixes are manufacturing-location codes seen at the start of real
// device serials. A match earns a pattern-confidence bonus, it is not a
// requirement.
var knownPrefixes = []string{
	"C02", "C07", "C17", "C1M", "C2V", "C39",
	"D25", "DG", "DL", "DM", "DN",
	"F4", "F5", "FV",
	"G8", "W8", "YM",
}

const (
	patternBaseConfidence = 0.5
	patternLengthBonus    = 0.1
	patternBalanceBonus   = 0.1
	patternPrefixBonus    = 0.1
)

func matchPattern(s string) (string, bool) {
	for _, p := range patternList {
		if p.match(s) {
			return p.name, true
		}
	}
	return "", false
}

// patternConfidence rewards the structural traits of real serials: expected
// length, a balanced letter/digit mix, and a known manufacturing prefix.
func patternConfidence(s string) float64 {
	confidence := patternBaseConfidence
	if n := len(s); n >= 10 && n <= 12 {
		confidence += patternLengthBonus
	}
	if balancedMix(s) {
		confidence += patternBalanceBonus
	}
	for _, prefix := range knownPrefixes {
		if strings.HasPrefix(s, prefix) {
			confidence += patternPrefixBonus
			break
		}
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// balancedMix reports whether the reading has the digit-heavy but not
// digit-only composition real serials show.
func balancedMix(s string) bool {
	letters, digits := 0, 0
	for _, r := range s {
		switch {
		case isLetter(r):
			letters++
		case isDigit(r):
			digits++
		}
	}
	return letters >= 2 && digits >= 4
}

func hasLetter(s string) bool {
	for _, r := range s {
		if isLetter(r) {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	for _, r := range s {
		if isDigit(r) {
			return true
		}
	}
	return false
}

func isLetter(r rune) bool { return r >= 'A' && r <= 'Z' }

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// invalidChars returns the deduplicated set of characters outside the serial
// alphabet, in first-seen order.
func invalidChars(s string) string {
	seen := make(map[rune]struct{})
	var b strings.Builder
	for _, r := range s {
		if resolve.InAlphabet(r) {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		b.WriteRune(r)
	}
	return b.String()
}
