// Package price converts scraped price text into numbers.
//
// One rule applies everywhere: a comma is the decimal separator, every other
// non-digit character (currency text, spaces, periods used as thousands
// separators) is dropped. "1.500,50 FCFA" is 1500.5 and "12 500 CFA" is 12500.
package price

import (
	"strconv"
	"strings"
)

// Phrases meaning "price not listed". Matched case-insensitively as
// substrings.
var sentinels = []string{
	"prix sur demande",
	"sur demande",
	"price on request",
	"à débattre",
	"a debattre",
}

// Normalize returns the numeric value of raw and true, or 0 and false when the
// price is missing, a sentinel phrase, or unparseable. Values are not range
// checked.
func Normalize(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || IsSentinel(raw) {
		return 0, false
	}

	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		}
	}

	cleaned := b.String()
	if cleaned == "" || strings.Count(cleaned, ".") > 1 {
		return 0, false
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func IsSentinel(raw string) bool {
	lower := strings.ToLower(strings.TrimSpace(raw))
	for _, s := range sentinels {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// ParseCanonical accepts an already normalized decimal ("12500", "1500.5")
// and falls back to Normalize for anything else. It keeps re-cleaning of a
// cleaned dataset stable.
func ParseCanonical(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if isCanonical(s) {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v, true
		}
	}
	return Normalize(s)
}

func isCanonical(s string) bool {
	dots := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.':
			dots++
			if i == 0 || i == len(s)-1 {
				return false
			}
		case r == '-' && i == 0:
		default:
			return false
		}
	}
	return dots <= 1
}
