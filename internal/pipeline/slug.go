package pipeline

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug turns a category name into a file name stem: accents removed,
// lowercase ASCII letters and digits, runs of anything else collapsed into
// a single dash. An empty result becomes "category".
func Slug(name string) string {
	plain, _, err := transform.String(stripMarks, name)
	if err != nil {
		plain = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "category"
	}
	return slug
}

// fileStem returns the slug of name, suffixed -2, -3, ... when an earlier
// category of the run already took it.
func fileStem(used map[string]bool, name string) string {
	base := Slug(name)
	stem := base
	for i := 2; used[stem]; i++ {
		stem = fmt.Sprintf("%s-%d", base, i)
	}
	used[stem] = true
	return stem
}
