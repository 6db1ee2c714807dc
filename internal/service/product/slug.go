package product

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// slugify derives a URL-safe slug from a product name: lowercase, diacritics
// stripped, runs of non-alphanumerics collapsed to single hyphens, leading and
// trailing hyphens trimmed.
func slugify(name string) string {
	stripped := stripDiacritics(strings.ToLower(name))

	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range stripped {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
