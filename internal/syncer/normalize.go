package syncer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// decomposer applies NFKD compatibility decomposition and strips combining
// marks, so accented letters fall back to their ASCII base ("İ" -> "I",
// "ş" -> "s").
var decomposer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// NormalizeKey maps an arbitrary key to a Kubernetes-compliant identifier.
//
// The result always matches [-._a-zA-Z0-9]+ or is empty, and the function is
// idempotent. Steps: transliterate to ASCII, drop what cannot be
// transliterated, substitute '_' for remaining invalid characters, collapse
// underscore runs, trim leading/trailing '_' and '.'.
func NormalizeKey(key string) string {
	ascii, _, err := transform.String(decomposer, key)
	if err != nil {
		ascii = key
	}

	var b strings.Builder
	b.Grow(len(ascii))
	pendingUnderscore := false

	for _, r := range ascii {
		switch {
		case r == '_':
			pendingUnderscore = true
		case isValidKeyRune(r):
			if pendingUnderscore {
				b.WriteByte('_')
				pendingUnderscore = false
			}
			b.WriteRune(r)
		case r > unicode.MaxASCII:
			// Untransliterable rune, dropped entirely.
		default:
			pendingUnderscore = true
		}
	}

	return strings.Trim(b.String(), "_.")
}

func isValidKeyRune(r rune) bool {
	return r == '-' || r == '.' ||
		(r >= '0' && r <= '9') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= 'a' && r <= 'z')
}
