package codec

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SanitizeText transliterates to ASCII, uppercases and keeps only
// [A-Z0-9 -.]. maxLength > 0 truncates the result.
//
// EXAMPLE:
//
//	SanitizeText("Compañía Láctea S.R.L. (Sur)", 0) == "COMPANIA LACTEA S.R.L. SUR"
func SanitizeText(text string, maxLength int) string {
	if text == "" {
		return ""
	}

	// NFKD splits accented letters into base + combining mark; everything
	// outside ASCII (marks included) is then dropped.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	ascii, _, err := transform.String(t, text)
	if err != nil {
		ascii = text
	}

	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ', r == '-', r == '.':
			return r
		default:
			return -1
		}
	}, strings.ToUpper(ascii))

	if maxLength > 0 && len(out) > maxLength {
		out = out[:maxLength]
	}
	return out
}
