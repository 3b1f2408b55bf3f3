package codec

import (
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/sicore-export/internal/types"
)

// ApplyPadding truncates a formatted value to the field length and then fills
// it to exactly that length. PadLeft right-justifies, PadRight left-justifies.
// A spec without a length returns the value unchanged.
func ApplyPadding(value string, spec types.FieldSpec) string {
	if spec.Length <= 0 {
		return value
	}
	if spec.Padding == types.PadLeft {
		return PadLeft(value, spec.Length, spec.Fill())
	}
	return PadRight(value, spec.Length, spec.Fill())
}

// PadLeft truncates s to length runes and fills on the left.
func PadLeft(s string, length int, padChar rune) string {
	s = truncate(s, length)
	n := utf8.RuneCountInString(s)
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}

// PadRight truncates s to length runes and fills on the right.
func PadRight(s string, length int, padChar rune) string {
	s = truncate(s, length)
	n := utf8.RuneCountInString(s)
	if n >= length {
		return s
	}
	return s + strings.Repeat(string(padChar), length-n)
}

func truncate(s string, length int) string {
	if utf8.RuneCountInString(s) <= length {
		return s
	}
	r := []rune(s)
	return string(r[:length])
}
