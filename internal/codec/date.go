package codec

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDateFormat is used when a date field declares no pattern.
const DefaultDateFormat = "DD/MM/YYYY"

// FormatDate renders a calendar date with a DD/MM/YYYY style token pattern.
// Absent values give "". Strings are parsed as YYYY-MM-DD; a string that does
// not parse is returned unchanged.
func FormatDate(value any, pattern string) string {
	if pattern == "" {
		pattern = DefaultDateFormat
	}

	var t time.Time
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		if v.IsZero() {
			return ""
		}
		t = v
	case *time.Time:
		if v == nil || v.IsZero() {
			return ""
		}
		t = *v
	case string:
		if v == "" {
			return ""
		}
		parsed, err := time.Parse(time.DateOnly, strings.TrimSpace(v))
		if err != nil {
			return v
		}
		t = parsed
	default:
		return fmt.Sprint(v)
	}

	return renderDate(t, pattern)
}

// renderDate substitutes YYYY, YY, MM and DD tokens; every other character is
// copied literally.
func renderDate(t time.Time, pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		rest := pattern[i:]
		switch {
		case strings.HasPrefix(rest, "YYYY"):
			fmt.Fprintf(&b, "%04d", t.Year())
			i += 4
		case strings.HasPrefix(rest, "YY"):
			fmt.Fprintf(&b, "%02d", t.Year()%100)
			i += 2
		case strings.HasPrefix(rest, "MM"):
			fmt.Fprintf(&b, "%02d", int(t.Month()))
			i += 2
		case strings.HasPrefix(rest, "DD"):
			fmt.Fprintf(&b, "%02d", t.Day())
			i += 2
		default:
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String()
}

// ParseDate is the inverse of FormatDate for the same pattern.
func ParseDate(text, pattern string) (time.Time, error) {
	if pattern == "" {
		pattern = DefaultDateFormat
	}
	layout := strings.NewReplacer("YYYY", "2006", "MM", "01", "DD", "02").Replace(pattern)
	t, err := time.Parse(layout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q does not match %s: %w", text, pattern, err)
	}
	return t, nil
}
