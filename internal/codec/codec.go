// =============================================================================
// SICORE Export - Field Codec
// =============================================================================
//
// This package turns one raw value into the exact text a field occupies on
// the wire. Every function here is pure: no I/O, no shared state.
//
// PIPELINE (per field):
//   1. Required check   - absent values and empty strings fail required fields
//   2. Type formatting  - integer, decimal_comma, date, text, national_tax_id
//   3. Padding          - fixed-width layouts only: truncate, then fill
//
// ERRORS:
//   Every failure is a *FieldFormatError naming the field. The line assembler
//   collects them so one record reports all of its broken fields at once.
//
// =============================================================================

package codec

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/sicore-export/internal/types"
)

// =============================================================================
// ERRORS
// =============================================================================

// FieldFormatError reports a value that could not be rendered for a field.
type FieldFormatError struct {
	// Field is the FieldSpec name.
	Field string

	// Reason is a human-readable description of the failure.
	Reason string
}

// Error implements the error interface.
func (e *FieldFormatError) Error() string {
	return fmt.Sprintf("field '%s': %s", e.Field, e.Reason)
}

func fieldError(field, format string, args ...any) *FieldFormatError {
	return &FieldFormatError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ENTRY POINTS
// =============================================================================

// Format validates a raw value against its spec and renders it according to
// the field type. The result is not padded.
//
// PARAMETERS:
//   - value: The raw value (nil, string, any integer kind, float32, float64, decimal.Decimal, time.Time).
//   - spec: The field specification.
//   - enc: The layout-wide decimal encoding.
//
// RETURNS:
//   - The type-formatted text.
//   - A *FieldFormatError when the value is missing or malformed.
func Format(value any, spec types.FieldSpec, enc types.DecimalEncoding) (string, error) {
	if spec.Required && isAbsent(value) {
		return "", fieldError(spec.Name, "is required")
	}

	switch spec.Type {
	case types.FieldInteger:
		out, err := FormatInteger(value)
		if err != nil {
			return "", fieldError(spec.Name, "%v", err)
		}
		return out, nil

	case types.FieldDecimalComma:
		d, err := ToDecimal(value)
		if err != nil {
			return "", fieldError(spec.Name, "%v", err)
		}
		return FormatDecimal(d, spec.Decimals, enc), nil

	case types.FieldDate:
		return FormatDate(value, spec.DateFormat), nil

	case types.FieldText:
		return SanitizeText(stringify(value), spec.Length), nil

	case types.FieldNationalTaxID:
		if isAbsent(value) {
			return "", fieldError(spec.Name, "tax ID is required")
		}
		cuit, err := ValidateCUIT(stringify(value))
		if err != nil {
			return "", fieldError(spec.Name, "%v", err)
		}
		return cuit, nil

	default:
		return stringify(value), nil
	}
}

// Encode is Format followed by padding when the layout is fixed-width.
// Delimited layouts receive the formatted value unchanged.
func Encode(value any, spec types.FieldSpec, layout *types.Layout) (string, error) {
	out, err := Format(value, spec, layout.Decimals)
	if err != nil {
		return "", err
	}
	if !layout.FixedWidth() {
		return out, nil
	}
	return ApplyPadding(out, spec), nil
}

// =============================================================================
// INTEGER
// =============================================================================

// FormatInteger coerces a raw value to an integer string. Absent values are 0.
// Fractions are truncated toward zero.
func FormatInteger(value any) (string, error) {
	if d, ok := NumericValue(value); ok {
		return d.Truncate(0).String(), nil
	}
	switch v := value.(type) {
	case nil:
		return "0", nil
	case string:
		s := trimSpace(v)
		if s == "" {
			return "0", nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid integer value %q", v)
		}
		return strconv.FormatInt(n, 10), nil
	default:
		return "", fmt.Errorf("invalid integer value %v", v)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// isAbsent reports whether a value counts as missing for the required check.
// Numeric zero is present.
func isAbsent(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case time.Time:
		return v.IsZero()
	case *time.Time:
		return v == nil || v.IsZero()
	default:
		return false
	}
}

// stringify renders a raw value as plain text for text-like fields.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case decimal.Decimal:
		return v.String()
	case time.Time:
		return v.Format(time.DateOnly)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}
