// =============================================================================
// SICORE Export - Shared Types
// =============================================================================
//
// This package contains the record-layout types shared by the codec, the
// layout registry, the XLSX template parser and the generator. Keeping them
// here avoids import cycles between those packages.
//
// A Layout is an ordered list of FieldSpec values. The order is the on-the-wire
// field order: the first spec is the first column of every generated line.
//
// =============================================================================

package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// FIELD TYPES
// =============================================================================

// FieldType selects the formatting rule the codec applies to a raw value.
type FieldType int

const (
	// FieldText is transliterated to ASCII, uppercased and stripped of
	// anything outside [A-Z0-9 -.].
	FieldText FieldType = iota

	// FieldInteger is coerced to an integer; absent values become 0.
	FieldInteger

	// FieldDecimalComma is a fixed-precision amount. The layout decides
	// whether it is written with a comma separator or as a scaled integer.
	FieldDecimalComma

	// FieldDate is rendered from a calendar date using a token pattern.
	FieldDate

	// FieldNationalTaxID is an 11-digit CUIT verified with its check digit.
	FieldNationalTaxID
)

var fieldTypeNames = map[FieldType]string{
	FieldText:          "text",
	FieldInteger:       "integer",
	FieldDecimalComma:  "decimal_comma",
	FieldDate:          "date",
	FieldNationalTaxID: "national_tax_id",
}

// String returns the configuration name of the field type.
func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// ParseFieldType maps a configuration name (and its common aliases) to a FieldType.
func ParseFieldType(value string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "text", "string", "str", "alpha", "alphanumeric":
		return FieldText, nil
	case "integer", "int", "numeric", "number":
		return FieldInteger, nil
	case "decimal_comma", "decimal", "amount", "money":
		return FieldDecimalComma, nil
	case "date":
		return FieldDate, nil
	case "national_tax_id", "cuit", "tax_id":
		return FieldNationalTaxID, nil
	default:
		return FieldText, fmt.Errorf("unknown field type %q", value)
	}
}

// =============================================================================
// PADDING
// =============================================================================

// PaddingSide names the side the fill character is added on.
type PaddingSide int

const (
	// PadRight left-justifies the value: fill characters go on the right.
	PadRight PaddingSide = iota

	// PadLeft right-justifies the value: fill characters go on the left.
	PadLeft
)

// String returns "left" or "right".
func (p PaddingSide) String() string {
	if p == PadLeft {
		return "left"
	}
	return "right"
}

// ParsePaddingSide accepts "left" or "right" (case-insensitive). Empty means right.
func ParsePaddingSide(value string) (PaddingSide, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "left", "l":
		return PadLeft, nil
	case "right", "r", "":
		return PadRight, nil
	default:
		return PadRight, fmt.Errorf("unknown padding side %q", value)
	}
}

// =============================================================================
// DECIMAL ENCODING
// =============================================================================

// DecimalEncoding is the layout-wide rule for decimal_comma fields.
type DecimalEncoding int

const (
	// CommaDecimal writes fixed-decimal text with ',' as the separator (1234,50).
	CommaDecimal DecimalEncoding = iota

	// ScaledInteger writes round(x, d) * 10^d as an integer without separator (123450).
	ScaledInteger
)

// String returns the configuration name of the encoding.
func (e DecimalEncoding) String() string {
	if e == ScaledInteger {
		return "scaled_integer"
	}
	return "comma_decimal"
}

// =============================================================================
// FIELD SPECIFICATION
// =============================================================================

// FieldSpec describes one column of a record layout.
type FieldSpec struct {
	// Name identifies the field and is the key looked up in RawValues.
	Name string

	// Type selects the codec rule.
	Type FieldType

	// Length is the fixed width of the field. Zero means unconstrained,
	// which is only valid in delimited layouts.
	Length int

	// Padding is the side the fill character goes on. Meaningless when Length is zero.
	Padding PaddingSide

	// FillChar is the padding character. Zero means a space.
	FillChar rune

	// Required fields fail when the raw value is absent or an empty string.
	Required bool

	// Decimals is the precision of decimal_comma fields.
	Decimals int

	// DateFormat is the token pattern of date fields (DD/MM/YYYY, DDMMYYYY, YYYY-MM-DD, ...).
	DateFormat string
}

// Fill returns the effective fill character.
func (f FieldSpec) Fill() rune {
	if f.FillChar == 0 {
		return ' '
	}
	return f.FillChar
}

// =============================================================================
// LAYOUT
// =============================================================================

// Kind identifies one of the export layouts.
type Kind string

const (
	KindRetention  Kind = "retention"
	KindPerception Kind = "perception"
	KindFuel       Kind = "fuel"
)

// Kinds lists the built-in layout kinds in menu order.
func Kinds() []Kind {
	return []Kind{KindPerception, KindRetention, KindFuel}
}

// ParseKind accepts a kind name, case-insensitive.
func ParseKind(value string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(value))); k {
	case KindRetention, KindPerception, KindFuel:
		return k, nil
	default:
		return "", fmt.Errorf("unknown layout %q (expected one of retention, perception, fuel)", value)
	}
}

// Layout is an ordered field specification plus its line-level rules.
type Layout struct {
	// Name is used in logs and in the output file name.
	Name string

	// Kind is the extractor variant this layout is fed by.
	Kind Kind

	// Fields are in on-the-wire order.
	Fields []FieldSpec

	// Separator joins formatted fields. Empty for fixed-width layouts.
	Separator string

	// Decimals is the encoding applied to every decimal_comma field.
	Decimals DecimalEncoding

	// RecordWidth is the documented total width of a fixed-width record.
	// Zero for delimited layouts.
	RecordWidth int
}

// FixedWidth reports whether the layout is positional (no separator).
func (l *Layout) FixedWidth() bool {
	return l.Separator == ""
}

// Width sums the declared field lengths.
func (l *Layout) Width() int {
	total := 0
	for _, f := range l.Fields {
		total += f.Length
	}
	return total
}

// Field returns the spec with the given name.
func (l *Layout) Field(name string) (FieldSpec, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldNames returns the field names in order.
func (l *Layout) FieldNames() []string {
	names := make([]string, len(l.Fields))
	for i, f := range l.Fields {
		names[i] = f.Name
	}
	return names
}

// =============================================================================
// RAW VALUES
// =============================================================================

// RawValues maps a field name to an untyped value produced by an extractor.
// Supported value types are nil, string, every signed and unsigned integer
// kind, float32, float64, decimal.Decimal and time.Time. A missing key is treated as absent.
type RawValues map[string]any
