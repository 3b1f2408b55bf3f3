package codec

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/sicore-export/internal/types"
)

// ToDecimal coerces a raw value to a decimal. Absent values are zero.
func ToDecimal(value any) (decimal.Decimal, error) {
	if d, ok := NumericValue(value); ok {
		return d, nil
	}
	switch v := value.(type) {
	case nil:
		return decimal.Zero, nil
	case string:
		s := trimSpace(v)
		if s == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal value %q", v)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("invalid decimal value %v", v)
	}
}

// NumericValue converts the numeric kinds a RawValues entry may hold: every
// signed and unsigned integer kind, float32, float64 and decimal.Decimal.
// Anything else reports false.
func NumericValue(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int8:
		return decimal.NewFromInt(int64(v)), true
	case int16:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt32(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case uint:
		return fromUint(uint64(v)), true
	case uint8:
		return fromUint(uint64(v)), true
	case uint16:
		return fromUint(uint64(v)), true
	case uint32:
		return fromUint(uint64(v)), true
	case uint64:
		return fromUint(v), true
	default:
		return decimal.Zero, false
	}
}

func fromUint(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// FormatDecimal renders d with the given precision. Rounding is half away
// from zero.
//
// ENCODINGS:
//   - CommaDecimal:  44680.505 -> "44680,51"
//   - ScaledInteger: 44680.505 -> "4468051"
func FormatDecimal(d decimal.Decimal, decimals int, enc types.DecimalEncoding) string {
	if decimals < 0 {
		decimals = 0
	}
	rounded := d.Round(int32(decimals))
	if enc == types.ScaledInteger {
		return rounded.Shift(int32(decimals)).StringFixed(0)
	}
	return strings.Replace(rounded.StringFixed(int32(decimals)), ".", ",", 1)
}

// ParseDecimal decodes text produced by FormatDecimal.
func ParseDecimal(text string, decimals int, enc types.DecimalEncoding) (decimal.Decimal, error) {
	s := trimSpace(text)
	if s == "" {
		return decimal.Zero, nil
	}
	if enc == types.ScaledInteger {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid scaled amount %q: %w", text, err)
		}
		return d.Shift(-int32(decimals)), nil
	}
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", text, err)
	}
	return d, nil
}
