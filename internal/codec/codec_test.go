package codec

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/sicore-export/internal/types"
)

func TestValidateCUIT(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr string
	}{
		{name: "valid provider", input: "30543035064", want: "30543035064"},
		{name: "valid client", input: "30707753303", want: "30707753303"},
		{name: "dashes stripped", input: "30-54303506-4", want: "30543035064"},
		{name: "wrong check digit", input: "30543035065", wantErr: "check digit"},
		{name: "too short", input: "3054303506", wantErr: "11 digits"},
		{name: "empty", input: "--", wantErr: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateCUIT(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCUITCheckDigitMapping(t *testing.T) {
	// Every 10-digit prefix has exactly one accepted 11th digit.
	prefixes := []string{"2000000000", "3054303506", "2712345678", "3070775330", "2099999999"}
	for _, p := range prefixes {
		want, err := CUITCheckDigit(p)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, want, 0)
		assert.LessOrEqual(t, want, 9)

		accepted := 0
		for d := byte('0'); d <= '9'; d++ {
			if _, err := ValidateCUIT(p + string(d)); err == nil {
				accepted++
				assert.Equal(t, want, int(d-'0'), p)
			}
		}
		assert.Equal(t, 1, accepted, p)
	}
}

func TestApplyPadding(t *testing.T) {
	zeroLeft := types.FieldSpec{Name: "n", Length: 6, Padding: types.PadLeft, FillChar: '0'}
	spaceRight := types.FieldSpec{Name: "s", Length: 6, Padding: types.PadRight}

	assert.Equal(t, "000042", ApplyPadding("42", zeroLeft))
	assert.Equal(t, "42    ", ApplyPadding("42", spaceRight))
	assert.Equal(t, "ABCDEF", ApplyPadding("ABCDEFGH", zeroLeft))
	assert.Equal(t, "ABCDEF", ApplyPadding("ABCDEFGH", spaceRight))
	assert.Equal(t, "unbounded", ApplyPadding("unbounded", types.FieldSpec{}))

	for _, v := range []string{"", "1", "12345", "123456", "AB C"} {
		for _, spec := range []types.FieldSpec{zeroLeft, spaceRight} {
			once := ApplyPadding(v, spec)
			assert.Len(t, once, spec.Length)
			assert.Equal(t, once, ApplyPadding(once, spec), "value %q", v)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{in: "Compañía Láctea S.R.L.", want: "COMPANIA LACTEA S.R.L."},
		{in: "BARALE S.A. - 306", want: "BARALE S.A. - 306"},
		{in: "Pérez & Hijos (Sur)", want: "PEREZ  HIJOS SUR"},
		{in: "Ñandú", want: "NANDU"},
		{in: "abcdefghij", max: 4, want: "ABCD"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeText(tt.in, tt.max), tt.in)
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2025, time.September, 27, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "27/09/2025", FormatDate(d, "DD/MM/YYYY"))
	assert.Equal(t, "27092025", FormatDate(d, "DDMMYYYY"))
	assert.Equal(t, "2025-09-27", FormatDate(d, "YYYY-MM-DD"))
	assert.Equal(t, "09.2025", FormatDate(d, "MM.YYYY"))
	assert.Equal(t, "27/09/2025", FormatDate(d, ""))
	assert.Equal(t, "27092025", FormatDate("2025-09-27", "DDMMYYYY"))
	assert.Equal(t, "not a date", FormatDate("not a date", "DDMMYYYY"))
	assert.Equal(t, "", FormatDate(nil, "DDMMYYYY"))
	assert.Equal(t, "", FormatDate(time.Time{}, "DDMMYYYY"))

	back, err := ParseDate("27092025", "DDMMYYYY")
	require.NoError(t, err)
	assert.True(t, back.Equal(d))
}

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		in     string
		enc    types.DecimalEncoding
		places int
		want   string
	}{
		{in: "44680.51", enc: types.CommaDecimal, places: 2, want: "44680,51"},
		{in: "44680.505", enc: types.CommaDecimal, places: 2, want: "44680,51"},
		{in: "0", enc: types.CommaDecimal, places: 2, want: "0,00"},
		{in: "12.3", enc: types.CommaDecimal, places: 0, want: "12"},
		{in: "44680.51", enc: types.ScaledInteger, places: 2, want: "4468051"},
		{in: "12.345", enc: types.ScaledInteger, places: 2, want: "1235"},
		{in: "0", enc: types.ScaledInteger, places: 2, want: "0"},
	}
	for _, tt := range tests {
		got := FormatDecimal(decimal.RequireFromString(tt.in), tt.places, tt.enc)
		assert.Equal(t, tt.want, got, "%s (%s)", tt.in, tt.enc)
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	values := []string{"0", "1", "44680.51", "1234.567", "0.005", "-1500.25", "99999999999.99"}
	for _, enc := range []types.DecimalEncoding{types.CommaDecimal, types.ScaledInteger} {
		for _, v := range values {
			x := decimal.RequireFromString(v).Abs()
			encoded := FormatDecimal(x, 2, enc)
			decoded, err := ParseDecimal(encoded, 2, enc)
			require.NoError(t, err)
			assert.True(t, decoded.Equal(x.Round(2)), "%s via %s: got %s", v, enc, decoded)
		}
	}
}

func TestFormat(t *testing.T) {
	text := types.FieldSpec{Name: "name", Type: types.FieldText, Length: 5, Required: true}
	amount := types.FieldSpec{Name: "amount", Type: types.FieldDecimalComma, Decimals: 2, Required: true}
	count := types.FieldSpec{Name: "count", Type: types.FieldInteger}
	cuit := types.FieldSpec{Name: "cuit", Type: types.FieldNationalTaxID, Required: true}

	t.Run("required text missing", func(t *testing.T) {
		_, err := Format(nil, text, types.CommaDecimal)
		var ferr *FieldFormatError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, "name", ferr.Field)
	})

	t.Run("required empty string", func(t *testing.T) {
		_, err := Format("", text, types.CommaDecimal)
		require.Error(t, err)
	})

	t.Run("required zero passes", func(t *testing.T) {
		got, err := Format(0, amount, types.CommaDecimal)
		require.NoError(t, err)
		assert.Equal(t, "0,00", got)
	})

	t.Run("text truncated", func(t *testing.T) {
		got, err := Format("tostadero", text, types.CommaDecimal)
		require.NoError(t, err)
		assert.Equal(t, "TOSTA", got)
	})

	t.Run("integer", func(t *testing.T) {
		got, err := Format(nil, count, types.CommaDecimal)
		require.NoError(t, err)
		assert.Equal(t, "0", got)

		got, err = Format(" 17 ", count, types.CommaDecimal)
		require.NoError(t, err)
		assert.Equal(t, "17", got)

		_, err = Format("x1", count, types.CommaDecimal)
		assert.Error(t, err)
	})

	t.Run("decimal rejects garbage", func(t *testing.T) {
		_, err := Format("12,5", amount, types.CommaDecimal)
		assert.Error(t, err)
	})

	t.Run("cuit", func(t *testing.T) {
		got, err := Format("30-54303506-4", cuit, types.CommaDecimal)
		require.NoError(t, err)
		assert.Equal(t, "30543035064", got)

		_, err = Format("30543035065", cuit, types.CommaDecimal)
		assert.ErrorContains(t, err, "cuit")
	})
}

func TestEncodeLeadingZeroCode(t *testing.T) {
	regime := types.FieldSpec{Name: "codigo_regimen", Type: types.FieldText, Length: 3, Padding: types.PadLeft, FillChar: '0', Required: true}
	fixed := &types.Layout{Fields: []types.FieldSpec{regime}}

	got, err := Encode("767", regime, fixed)
	require.NoError(t, err)
	assert.Equal(t, "767", got)

	got, err = Encode("78", regime, fixed)
	require.NoError(t, err)
	assert.Equal(t, "078", got)

	delimited := &types.Layout{Separator: ";", Fields: []types.FieldSpec{regime}}
	got, err = Encode("78", regime, delimited)
	require.NoError(t, err)
	assert.Equal(t, "78", got)
}

func TestNumericKindsFormatAlike(t *testing.T) {
	amount := types.FieldSpec{Name: "amount", Type: types.FieldDecimalComma, Decimals: 2}
	count := types.FieldSpec{Name: "count", Type: types.FieldInteger}

	tests := []struct {
		name       string
		value      any
		wantAmount string
		wantCount  string
	}{
		{"int", int(5), "5,00", "5"},
		{"int8", int8(-5), "-5,00", "-5"},
		{"int16", int16(5), "5,00", "5"},
		{"int32", int32(5), "5,00", "5"},
		{"int64", int64(5), "5,00", "5"},
		{"uint", uint(5), "5,00", "5"},
		{"uint8", uint8(5), "5,00", "5"},
		{"uint16", uint16(5), "5,00", "5"},
		{"uint32", uint32(5), "5,00", "5"},
		{"uint64 max", uint64(18446744073709551615), "18446744073709551615,00", "18446744073709551615"},
		{"float32", float32(5.5), "5,50", "5"},
		{"float64", -5.75, "-5,75", "-5"},
		{"decimal", decimal.RequireFromString("5.125"), "5,13", "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.value, amount, types.CommaDecimal)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, got)

			got, err = Format(tt.value, count, types.CommaDecimal)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, got)
		})
	}

	_, err := Format(struct{}{}, amount, types.CommaDecimal)
	assert.Error(t, err)
	_, err = Format(true, count, types.CommaDecimal)
	assert.Error(t, err)
}
