package lineparser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/sicore-export/internal/generator"
	"github.com/ginjaninja78/sicore-export/internal/layout"
	"github.com/ginjaninja78/sicore-export/internal/types"
)

const fuelLine = "C;BARALE S.A. - 306;30543035064;5;001;2300041130;27092025;TOSTADERO MANICOP S.R.L.;30707753303;3;44680,51"

func retentionLine(t *testing.T) string {
	t.Helper()
	date := time.Date(2025, 9, 27, 0, 0, 0, 0, time.UTC)
	values := types.RawValues{
		layout.FieldDocumentCode:        "01",
		layout.FieldDocumentDate:        date,
		layout.FieldDocumentNumber:      "000300001234",
		layout.FieldDocumentAmount:      decimal.RequireFromString("121000"),
		layout.FieldTaxCode:             "217",
		layout.FieldRegimeCode:          "767",
		layout.FieldOperationCode:       "1",
		layout.FieldTaxBase:             decimal.RequireFromString("100000"),
		layout.FieldWithholdingDate:     date,
		layout.FieldConditionCode:       "01",
		layout.FieldSuspendedSubjects:   "0",
		layout.FieldWithholdingAmount:   decimal.RequireFromString("1500.5"),
		layout.FieldExclusionPercentage: "000000",
		layout.FieldValidityEndDate:     date,
		layout.FieldSubjectDocumentType: "80",
		layout.FieldSubjectDocumentNum:  "30543035064",
		layout.FieldOriginalCertificate: "00000000000000",
		layout.FieldOrderingPartyName:   "BARALE S.A.",
		layout.FieldSubjectCountryTaxID: "30543035064",
		layout.FieldOrderingPartyTaxID:  "30543035064",
	}
	line, err := generator.AssembleLine(values, layout.Retention())
	require.NoError(t, err)
	return line
}

func TestParseDelimited(t *testing.T) {
	data, err := Parse(strings.NewReader(fuelLine+"\n"), layout.Fuel())
	require.NoError(t, err)

	require.Len(t, data.Records, 1)
	rec := data.Records[0]
	assert.True(t, rec.Valid(), rec.Problems)
	assert.Equal(t, 1, rec.Line)
	assert.Len(t, rec.Fields, 11)
	assert.Equal(t, "BARALE S.A. - 306", rec.Value(layout.FieldFuelProviderName))
	assert.Equal(t, "30707753303", rec.Value(layout.FieldFuelClientTaxID))
	assert.True(t, decimal.RequireFromString("44680.51").Equal(data.Sum(layout.FieldFuelAmount)))
}

func TestParseDelimitedProblems(t *testing.T) {
	badCUIT := strings.Replace(fuelLine, "30543035064", "30543035065", 1)
	short := "C;X;30543035064"
	input := strings.Join([]string{fuelLine, badCUIT, "", short}, "\r\n")

	data, err := Parse(strings.NewReader(input), layout.Fuel())
	require.NoError(t, err)
	require.Len(t, data.Records, 3)

	assert.True(t, data.Records[0].Valid())

	assert.Equal(t, 2, data.Records[1].Line)
	require.Len(t, data.Records[1].Problems, 1)
	assert.Contains(t, data.Records[1].Problems[0], "field 'cuit_proveedor'")

	assert.Equal(t, 4, data.Records[2].Line)
	assert.Contains(t, data.Records[2].Problems[0], "3 fields")
	assert.Len(t, data.Records[2].Fields, 3)

	assert.Equal(t, 2, data.InvalidCount())
	assert.True(t, decimal.RequireFromString("44680.51").Equal(data.Sum(layout.FieldFuelAmount)), "only valid lines count")
}

func TestParseFixedWidthRoundTrip(t *testing.T) {
	line := retentionLine(t)
	require.Len(t, line, layout.RetentionWidth)

	data, err := Parse(strings.NewReader(line+"\n"+line), layout.Retention())
	require.NoError(t, err)
	require.Len(t, data.Records, 2)

	rec := data.Records[0]
	assert.True(t, rec.Valid(), rec.Problems)
	assert.Len(t, rec.Fields, 20)

	tests := map[string]string{
		layout.FieldDocumentCode:       "1",
		layout.FieldDocumentDate:       "27/09/2025",
		layout.FieldDocumentAmount:     "121000,00",
		layout.FieldRegimeCode:         "767",
		layout.FieldWithholdingAmount:  "1500,50",
		layout.FieldOrderingPartyName:  "BARALE S.A.",
		layout.FieldOrderingPartyTaxID: "30543035064",
	}
	for name, want := range tests {
		assert.Equal(t, want, rec.Value(name), name)
	}
	assert.Equal(t, "0000000121000,00", rec.Fields[3].Raw)

	assert.True(t, decimal.RequireFromString("3001").Equal(data.Sum(layout.FieldWithholdingAmount)))
}

func TestParseFixedWidthWrongLength(t *testing.T) {
	line := retentionLine(t)

	data, err := Parse(strings.NewReader(line[:150]), layout.Retention())
	require.NoError(t, err)
	require.Len(t, data.Records, 1)

	rec := data.Records[0]
	require.NotEmpty(t, rec.Problems)
	assert.Contains(t, rec.Problems[0], "line is 150 characters")
	assert.Less(t, len(rec.Fields), 20)
}

func TestParseFixedWidthBadDate(t *testing.T) {
	line := []rune(retentionLine(t))
	copy(line[2:12], []rune("31/02/2025"))

	data, err := Parse(strings.NewReader(string(line)), layout.Retention())
	require.NoError(t, err)
	require.Len(t, data.Records[0].Problems, 1)
	assert.Contains(t, data.Records[0].Problems[0], "fecha_emision_comprobante")
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sicore_combustibles_20250930.txt")
	require.NoError(t, os.WriteFile(path, []byte(fuelLine), 0644))

	data, err := ParseFile(path, layout.Fuel())
	require.NoError(t, err)
	assert.Equal(t, path, data.SourceFile)
	assert.Len(t, data.Records, 1)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.txt"), layout.Fuel())
	assert.Error(t, err)

	_, err = Parse(strings.NewReader(fuelLine), &types.Layout{Name: "empty"})
	assert.Error(t, err)
}
