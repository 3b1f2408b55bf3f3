// =============================================================================
// SICORE Export - XLSX Layout Template Parser
// =============================================================================
//
// This module reads layout templates from XLSX files. A template replaces the
// field list of a built-in layout, so field formats can be adjusted without a
// new release. The layout name, separator, decimal encoding and documented
// record width always come from the built-in layout of the same kind: a
// template that changes the total width is rejected.
//
// TEMPLATE STRUCTURE (Expected Columns):
//   One row per field, in record order. Column positions are configurable via
//   the TemplateColumns struct.
//
//   | A: Field                  | B: Type       | C: Length | D: Start | E: End | F: Padding | G: Fill | H: Required | I: Decimals | J: Date Format |
//   |---------------------------|---------------|-----------|----------|--------|------------|---------|-------------|-------------|----------------|
//   | codigo_comprobante        | text          | 2         | 1        | 2      | left       | 0       | yes         |             |                |
//   | fecha_emision_comprobante | date          | 10        | 3        | 12     | right      |         | yes         |             | DD/MM/YYYY     |
//   | importe_comprobante       | decimal_comma | 16        | 29       | 44     | left       | 0       | yes         | 2           |                |
//
// POSITIONS:
//   Length is authoritative. Start and End are optional; when present they
//   must match the cumulative offsets of the lengths above them, so a template
//   copied from the published record design is checked against itself. When
//   Length is blank it is derived from End - Start + 1.
//
// MULTI-SHEET TEMPLATES:
//   Each sheet is named after a layout kind (retention, perception, fuel) or
//   layout name (retenciones, percepciones, combustibles). Sheets starting
//   with "_" are skipped.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/sicore-export/internal/layout"
	"github.com/ginjaninja78/sicore-export/internal/types"
)

// =============================================================================
// TEMPLATE COLUMN CONFIGURATION
// =============================================================================

// TemplateColumns defines which columns in the XLSX template contain which data.
// Column indices are 0-based (A=0, B=1, C=2, etc.)
type TemplateColumns struct {
	NameColumn       int
	TypeColumn       int
	LengthColumn     int
	StartColumn      int
	EndColumn        int
	PaddingColumn    int
	FillColumn       int
	RequiredColumn   int
	DecimalsColumn   int
	DateFormatColumn int

	// HeaderRow is the row number containing column headers (0-based).
	// Default: 0 (Row 1)
	HeaderRow int

	// DataStartRow is the row number where data begins (0-based).
	// Default: 1 (Row 2)
	DataStartRow int
}

// DefaultTemplateColumns returns the default column configuration.
func DefaultTemplateColumns() TemplateColumns {
	return TemplateColumns{
		NameColumn:       0, // Column A
		TypeColumn:       1, // Column B
		LengthColumn:     2, // Column C
		StartColumn:      3, // Column D
		EndColumn:        4, // Column E
		PaddingColumn:    5, // Column F
		FillColumn:       6, // Column G
		RequiredColumn:   7, // Column H
		DecimalsColumn:   8, // Column I
		DateFormatColumn: 9, // Column J
		HeaderRow:        0, // Row 1
		DataStartRow:     1, // Row 2
	}
}

// Headers returns the header row the default columns expect.
func Headers() []string {
	return []string{"Field", "Type", "Length", "Start", "End", "Padding", "Fill", "Required", "Decimals", "Date Format"}
}

// =============================================================================
// PARSED ROW
// =============================================================================

// fieldRow is one template row: the field spec plus its declared positions.
type fieldRow struct {
	spec  types.FieldSpec
	start int
	end   int
	row   int
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads the first sheet of a template as a replacement for base.
//
// PARAMETERS:
//   - templatePath: The path to the XLSX template file.
//   - base: The built-in layout the template replaces.
//
// RETURNS:
//   - A validated layout.
//   - An error if the file cannot be read, a row is malformed, a declared
//     position disagrees with the lengths, or the layout fails validation.
func Parse(templatePath string, base *types.Layout) (*types.Layout, error) {
	return ParseWithConfig(templatePath, base, DefaultTemplateColumns())
}

// ParseWithConfig reads the first sheet using a custom column configuration.
func ParseWithConfig(templatePath string, base *types.Layout, columns TemplateColumns) (*types.Layout, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("template file has no sheets")
	}

	l, err := parseSheet(f, sheetName, base, columns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", templatePath, err)
	}
	return l, nil
}

// ParseMultiSheet reads every sheet of a template whose name resolves to a
// layout in the registry.
//
// RETURNS:
//   - The parsed layouts, keyed by kind.
//   - An error for an unknown sheet name or any invalid sheet.
func ParseMultiSheet(templatePath string, registry *layout.Registry) (map[types.Kind]*types.Layout, error) {
	return ParseMultiSheetWithConfig(templatePath, registry, DefaultTemplateColumns())
}

// ParseMultiSheetWithConfig parses a multi-sheet template with custom configuration.
func ParseMultiSheetWithConfig(templatePath string, registry *layout.Registry, columns TemplateColumns) (map[types.Kind]*types.Layout, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	layouts := make(map[types.Kind]*types.Layout)

	for _, sheetName := range f.GetSheetList() {
		if strings.HasPrefix(sheetName, "_") {
			continue
		}

		base, err := resolveBase(sheetName, registry)
		if err != nil {
			return nil, fmt.Errorf("sheet '%s': %w", sheetName, err)
		}
		if _, dup := layouts[base.Kind]; dup {
			return nil, fmt.Errorf("sheet '%s': layout %q defined twice", sheetName, base.Kind)
		}

		l, err := parseSheet(f, sheetName, base, columns)
		if err != nil {
			return nil, fmt.Errorf("error parsing sheet '%s': %w", sheetName, err)
		}
		layouts[l.Kind] = l
	}

	return layouts, nil
}

// resolveBase finds the registered layout a sheet name refers to.
func resolveBase(sheetName string, registry *layout.Registry) (*types.Layout, error) {
	if kind, err := types.ParseKind(sheetName); err == nil {
		return registry.Get(kind)
	}
	for _, l := range registry.All() {
		if strings.EqualFold(l.Name, strings.TrimSpace(sheetName)) {
			return l, nil
		}
	}
	return nil, fmt.Errorf("no layout named %q", sheetName)
}

// parseSheet parses a single sheet from an open XLSX file.
func parseSheet(f *excelize.File, sheetName string, base *types.Layout, columns TemplateColumns) (*types.Layout, error) {
	if base == nil {
		return nil, fmt.Errorf("no base layout for sheet '%s'", sheetName)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	var parsed []fieldRow
	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]

		if len(row) == 0 || isRowEmpty(row) {
			continue
		}

		fr, err := parseRow(row, columns, i)
		if err != nil {
			return nil, fmt.Errorf("error parsing row %d: %w", i+1, err)
		}
		parsed = append(parsed, fr)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("sheet '%s' defines no fields", sheetName)
	}

	out := &types.Layout{
		Name:        base.Name,
		Kind:        base.Kind,
		Separator:   base.Separator,
		Decimals:    base.Decimals,
		RecordWidth: base.RecordWidth,
	}
	for _, fr := range parsed {
		out.Fields = append(out.Fields, fr.spec)
	}

	if out.FixedWidth() {
		if err := checkPositions(parsed); err != nil {
			return nil, err
		}
	}
	if err := layout.Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// parseRow extracts a field spec and its declared positions from one row.
func parseRow(row []string, columns TemplateColumns, rowIndex int) (fieldRow, error) {
	fr := fieldRow{row: rowIndex + 1}

	getCell := func(index int) string {
		if index >= 0 && index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}
	getInt := func(index int, what string) (int, error) {
		s := getCell(index)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%s %q is not a non-negative number", what, s)
		}
		return n, nil
	}

	spec := types.FieldSpec{Name: getCell(columns.NameColumn)}
	if spec.Name == "" {
		return fr, fmt.Errorf("field name is empty")
	}

	var err error
	if spec.Type, err = types.ParseFieldType(getCell(columns.TypeColumn)); err != nil {
		return fr, fmt.Errorf("field '%s': %w", spec.Name, err)
	}
	if spec.Padding, err = types.ParsePaddingSide(getCell(columns.PaddingColumn)); err != nil {
		return fr, fmt.Errorf("field '%s': %w", spec.Name, err)
	}
	if spec.Length, err = getInt(columns.LengthColumn, "length"); err != nil {
		return fr, fmt.Errorf("field '%s': %w", spec.Name, err)
	}
	if fr.start, err = getInt(columns.StartColumn, "start"); err != nil {
		return fr, fmt.Errorf("field '%s': %w", spec.Name, err)
	}
	if fr.end, err = getInt(columns.EndColumn, "end"); err != nil {
		return fr, fmt.Errorf("field '%s': %w", spec.Name, err)
	}
	if spec.Decimals, err = getInt(columns.DecimalsColumn, "decimals"); err != nil {
		return fr, fmt.Errorf("field '%s': %w", spec.Name, err)
	}

	if spec.Length == 0 && fr.start > 0 && fr.end >= fr.start {
		spec.Length = fr.end - fr.start + 1
	}

	if fill := getCell(columns.FillColumn); fill != "" {
		if utf8.RuneCountInString(fill) != 1 {
			return fr, fmt.Errorf("field '%s': fill %q must be one character", spec.Name, fill)
		}
		spec.FillChar, _ = utf8.DecodeRuneInString(fill)
	} else if len(row) > columns.FillColumn && columns.FillColumn >= 0 && row[columns.FillColumn] == " " {
		spec.FillChar = ' '
	}

	spec.Required = normalizeRequired(getCell(columns.RequiredColumn))
	spec.DateFormat = strings.ToUpper(getCell(columns.DateFormatColumn))
	if spec.Type == types.FieldDecimalComma && getCell(columns.DecimalsColumn) == "" {
		spec.Decimals = 2
	}

	fr.spec = spec
	return fr, nil
}

// checkPositions verifies declared 1-based start/end columns against the
// cumulative lengths.
func checkPositions(rows []fieldRow) error {
	offset := 0
	for _, fr := range rows {
		wantStart, wantEnd := offset+1, offset+fr.spec.Length
		if fr.start != 0 && fr.start != wantStart {
			return fmt.Errorf("row %d: field '%s' declares start %d, lengths put it at %d", fr.row, fr.spec.Name, fr.start, wantStart)
		}
		if fr.end != 0 && fr.end != wantEnd {
			return fmt.Errorf("row %d: field '%s' declares end %d, lengths put it at %d", fr.row, fr.spec.Name, fr.end, wantEnd)
		}
		offset = wantEnd
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// normalizeRequired maps the template's wording to a flag. Blank means
// required, matching the built-in layouts where nearly every field is.
func normalizeRequired(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "optional", "opt", "o", "no", "n", "false", "0":
		return false
	default:
		return true
	}
}

// =============================================================================
// TEMPLATE EXPORT
// =============================================================================

// WriteTemplate saves layouts as a multi-sheet template, one sheet per layout
// named after its kind, with declared positions filled in. Editing the result
// and dropping it in the layouts directory overrides the built-ins.
func WriteTemplate(path string, layouts ...*types.Layout) error {
	if len(layouts) == 0 {
		return fmt.Errorf("no layouts to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, l := range layouts {
		sheet := string(l.Kind)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return err
		}

		header := make([]any, 0, len(Headers()))
		for _, h := range Headers() {
			header = append(header, h)
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return err
		}

		offset := 0
		for j, spec := range l.Fields {
			start, end := any(""), any("")
			if l.FixedWidth() {
				start, end = offset+1, offset+spec.Length
				offset += spec.Length
			}
			fill := ""
			if spec.FillChar != 0 {
				fill = string(spec.FillChar)
			}
			required := "no"
			if spec.Required {
				required = "yes"
			}
			decimals := any("")
			if spec.Type == types.FieldDecimalComma {
				decimals = spec.Decimals
			}
			length := any("")
			if spec.Length > 0 {
				length = spec.Length
			}

			row := []any{spec.Name, spec.Type.String(), length, start, end, spec.Padding.String(), fill, required, decimals, spec.DateFormat}
			cell, _ := excelize.CoordinatesToCellName(1, j+2)
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return fmt.Errorf("sheet '%s' row %d: %w", sheet, j+2, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

// =============================================================================
// REGISTRY LOADING
// =============================================================================

// RegisterTemplates parses every template file and registers its layouts,
// replacing the built-ins of the same kind.
//
// RETURNS:
//   - The layouts that were registered, in file then sheet order.
//   - The first error; layouts registered before it stay registered.
func RegisterTemplates(registry *layout.Registry, files []string) ([]*types.Layout, error) {
	var registered []*types.Layout
	for _, file := range files {
		layouts, err := ParseMultiSheet(file, registry)
		if err != nil {
			return registered, err
		}
		for _, kind := range types.Kinds() {
			l, ok := layouts[kind]
			if !ok {
				continue
			}
			if err := registry.Register(l); err != nil {
				return registered, fmt.Errorf("%s: %w", file, err)
			}
			registered = append(registered, l)
		}
	}
	return registered, nil
}
