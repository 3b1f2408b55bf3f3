// =============================================================================
// SICORE Export - Export File Parser
// =============================================================================
//
// This module reads an existing export file back into per-field values so a
// file can be checked before it is uploaded. It understands both layout
// styles:
//   - Fixed-width: fields are cut at cumulative offsets of their lengths
//   - Delimited:   fields are split on the layout separator (encoding/csv)
//
// CHECKS (per line):
//   - Fixed-width line length against the layout width
//   - Delimited field count against the layout field count
//   - Decimal, date and tax ID fields must decode
//
// Problems never stop parsing: every line is decoded and its problems listed.
//
// =============================================================================

package lineparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/sicore-export/internal/codec"
	"github.com/ginjaninja78/sicore-export/internal/types"
)

// =============================================================================
// PARSED DATA STRUCTURE
// =============================================================================

// Field is one decoded field of a line.
type Field struct {
	// Name is the FieldSpec name.
	Name string

	// Raw is the text exactly as it appears in the file.
	Raw string

	// Value is Raw without its padding.
	Value string
}

// Record is one parsed line.
type Record struct {
	// Line is the 1-based line number in the file.
	Line int

	// Fields are the decoded fields in layout order. Fields missing from a
	// short line are absent.
	Fields []Field

	// Problems lists everything wrong with the line.
	Problems []string
}

// Value returns the unpadded value of a field, or "" when absent.
func (r *Record) Value(name string) string {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Valid reports whether the line has no problems.
func (r *Record) Valid() bool {
	return len(r.Problems) == 0
}

// Data is a parsed export file.
type Data struct {
	// Layout is the layout the file was decoded against.
	Layout *types.Layout

	// SourceFile is the path of the file, when parsed from disk.
	SourceFile string

	// Records holds every non-empty line.
	Records []Record
}

// InvalidCount is the number of lines with problems.
func (d *Data) InvalidCount() int {
	n := 0
	for i := range d.Records {
		if !d.Records[i].Valid() {
			n++
		}
	}
	return n
}

// Sum adds up a decimal field over the valid lines.
func (d *Data) Sum(field string) decimal.Decimal {
	spec, ok := d.Layout.Field(field)
	total := decimal.Zero
	if !ok || spec.Type != types.FieldDecimalComma {
		return total
	}
	for i := range d.Records {
		r := &d.Records[i]
		if !r.Valid() {
			continue
		}
		if v, err := codec.ParseDecimal(r.Value(field), spec.Decimals, d.Layout.Decimals); err == nil {
			total = total.Add(v)
		}
	}
	return total
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseFile reads an export file from disk.
func ParseFile(filePath string, layout *types.Layout) (*Data, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := Parse(file, layout)
	if err != nil {
		return nil, err
	}
	data.SourceFile = filePath
	return data, nil
}

// Parse decodes an export from r.
//
// RETURNS:
//   - The parsed data. Line problems are reported inside it.
//   - An error only when r cannot be read.
func Parse(r io.Reader, layout *types.Layout) (*Data, error) {
	if layout == nil || len(layout.Fields) == 0 {
		return nil, fmt.Errorf("layout has no fields")
	}
	if layout.FixedWidth() {
		return parseFixed(r, layout)
	}
	return parseDelimited(r, layout)
}

// parseFixed cuts each line at the cumulative field offsets.
func parseFixed(r io.Reader, layout *types.Layout) (*Data, error) {
	data := &Data{Layout: layout}
	width := layout.Width()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		rec := Record{Line: lineNo}
		if !utf8.ValidString(line) {
			rec.Problems = append(rec.Problems, "line is not valid UTF-8")
		}
		runes := []rune(line)
		if len(runes) != width {
			rec.Problems = append(rec.Problems, fmt.Sprintf("line is %d characters, layout %q expects %d", len(runes), layout.Name, width))
		}

		offset := 0
		for _, spec := range layout.Fields {
			end := offset + spec.Length
			if end > len(runes) {
				break
			}
			raw := string(runes[offset:end])
			rec.Fields = append(rec.Fields, decodeField(&rec, spec, raw, layout))
			offset = end
		}
		data.Records = append(data.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	return data, nil
}

// parseDelimited splits each line on the layout separator.
func parseDelimited(r io.Reader, layout *types.Layout) (*Data, error) {
	data := &Data{Layout: layout}

	reader := csv.NewReader(r)
	sep, _ := utf8.DecodeRuneInString(layout.Separator)
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				data.Records = append(data.Records, Record{
					Line:     parseErr.Line,
					Problems: []string{parseErr.Err.Error()},
				})
				continue
			}
			return nil, fmt.Errorf("failed to read export: %w", err)
		}

		line, _ := reader.FieldPos(0)
		rec := Record{Line: line}
		if len(row) != len(layout.Fields) {
			rec.Problems = append(rec.Problems, fmt.Sprintf("line has %d fields, layout %q expects %d", len(row), layout.Name, len(layout.Fields)))
		}
		for i, spec := range layout.Fields {
			if i >= len(row) {
				break
			}
			rec.Fields = append(rec.Fields, decodeField(&rec, spec, row[i], layout))
		}
		data.Records = append(data.Records, rec)
	}
	return data, nil
}

// =============================================================================
// FIELD DECODING
// =============================================================================

// decodeField strips padding and checks the value against the field type,
// appending any problem to rec.
func decodeField(rec *Record, spec types.FieldSpec, raw string, layout *types.Layout) Field {
	value := raw
	if layout.FixedWidth() {
		value = unpad(raw, spec)
	}
	f := Field{Name: spec.Name, Raw: raw, Value: value}

	if strings.TrimSpace(value) == "" {
		if spec.Required && !layout.FixedWidth() {
			rec.Problems = append(rec.Problems, fmt.Sprintf("field '%s' is empty", spec.Name))
		}
		return f
	}

	var err error
	switch spec.Type {
	case types.FieldDecimalComma:
		_, err = codec.ParseDecimal(value, spec.Decimals, layout.Decimals)
	case types.FieldDate:
		_, err = codec.ParseDate(value, spec.DateFormat)
	case types.FieldNationalTaxID:
		_, err = codec.ValidateCUIT(value)
	case types.FieldInteger:
		_, err = decimal.NewFromString(value)
	}
	if err != nil {
		rec.Problems = append(rec.Problems, fmt.Sprintf("field '%s': %v", spec.Name, err))
	}
	return f
}

// unpad removes the fill characters ApplyPadding added.
func unpad(raw string, spec types.FieldSpec) string {
	fill := string(spec.Fill())
	if spec.Padding == types.PadLeft {
		out := strings.TrimLeft(raw, fill)
		// An all-zero numeric field keeps one zero.
		if out == "" && fill == "0" && raw != "" {
			return "0"
		}
		return out
	}
	return strings.TrimRight(raw, fill)
}
