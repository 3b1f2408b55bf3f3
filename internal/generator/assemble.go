package generator

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/sicore-export/internal/codec"
	"github.com/ginjaninja78/sicore-export/internal/types"
)

// RecordError reports every field of one record that failed to format.
type RecordError struct {
	// Index is the 1-based position of the record in the batch. Zero when
	// the line was assembled outside a batch.
	Index int

	// Record is the display name of the source record.
	Record string

	// Errs holds one entry per failing field, in layout order.
	Errs []*codec.FieldFormatError
}

// Error lists every failing field.
func (e *RecordError) Error() string {
	parts := make([]string, len(e.Errs))
	for i, fe := range e.Errs {
		parts[i] = fe.Error()
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}

// AssembleLine formats every field of the layout in order and joins them with
// the layout separator. A record with any failing field yields no line and a
// *RecordError listing all of them.
func AssembleLine(values types.RawValues, layout *types.Layout) (string, error) {
	parts := make([]string, 0, len(layout.Fields))
	var failed []*codec.FieldFormatError

	for _, spec := range layout.Fields {
		out, err := codec.Encode(values[spec.Name], spec, layout)
		if err != nil {
			var fe *codec.FieldFormatError
			if !errors.As(err, &fe) {
				fe = &codec.FieldFormatError{Field: spec.Name, Reason: err.Error()}
			}
			failed = append(failed, fe)
			continue
		}
		parts = append(parts, out)
	}

	if len(failed) > 0 {
		return "", &RecordError{Errs: failed}
	}

	line := strings.Join(parts, layout.Separator)
	// Widths count characters, as padding does.
	if n := utf8.RuneCountInString(line); layout.FixedWidth() && layout.RecordWidth > 0 && n != layout.RecordWidth {
		// Only reachable with a layout that skipped validation.
		return "", fmt.Errorf("assembled line is %d characters, layout %q expects %d", n, layout.Name, layout.RecordWidth)
	}
	return line, nil
}
