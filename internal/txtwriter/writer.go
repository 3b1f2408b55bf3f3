// =============================================================================
// SICORE Export - TXT Writer Module
// =============================================================================
//
// This module turns generated record lines into the plain-text file the tax
// authority's import tool reads.
//
// FILE FORMAT:
//   - UTF-8, no BOM
//   - One record per line, no header or trailer
//   - Lines separated by LF (default) or CRLF
//   - No separator after the last line unless TrailingNewline is set
//
// FILE NAME:
//   <prefix>_<layout>_<YYYYMMDD>.txt
//   e.g. sicore_retenciones_20250930.txt
//
// CUSTOMIZATION:
//   - Change the prefix through file_prefix in config.yaml
//   - Switch to CRLF through line_ending
//
// =============================================================================

package txtwriter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// =============================================================================
// WRITE OPTIONS
// =============================================================================

// Options controls how lines are rendered.
type Options struct {
	// LineSeparator goes between records.
	// Default: "\n"
	LineSeparator string

	// TrailingNewline also terminates the last record.
	// Default: false
	TrailingNewline bool

	// FileMode is the permission of written files.
	// Default: 0644
	FileMode os.FileMode
}

// DefaultOptions returns LF-separated output without a trailing newline.
func DefaultOptions() Options {
	return Options{
		LineSeparator: "\n",
		FileMode:      0644,
	}
}

func (o Options) normalized() Options {
	if o.LineSeparator == "" {
		o.LineSeparator = "\n"
	}
	if o.FileMode == 0 {
		o.FileMode = 0644
	}
	return o
}

// =============================================================================
// RENDERING
// =============================================================================

// Render joins the lines into the file body.
//
// PARAMETERS:
//   - lines: Fully assembled records. They must not contain line breaks.
//   - options: Separator and trailing newline settings.
//
// RETURNS:
//   - The file contents.
//   - An error if a line contains a line break, which would split a record.
func Render(lines []string, options Options) ([]byte, error) {
	options = options.normalized()

	var buffer bytes.Buffer
	for i, line := range lines {
		if strings.ContainsAny(line, "\r\n") {
			return nil, fmt.Errorf("line %d contains a line break", i+1)
		}
		if i > 0 {
			buffer.WriteString(options.LineSeparator)
		}
		buffer.WriteString(line)
	}
	if options.TrailingNewline && len(lines) > 0 {
		buffer.WriteString(options.LineSeparator)
	}
	return buffer.Bytes(), nil
}

// =============================================================================
// FILE NAMING
// =============================================================================

// FileName builds <prefix>_<layout>_<YYYYMMDD>.txt. An empty prefix is
// omitted.
func FileName(prefix, layout string, date time.Time) string {
	parts := make([]string, 0, 3)
	if p := strings.TrimSpace(prefix); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, layout, date.Format("20060102"))
	return strings.Join(parts, "_") + ".txt"
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

// WriteFile renders the lines into dir/name. The file is written to a
// temporary name first and renamed, so readers never see a partial export.
//
// RETURNS:
//   - The path of the written file.
//   - An error if rendering or writing fails.
func WriteFile(dir, name string, lines []string, options Options) (string, error) {
	options = options.normalized()

	data, err := Render(lines, options)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Chmod(tmpPath, options.FileMode); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to set output file mode: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move output file into place: %w", err)
	}
	return path, nil
}
