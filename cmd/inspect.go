// =============================================================================
// SICORE Export - Inspect Command
// =============================================================================
//
// This file defines the 'inspect' command. It decodes an existing export file
// against a layout and reports every line whose width, field count or field
// values do not fit. Use it before uploading a file that was edited by hand.
//
// COMMAND USAGE:
//   sicore inspect <file> [flags]
//
// FLAGS:
//   --layout : Layout kind or name. Guessed from the file name when omitted.
//   --fields : Print the decoded fields of every line
//
// EXIT STATUS:
//   Non-zero when any line has a problem.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sicore-export/internal/layout"
	"github.com/ginjaninja78/sicore-export/internal/lineparser"
	"github.com/ginjaninja78/sicore-export/internal/types"
)

var (
	inspectLayout string
	inspectFields bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Check an export file against its layout",
	Long: `The inspect command reads an export file back and checks each line:
  - Fixed-width lines must match the layout width exactly
  - Delimited lines must carry one value per layout field
  - Amounts, dates and tax IDs must decode

The layout is taken from --layout, or from the file name when it follows
the <prefix>_<layout>_<YYYYMMDD>.txt convention.`,

	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectLayout, "layout", "", "Layout kind or name (default: from the file name)")
	inspectCmd.Flags().BoolVar(&inspectFields, "fields", false, "Print the decoded fields of every line")
}

func runInspect(cmd *cobra.Command, path string) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	var l *types.Layout
	if inspectLayout != "" {
		l, err = findLayout(a.layouts, inspectLayout)
	} else {
		l, err = layoutForFile(a.layouts, path)
	}
	if err != nil {
		return err
	}

	data, err := lineparser.ParseFile(path, l)
	if err != nil {
		return err
	}
	a.logger.Debug("export decoded", "file", path, "layout", l.Name, "lines", len(data.Records))

	printInspection(cmd.OutOrStdout(), data, inspectFields)

	if n := data.InvalidCount(); n > 0 {
		return fmt.Errorf("%d of %d lines have problems", n, len(data.Records))
	}
	return nil
}

// findLayout resolves a layout by kind ("retention") or by name ("retenciones").
func findLayout(registry *layout.Registry, name string) (*types.Layout, error) {
	if kind, err := types.ParseKind(name); err == nil {
		return registry.Get(kind)
	}
	for _, l := range registry.All() {
		if strings.EqualFold(l.Name, name) {
			return l, nil
		}
	}
	return nil, fmt.Errorf("unknown layout %q", name)
}

// layoutForFile guesses the layout from an export file name.
func layoutForFile(registry *layout.Registry, path string) (*types.Layout, error) {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	parts := strings.Split(base, "_")
	for _, l := range registry.All() {
		name := strings.ToLower(l.Name)
		for _, part := range parts {
			if part == name || part == string(l.Kind) {
				return l, nil
			}
		}
	}
	return nil, fmt.Errorf("cannot tell the layout of %s: use --layout", filepath.Base(path))
}

// printInspection writes the per-line problems and the totals.
func printInspection(w io.Writer, data *lineparser.Data, showFields bool) {
	l := data.Layout
	fmt.Fprintf(w, "=== %s ===\n", filepath.Base(data.SourceFile))
	if l.FixedWidth() {
		fmt.Fprintf(w, "Layout:        %s (fixed width, %d characters)\n", l.Name, l.Width())
	} else {
		fmt.Fprintf(w, "Layout:        %s (separator %q, %d fields)\n", l.Name, l.Separator, len(l.Fields))
	}
	fmt.Fprintf(w, "Lines:         %d\n", len(data.Records))
	fmt.Fprintf(w, "Invalid lines: %d\n", data.InvalidCount())

	for _, spec := range l.Fields {
		if spec.Type == types.FieldDecimalComma {
			fmt.Fprintf(w, "Total %-24s %s\n", spec.Name+":", data.Sum(spec.Name).StringFixed(int32(spec.Decimals)))
		}
	}

	for i := range data.Records {
		rec := &data.Records[i]
		if showFields {
			fmt.Fprintf(w, "\nline %d:\n", rec.Line)
			for _, f := range rec.Fields {
				fmt.Fprintf(w, "  %-28s %q\n", f.Name, f.Value)
			}
		}
		for _, p := range rec.Problems {
			fmt.Fprintf(w, "  ✗ line %d: %s\n", rec.Line, p)
		}
	}
}
