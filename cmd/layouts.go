// =============================================================================
// SICORE Export - Layouts Command
// =============================================================================
//
// This file defines the 'layouts' command. It lists the active layouts (the
// built-in ones, or the XLSX templates from layouts_dir that replace them)
// and can write an editable XLSX template.
//
// COMMAND USAGE:
//   sicore layouts [kind] [flags]
//
// FLAGS:
//   --template : Write the active layouts to an XLSX template at this path
//
// CUSTOMIZATION:
//   Edit the written template and drop it into layouts_dir. Only field
//   attributes can change: the record width of fixed-width layouts is fixed.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sicore-export/internal/types"
	"github.com/ginjaninja78/sicore-export/internal/xlsxparser"
)

var layoutsTemplate string

var layoutsCmd = &cobra.Command{
	Use:   "layouts [kind]",
	Short: "List the record layouts or write an XLSX template",
	Long: `The layouts command prints the active record layouts. With a kind
(retention, perception or fuel) it prints that layout's fields with their
positions, types and padding.

With --template it writes the layouts to an XLSX workbook, one sheet per
kind, that can be edited and placed in layouts_dir.`,

	Args: cobra.MaximumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return runLayouts(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(layoutsCmd)

	layoutsCmd.Flags().StringVar(&layoutsTemplate, "template", "", "Write an XLSX layout template to this path")
}

func runLayouts(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	selected := a.layouts.All()
	if len(args) == 1 {
		l, err := findLayout(a.layouts, args[0])
		if err != nil {
			return err
		}
		selected = []*types.Layout{l}
	}

	out := cmd.OutOrStdout()
	if layoutsTemplate != "" {
		if err := xlsxparser.WriteTemplate(layoutsTemplate, selected...); err != nil {
			return err
		}
		fmt.Fprintf(out, "Template written to %s (%d sheet(s))\n", layoutsTemplate, len(selected))
		return nil
	}

	if len(args) == 1 {
		printFields(out, selected[0])
		return nil
	}
	printLayouts(out, selected)
	return nil
}

func printLayouts(w io.Writer, layouts []*types.Layout) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME\tFIELDS\tFORMAT")
	for _, l := range layouts {
		format := fmt.Sprintf("delimited %q", l.Separator)
		if l.FixedWidth() {
			format = fmt.Sprintf("fixed width %d", l.Width())
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", l.Kind, l.Name, len(l.Fields), format)
	}
	tw.Flush()
}

// printFields writes one row per field. Positions are shown for fixed-width
// layouts only.
func printFields(w io.Writer, l *types.Layout) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tFIELD\tTYPE\tLENGTH\tSTART\tEND\tPADDING\tFILL\tREQUIRED\tFORMAT")
	offset := 0
	for i, f := range l.Fields {
		length, start, end, padding, fill := "-", "-", "-", "-", "-"
		if f.Length > 0 {
			length = fmt.Sprint(f.Length)
			padding = f.Padding.String()
			fill = fmt.Sprintf("%q", f.Fill())
			if l.FixedWidth() {
				start, end = fmt.Sprint(offset+1), fmt.Sprint(offset+f.Length)
			}
			offset += f.Length
		}
		format := f.DateFormat
		if f.Type == types.FieldDecimalComma {
			format = fmt.Sprintf("%d decimals", f.Decimals)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
			i+1, f.Name, f.Type, length, start, end, padding, fill, f.Required, format)
	}
	tw.Flush()
}
