// =============================================================================
// SICORE Export - Runs Command
// =============================================================================
//
// This file defines the 'runs' command, which lists the stored run records
// or shows one of them with its error log.
//
// COMMAND USAGE:
//   sicore runs            # newest first
//   sicore runs <id>       # one run in detail
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sicore-export/internal/runlog"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [id]",
	Short: "List previous export runs",
	Args:  cobra.MaximumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return runRuns(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Show at most this many runs (0 for all)")
}

func runRuns(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	store := runlog.NewFileStore(a.cfg.RunLogDir)
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		rec, err := store.Get(cmd.Context(), args[0])
		if errors.Is(err, runlog.ErrNotFound) {
			return fmt.Errorf("no run with id %q", args[0])
		}
		if err != nil {
			return err
		}
		printRun(out, rec)
		return nil
	}

	records, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	if runsLimit > 0 && len(records) > runsLimit {
		records = records[:runsLimit]
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tLAYOUT\tPERIOD\tSTATE\tLINES\tFAILED\tWITHHELD")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s..%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Layout,
			orOpen(r.DateFrom), orOpen(r.DateTo), r.State, r.Lines, r.Failed, r.TotalWithholding)
	}
	return tw.Flush()
}

func printRun(w io.Writer, r *runlog.Record) {
	fmt.Fprintf(w, "Run ID:            %s\n", r.ID)
	fmt.Fprintf(w, "Created:           %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	if r.Profile != "" {
		fmt.Fprintf(w, "Profile:           %s\n", r.Profile)
	}
	fmt.Fprintf(w, "Layout:            %s\n", r.Layout)
	fmt.Fprintf(w, "Company:           %s %s\n", r.Company, r.CompanyTaxID)
	fmt.Fprintf(w, "Period:            %s..%s\n", orOpen(r.DateFrom), orOpen(r.DateTo))
	fmt.Fprintf(w, "State:             %s\n", r.State)
	fmt.Fprintf(w, "Records:           %d\n", r.Attempted)
	fmt.Fprintf(w, "Lines written:     %d\n", r.Lines)
	fmt.Fprintf(w, "Failed records:    %d\n", r.Failed)
	fmt.Fprintf(w, "Total withheld:    %s\n", r.TotalWithholding)
	fmt.Fprintf(w, "Total transaction: %s\n", r.TotalTransaction)
	if r.OutputPath != "" {
		fmt.Fprintf(w, "Output:            %s\n", r.OutputPath)
	}
	printErrorLog(w, r.ErrorLog)
}
