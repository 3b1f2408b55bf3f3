// =============================================================================
// SICORE Export - Export Command
// =============================================================================
//
// This file defines the 'export' command, the main command of the tool. It
// selects ledger entries for one layout and period, encodes them and writes
// the upload file.
//
// COMMAND USAGE:
//   sicore export [flags]
//
// FLAGS:
//   --profile     : Start from a run profile in profiles_dir
//   --layout      : retention, perception or fuel
//   --ledger      : Path to the YAML ledger book
//   --from, --to  : Period bounds, YYYY-MM-DD (inclusive)
//   --company     : Company ID filter
//   --journal     : Journal ID filter (repeatable)
//   --partner     : Partner ID filter (repeatable)
//   --regime      : Partner regime filter: all, general, simplified
//   --concurrency : Records extracted in parallel (overrides max_concurrency)
//   --dry-run     : Count records and estimate totals without writing
//
// Flags override the values of the selected profile.
//
// PROCESSING PIPELINE:
//   1. Load configuration and layout templates
//   2. Resolve the run (profile + flags)
//   3. Load the ledger book
//   4. Query, extract and encode every matching record
//   5. Write the file, error log, archive copy and run record
//   6. Print a summary
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sicore-export/internal/config"
	"github.com/ginjaninja78/sicore-export/internal/exporter"
	"github.com/ginjaninja78/sicore-export/internal/ledger"
	"github.com/ginjaninja78/sicore-export/internal/runlog"
	"github.com/ginjaninja78/sicore-export/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// exportFlags holds the values of the export command's flags.
type exportFlags struct {
	profile     string
	layout      string
	ledger      string
	from        string
	to          string
	company     int
	journals    []int
	partners    []int
	regime      string
	concurrency int
	dryRun      bool
}

var exportOpts exportFlags

// =============================================================================
// EXPORT COMMAND DEFINITION
// =============================================================================

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Generate a SICORE upload file from the ledger",
	Long: `The export command selects the posted ledger lines of one layout kind and
period, encodes each into a record line and writes the upload file.

Records that cannot be encoded are skipped. Each one is listed in an error
log written to run_log_dir (<file>.errors.log). When no record can be
encoded no file is written and the command fails.

On success:
  - The export is written to output_dir as <prefix>_<layout>_<YYYYMMDD>.txt
  - A copy is placed in archive_dir (under YYYY/MM/DD when
    archive_timestamp_subdirs is set)
  - A run record is stored in run_log_dir`,

	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(exportCmd)

	flags := exportCmd.Flags()
	flags.StringVar(&exportOpts.profile, "profile", "", "Run profile name from profiles_dir")
	flags.StringVar(&exportOpts.layout, "layout", "", "Layout: retention, perception or fuel")
	flags.StringVar(&exportOpts.ledger, "ledger", "", "Path to the YAML ledger book")
	flags.StringVar(&exportOpts.from, "from", "", "Period start, YYYY-MM-DD")
	flags.StringVar(&exportOpts.to, "to", "", "Period end, YYYY-MM-DD (inclusive)")
	flags.IntVar(&exportOpts.company, "company", 0, "Restrict to one company ID")
	flags.IntSliceVar(&exportOpts.journals, "journal", nil, "Restrict to journal IDs")
	flags.IntSliceVar(&exportOpts.partners, "partner", nil, "Restrict to partner IDs")
	flags.StringVar(&exportOpts.regime, "regime", "", "Partner regime: all, general or simplified")
	flags.IntVar(&exportOpts.concurrency, "concurrency", 0, "Records extracted in parallel (default max_concurrency)")
	flags.BoolVar(&exportOpts.dryRun, "dry-run", false, "Count records and estimate totals without writing")
}

// =============================================================================
// MAIN EXPORT FUNCTION
// =============================================================================

// runExport orchestrates one export run.
func runExport(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := resolveRun(cmd, a.cfg)
	if err != nil {
		return err
	}

	book, err := ledger.LoadBook(run.Ledger)
	if err != nil {
		return err
	}

	options := exporter.OptionsFromConfig(a.cfg)
	if cmd.Flags().Changed("concurrency") {
		if exportOpts.concurrency < 1 {
			return fmt.Errorf("--concurrency must be at least 1")
		}
		options.Concurrency = exportOpts.concurrency
	}

	files := utils.NewFileManager(a.cfg.OutputDir, a.cfg.ArchiveDir, a.cfg.RunLogDir)
	files.UseTimestampSubdirs = a.cfg.ArchiveTimestampSubdirs
	store := runlog.NewFileStore(a.cfg.RunLogDir)
	exp := exporter.New(book, a.layouts, files, store, a.logger, options)

	a.logger.Debug("run resolved",
		"profile", run.Name,
		"layout", run.Layout,
		"ledger", run.Ledger,
		"from", run.DateFrom,
		"to", run.DateTo)

	if exportOpts.dryRun {
		preview, err := exp.Preview(cmd.Context(), run)
		if err != nil {
			return err
		}
		printPreview(out, preview)
		return nil
	}

	if err := files.EnsureDirectories(); err != nil {
		return err
	}

	result, err := exp.Export(cmd.Context(), run)
	if result != nil {
		printResult(out, result)
	}
	if errors.Is(err, exporter.ErrNothingToExport) {
		return fmt.Errorf("%w for layout %q in %s..%s", err, run.Layout, orOpen(run.DateFrom), orOpen(run.DateTo))
	}
	return err
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// resolveRun builds the run from the selected profile and the flags the
// user set explicitly.
//
// RETURNS:
//   - The run, with every default code applied.
//   - An error for an unknown profile, or when layout or ledger is missing.
func resolveRun(cmd *cobra.Command, cfg *config.MainConfig) (*config.RunConfig, error) {
	var run *config.RunConfig
	if exportOpts.profile != "" {
		profiles, err := config.LoadRunProfiles(cfg.ProfilesDir)
		if err != nil {
			return nil, err
		}
		p, ok := profiles[exportOpts.profile]
		if !ok {
			return nil, fmt.Errorf("unknown profile %q (available: %s)", exportOpts.profile, profileNames(profiles))
		}
		copied := *p
		run = &copied
	} else {
		run = config.DefaultRunConfig()
		run.Name = "manual"
	}

	changed := cmd.Flags().Changed
	if changed("layout") {
		run.Layout = exportOpts.layout
	}
	if changed("ledger") {
		run.Ledger = exportOpts.ledger
	}
	if changed("from") {
		run.DateFrom = exportOpts.from
	}
	if changed("to") {
		run.DateTo = exportOpts.to
	}
	if changed("company") {
		run.CompanyID = exportOpts.company
	}
	if changed("journal") {
		run.JournalIDs = exportOpts.journals
	}
	if changed("partner") {
		run.PartnerIDs = exportOpts.partners
	}
	if changed("regime") {
		run.PartnerRegime = exportOpts.regime
	}

	if run.Layout == "" {
		return nil, fmt.Errorf("no layout selected: use --layout or a profile")
	}
	if run.Ledger == "" {
		return nil, fmt.Errorf("no ledger selected: use --ledger or a profile")
	}
	return run, nil
}

func profileNames(profiles map[string]*config.RunConfig) string {
	if len(profiles) == 0 {
		return "none"
	}
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func orOpen(date string) string {
	if date == "" {
		return "*"
	}
	return date
}

// printPreview writes the dry-run summary.
func printPreview(w io.Writer, p *exporter.Preview) {
	fmt.Fprintln(w, "=== SICORE Export (dry run) ===")
	fmt.Fprintf(w, "Layout:            %s\n", p.Layout)
	fmt.Fprintf(w, "File name:         %s\n", p.FileName)
	fmt.Fprintf(w, "Matching records:  %d\n", p.Records)
	fmt.Fprintf(w, "Encodable lines:   %d\n", p.Lines)
	fmt.Fprintf(w, "Failed records:    %d\n", p.Failed)
	fmt.Fprintf(w, "Total withheld:    %s\n", p.TotalWithholding)
	fmt.Fprintf(w, "Total transaction: %s\n", p.TotalTransaction)
	printErrorLog(w, p.ErrorLog)
}

// printResult writes the export summary.
func printResult(w io.Writer, r *exporter.Result) {
	rec := r.Record
	fmt.Fprintln(w, "=== SICORE Export ===")
	fmt.Fprintf(w, "Run ID:            %s\n", rec.ID)
	fmt.Fprintf(w, "Layout:            %s\n", rec.Layout)
	fmt.Fprintf(w, "State:             %s\n", rec.State)
	fmt.Fprintf(w, "Records:           %d\n", rec.Attempted)
	fmt.Fprintf(w, "Lines written:     %d\n", rec.Lines)
	fmt.Fprintf(w, "Failed records:    %d\n", rec.Failed)
	fmt.Fprintf(w, "Total withheld:    %s\n", rec.TotalWithholding)
	fmt.Fprintf(w, "Total transaction: %s\n", rec.TotalTransaction)
	fmt.Fprintf(w, "Time elapsed:      %s\n", rec.Duration)
	if r.OutputPath != "" {
		fmt.Fprintf(w, "Output:            %s\n", r.OutputPath)
	}
	if r.ArchivePath != "" {
		fmt.Fprintf(w, "Archive:           %s\n", r.ArchivePath)
	}
	if r.ErrorLog != "" {
		fmt.Fprintf(w, "Error log:         %s\n", r.ErrorLog)
	}
	if r.ReportPath != "" {
		fmt.Fprintf(w, "Report:            %s\n", r.ReportPath)
	}
	printErrorLog(w, rec.ErrorLog)
}

func printErrorLog(w io.Writer, entries []string) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintln(w, "\nErrors:")
	for _, e := range entries {
		fmt.Fprintf(w, "  ✗ %s\n", e)
	}
}
