// =============================================================================
// SICORE Export - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// ('export', 'inspect', 'layouts', 'runs', 'version') is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (sicore)
//   ├── exportCmd  (sicore export)
//   ├── inspectCmd (sicore inspect)
//   ├── layoutsCmd (sicore layouts)
//   ├── runsCmd    (sicore runs)
//   └── versionCmd (sicore version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the main configuration
//   3. Setting up logging (log/slog, text handler)
//   4. Loading XLSX layout templates over the built-in layouts
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sicore-export/internal/config"
	"github.com/ginjaninja78/sicore-export/internal/layout"
	"github.com/ginjaninja78/sicore-export/internal/xlsxparser"
	"github.com/ginjaninja78/sicore-export/pkg/utils"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose forces debug logging regardless of log_level.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sicore",
	Short: "SICORE Export - Build withholding, perception and fuel files for upload",
	Long: `SICORE Export turns posted ledger entries into the text files the tax
authority's SICORE application imports.

Three record layouts are supported:
  - retention  : fixed-width withholding certificates (197 characters)
  - perception : fixed-width perceptions (145 characters)
  - fuel       : ';'-delimited fuel purchase records

Records that fail validation are skipped and listed in an error log; the
rest of the batch is still written.

Example Usage:
  sicore export --layout retention --ledger ledger.yaml --from 2025-09-01 --to 2025-09-30
  sicore export --profile fuel-monthly --dry-run
  sicore inspect output/sicore_percepciones_20250930.txt
  sicore layouts --template layouts/sicore.xlsx`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
// An interrupt cancels the running command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	// Persistent flags are available to this command and all subcommands.
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// APPLICATION SETUP
// =============================================================================

// app bundles what the working commands share.
type app struct {
	cfg     *config.MainConfig
	logger  *slog.Logger
	layouts *layout.Registry

	closeLog func() error
}

// Close releases the log file, if any.
func (a *app) Close() error {
	if a.closeLog == nil {
		return nil
	}
	return a.closeLog()
}

// newApp loads the configuration, builds the logger and the layout registry.
//
// RETURNS:
//   - The app. Callers must Close it.
//   - An error if the configuration, log file or a layout template is bad.
//
// CUSTOMIZATION:
//   - Templates in layouts_dir replace the built-in layout of the same kind.
//     Files are applied in name order, so a later file wins.
func newApp(stderr io.Writer) (*app, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	logger, closeLog, err := newLogger(cfg, verbose, stderr)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, layouts: layout.NewRegistry(), closeLog: closeLog}

	templates, err := utils.DiscoverFiles(cfg.LayoutsDir, ".xlsx")
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to discover layout templates: %w", err)
	}
	registered, err := xlsxparser.RegisterTemplates(a.layouts, templates)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load layout templates: %w", err)
	}
	for _, l := range registered {
		logger.Debug("layout template loaded", "layout", l.Name, "kind", l.Kind, "fields", len(l.Fields))
	}

	return a, nil
}

// newLogger builds a text slog logger on stderr, mirrored to log_file when set.
func newLogger(cfg *config.MainConfig, debug bool, stderr io.Writer) (*slog.Logger, func() error, error) {
	level := parseLevel(cfg.LogLevel)
	if debug {
		level = slog.LevelDebug
	}

	out := stderr
	closeLog := func() error { return nil }
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(stderr, f)
		closeLog = f.Close
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closeLog, nil
}

// parseLevel maps a validated log_level onto a slog level.
func parseLevel(value string) slog.Level {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
