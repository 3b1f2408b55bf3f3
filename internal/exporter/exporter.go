// =============================================================================
// SICORE Export - Export Orchestration
// =============================================================================
//
// The exporter is the caller-facing action: it takes a run configuration and
// carries it from query to archived file.
//
// PROCESSING PIPELINE:
//   1. Resolve the layout and extractor for the requested kind
//   2. Query the record source
//   3. Refuse to continue when nothing matches (ErrNothingToExport)
//   4. Generate the batch
//   5. Refuse to write when no line succeeded (ErrEmptyOutput)
//   6. Write the export file and its error log
//   7. Archive the export and prune old archives
//   8. Persist the run record (and optional spreadsheet report)
//
// A run that reaches step 4 always leaves a run record behind, including
// runs that end in ErrEmptyOutput.
//
// =============================================================================

package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ginjaninja78/sicore-export/internal/config"
	"github.com/ginjaninja78/sicore-export/internal/extractor"
	"github.com/ginjaninja78/sicore-export/internal/generator"
	"github.com/ginjaninja78/sicore-export/internal/layout"
	"github.com/ginjaninja78/sicore-export/internal/ledger"
	"github.com/ginjaninja78/sicore-export/internal/runlog"
	"github.com/ginjaninja78/sicore-export/internal/txtwriter"
	"github.com/ginjaninja78/sicore-export/internal/types"
	"github.com/ginjaninja78/sicore-export/pkg/utils"
)

var (
	// ErrNothingToExport means the query matched no records.
	ErrNothingToExport = errors.New("no records match the selected criteria")

	// ErrEmptyOutput means records matched but none produced a line.
	ErrEmptyOutput = errors.New("no record could be exported")
)

// Reporter writes a spreadsheet summary for a stored run record.
// *runlog.FileStore implements it.
type Reporter interface {
	WriteReport(rec *runlog.Record) (string, error)
}

// Options holds the output settings of an Exporter.
type Options struct {
	// FilePrefix starts every export file name.
	FilePrefix string

	// Writer controls line separators.
	Writer txtwriter.Options

	// Concurrency bounds parallel extraction.
	Concurrency int

	// WriteReport also writes a spreadsheet report per run.
	WriteReport bool

	// ArchiveRetention prunes archived exports older than this. Zero keeps all.
	ArchiveRetention time.Duration
}

// OptionsFromConfig maps the main configuration to exporter options.
func OptionsFromConfig(cfg *config.MainConfig) Options {
	return Options{
		FilePrefix: cfg.FilePrefix,
		Writer: txtwriter.Options{
			LineSeparator:   cfg.LineSeparator(),
			TrailingNewline: cfg.TrailingNewline,
		},
		Concurrency:      cfg.MaxConcurrency,
		WriteReport:      cfg.WriteReport,
		ArchiveRetention: time.Duration(cfg.ArchiveRetentionDays) * 24 * time.Hour,
	}
}

// Exporter runs exports against one record source.
type Exporter struct {
	source  ledger.Source
	layouts *layout.Registry
	files   *utils.FileManager
	store   runlog.Store
	logger  generator.Logger
	options Options
	now     func() time.Time
}

// New creates an exporter. store may be nil, in which case no run record is
// kept. A nil logger uses slog's default.
func New(source ledger.Source, layouts *layout.Registry, files *utils.FileManager, store runlog.Store, logger generator.Logger, options Options) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	if layouts == nil {
		layouts = layout.NewRegistry()
	}
	return &Exporter{
		source:  source,
		layouts: layouts,
		files:   files,
		store:   store,
		logger:  logger,
		options: options,
		now:     time.Now,
	}
}

// Result is what a completed export produced.
type Result struct {
	Batch       *generator.BatchResult
	Record      *runlog.Record
	OutputPath  string
	ArchivePath string
	ErrorLog    string
	ReportPath  string
}

// =============================================================================
// PREPARATION
// =============================================================================

// prepared is a resolved run: its layout, extractor and matching records.
type prepared struct {
	layout    *types.Layout
	extractor extractor.Extractor
	records   []*ledger.MoveLine
}

func (e *Exporter) prepare(ctx context.Context, run *config.RunConfig) (*prepared, error) {
	if run == nil {
		return nil, fmt.Errorf("no run configuration")
	}
	kind, err := types.ParseKind(run.Layout)
	if err != nil {
		return nil, err
	}
	l, err := e.layouts.Get(kind)
	if err != nil {
		return nil, err
	}
	ex, err := extractor.New(kind)
	if err != nil {
		return nil, err
	}

	q, err := ex.Query(run)
	if err != nil {
		return nil, fmt.Errorf("invalid run %q: %w", run.Name, err)
	}
	records, err := e.source.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	e.logger.Debug("records selected", "layout", l.Name, "count", len(records))
	if len(records) == 0 {
		return nil, ErrNothingToExport
	}
	return &prepared{layout: l, extractor: ex, records: records}, nil
}

func (e *Exporter) generate(ctx context.Context, p *prepared, run *config.RunConfig) (*generator.BatchResult, error) {
	gen, err := generator.New(p.layout, p.extractor,
		generator.WithLogger(e.logger),
		generator.WithConcurrency(e.options.Concurrency),
		generator.WithLineSeparator(e.options.Writer.LineSeparator))
	if err != nil {
		return nil, err
	}
	return gen.Generate(ctx, p.records, run)
}

// =============================================================================
// PREVIEW
// =============================================================================

// Preview is the dry-run summary of an export.
type Preview struct {
	Layout           string
	FileName         string
	Records          int
	Lines            int
	Failed           int
	Outcome          generator.Outcome
	TotalWithholding string
	TotalTransaction string
	ErrorLog         []string
}

// Preview generates the batch without writing anything.
func (e *Exporter) Preview(ctx context.Context, run *config.RunConfig) (*Preview, error) {
	p, err := e.prepare(ctx, run)
	if err != nil {
		return nil, err
	}
	res, err := e.generate(ctx, p, run)
	if err != nil {
		return nil, err
	}
	return &Preview{
		Layout:           p.layout.Name,
		FileName:         txtwriter.FileName(e.options.FilePrefix, p.layout.Name, e.now()),
		Records:          res.Attempted,
		Lines:            res.LineCount(),
		Failed:           res.FailureCount(),
		Outcome:          res.Outcome,
		TotalWithholding: res.TotalWithholding.StringFixed(2),
		TotalTransaction: res.TotalTransaction.StringFixed(2),
		ErrorLog:         res.ErrorLog,
	}, nil
}

// =============================================================================
// EXPORT
// =============================================================================

// Export runs the full pipeline for one run configuration.
//
// RETURNS:
//   - The result. It is non-nil with ErrEmptyOutput so callers can show the
//     error log.
//   - ErrNothingToExport, ErrEmptyOutput, or an I/O error.
func (e *Exporter) Export(ctx context.Context, run *config.RunConfig) (*Result, error) {
	p, err := e.prepare(ctx, run)
	if err != nil {
		return nil, err
	}
	res, err := e.generate(ctx, p, run)
	if err != nil {
		return nil, err
	}

	rec := e.newRecord(p, res, run)
	result := &Result{Batch: res, Record: rec}

	if res.LineCount() == 0 {
		rec.State = runlog.StateError
		e.persist(ctx, result)
		return result, fmt.Errorf("%w: %d of %d records failed", ErrEmptyOutput, res.FailureCount(), res.Attempted)
	}

	name := txtwriter.FileName(e.options.FilePrefix, p.layout.Name, rec.CreatedAt)
	path, err := txtwriter.WriteFile(e.files.OutputDir, name, res.Lines, e.options.Writer)
	if err != nil {
		rec.State = runlog.StateError
		rec.ErrorLog = append(rec.ErrorLog, err.Error())
		e.persist(ctx, result)
		return result, err
	}
	rec.FileName, rec.OutputPath = name, path
	result.OutputPath = path

	if result.ErrorLog, err = e.files.WriteErrorLog(name, res.ErrorLog); err != nil {
		e.logger.Warn("failed to write error log", "error", err)
	}

	if result.ArchivePath, err = e.files.ArchiveOutputFile(path); err != nil {
		e.logger.Warn("failed to archive export", "file", path, "error", err)
	}
	rec.ArchivePath = result.ArchivePath
	if e.options.ArchiveRetention > 0 && result.ArchivePath != "" {
		if removed, err := utils.CleanOldArchives(e.files.ArchiveDir, e.options.ArchiveRetention); err != nil {
			e.logger.Warn("failed to prune archive", "error", err)
		} else if removed > 0 {
			e.logger.Info("pruned archive", "removed", removed)
		}
	}

	e.persist(ctx, result)

	e.logger.Info("export written",
		"file", path,
		"lines", res.LineCount(),
		"failed", res.FailureCount(),
		"state", rec.State)
	return result, nil
}

func (e *Exporter) newRecord(p *prepared, res *generator.BatchResult, run *config.RunConfig) *runlog.Record {
	rec := runlog.NewRecord(p.layout.Name, string(p.layout.Kind))
	rec.CreatedAt = e.now()
	rec.Profile = run.Name
	rec.DateFrom, rec.DateTo = run.DateFrom, run.DateTo
	rec.JournalIDs, rec.PartnerIDs = run.JournalIDs, run.PartnerIDs
	rec.PartnerRegime = run.PartnerRegime
	if first := p.records[0]; first.Move != nil && first.Move.Company != nil {
		rec.Company = first.Move.Company.Name
		rec.CompanyTaxID = first.Move.Company.VAT
	}

	rec.Attempted = res.Attempted
	rec.Lines = res.LineCount()
	rec.Failed = res.FailureCount()
	rec.TotalWithholding = res.TotalWithholding.StringFixed(2)
	rec.TotalTransaction = res.TotalTransaction.StringFixed(2)
	rec.ErrorLog = res.ErrorLog
	rec.Duration = res.Duration

	switch res.Outcome {
	case generator.OutcomeWarning:
		rec.State = runlog.StateWarning
	case generator.OutcomeError:
		rec.State = runlog.StateError
	default:
		rec.State = runlog.StateDone
	}
	return rec
}

// persist saves the run record. Storage failures are logged, never fatal:
// the export file is already on disk.
func (e *Exporter) persist(ctx context.Context, result *Result) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(ctx, result.Record); err != nil {
		e.logger.Error("failed to save run record", "id", result.Record.ID, "error", err)
		return
	}
	if !e.options.WriteReport {
		return
	}
	reporter, ok := e.store.(Reporter)
	if !ok {
		return
	}
	path, err := reporter.WriteReport(result.Record)
	if err != nil {
		e.logger.Warn("failed to write run report", "id", result.Record.ID, "error", err)
		return
	}
	result.ReportPath = path
}
