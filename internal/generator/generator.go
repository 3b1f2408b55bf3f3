// =============================================================================
// SICORE Export - Batch Generator
// =============================================================================
//
// The generator drives one export run: for every source record it calls the
// layout's extractor, assembles the line, and folds the outcome into a
// BatchResult.
//
// RULES:
//   - Records are processed and reported in input order.
//   - One failing record never aborts the run; it is logged and skipped.
//   - Panics inside a record are recovered and reported as unexpected errors.
//   - Outcome: error when nothing succeeded and something failed, warning
//     when both happened, success when nothing failed.
//
// CONCURRENCY:
//   Extraction and assembly may run on up to Concurrency goroutines. Results
//   land in a slice indexed by record position and are folded sequentially,
//   so the output is identical for any concurrency setting.
//
// =============================================================================

package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/sicore-export/internal/codec"
	"github.com/ginjaninja78/sicore-export/internal/config"
	"github.com/ginjaninja78/sicore-export/internal/extractor"
	"github.com/ginjaninja78/sicore-export/internal/layout"
	"github.com/ginjaninja78/sicore-export/internal/ledger"
	"github.com/ginjaninja78/sicore-export/internal/types"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Outcome is the run-level state.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeWarning Outcome = "warning"
	OutcomeError   Outcome = "error"
)

// DeriveOutcome applies the tri-state rule to a success and a failure count.
func DeriveOutcome(successes, failures int) Outcome {
	switch {
	case failures == 0:
		return OutcomeSuccess
	case successes == 0:
		return OutcomeError
	default:
		return OutcomeWarning
	}
}

// BatchResult is the outcome of one run.
type BatchResult struct {
	// Layout is the name of the layout that was generated.
	Layout string

	// Lines are the successfully assembled records, in input order.
	Lines []string

	// Text is Lines joined with the line separator.
	Text string

	// Attempted is the number of source records.
	Attempted int

	// SuccessCount is the number of records that produced a line.
	SuccessCount int

	// ErrorLog has one entry per failed record, in input order.
	ErrorLog []string

	// Outcome is success, warning or error.
	Outcome Outcome

	// TotalWithholding sums the absolute withholding or perception amounts.
	TotalWithholding decimal.Decimal

	// TotalTransaction sums the absolute document amounts.
	TotalTransaction decimal.Decimal

	// Duration is the wall time of the run.
	Duration time.Duration
}

// LineCount is the number of lines in Text.
func (r *BatchResult) LineCount() int {
	return len(r.Lines)
}

// FailureCount is the number of records that did not produce a line.
func (r *BatchResult) FailureCount() int {
	return len(r.ErrorLog)
}

// =============================================================================
// GENERATOR STRUCTURE
// =============================================================================

// Logger is the logging surface the generator needs. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Generator produces the export text of one layout.
type Generator struct {
	layout      *types.Layout
	extractor   extractor.Extractor
	logger      Logger
	concurrency int
	separator   string
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger replaces the default slog logger.
func WithLogger(l Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithConcurrency bounds parallel extraction. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

// WithLineSeparator sets the string between lines. Default "\n".
func WithLineSeparator(sep string) Option {
	return func(g *Generator) {
		if sep != "" {
			g.separator = sep
		}
	}
}

// New creates a generator for a layout and its extractor.
func New(l *types.Layout, ex extractor.Extractor, opts ...Option) (*Generator, error) {
	if err := layout.Validate(l); err != nil {
		return nil, err
	}
	if ex == nil {
		return nil, fmt.Errorf("layout %q has no extractor", l.Name)
	}
	if ex.Kind() != l.Kind {
		return nil, fmt.Errorf("layout %q is %s but extractor is %s", l.Name, l.Kind, ex.Kind())
	}

	g := &Generator{
		layout:      l,
		extractor:   ex,
		logger:      slog.Default(),
		concurrency: 1,
		separator:   "\n",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Layout returns the generator's layout.
func (g *Generator) Layout() *types.Layout {
	return g.layout
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// recordResult is what one record contributes to the batch.
type recordResult struct {
	line   string
	values types.RawValues
	err    error
}

// Generate runs every record through extraction and assembly.
//
// PARAMETERS:
//   - ctx: Cancels the run between records.
//   - records: Source records in query order.
//   - run: The run configuration handed to the extractor.
//
// RETURNS:
//   - The batch result. Record failures are reported inside it.
//   - An error only when the context is cancelled.
func (g *Generator) Generate(ctx context.Context, records []*ledger.MoveLine, run *config.RunConfig) (*BatchResult, error) {
	start := time.Now()
	if run == nil {
		run = config.DefaultRunConfig()
	}

	g.logger.Info("generating export",
		"layout", g.layout.Name,
		"records", len(records),
		"concurrency", g.concurrency)

	results, err := g.processAll(ctx, records, run)
	if err != nil {
		return nil, err
	}

	res := &BatchResult{
		Layout:           g.layout.Name,
		Attempted:        len(records),
		TotalWithholding: decimal.Zero,
		TotalTransaction: decimal.Zero,
	}

	for i, r := range results {
		idx := i + 1
		name := records[i].DisplayName()

		if r.err != nil {
			res.ErrorLog = append(res.ErrorLog, g.describe(idx, name, r.err))
			continue
		}

		res.Lines = append(res.Lines, r.line)
		res.SuccessCount++
		res.TotalWithholding = res.TotalWithholding.Add(firstNonZero(r.values, layout.FieldWithholdingAmount, layout.FieldFuelAmount))
		res.TotalTransaction = res.TotalTransaction.Add(firstNonZero(r.values, layout.FieldDocumentAmount, layout.FieldTaxBase))
	}

	res.Text = strings.Join(res.Lines, g.separator)
	res.Outcome = DeriveOutcome(res.SuccessCount, len(res.ErrorLog))
	res.Duration = time.Since(start)

	if res.Outcome == OutcomeError {
		g.logger.Error("export failed: no record was processed successfully",
			"layout", g.layout.Name,
			"failed", len(res.ErrorLog))
	} else {
		g.logger.Info("export generated",
			"layout", g.layout.Name,
			"outcome", res.Outcome,
			"lines", res.SuccessCount,
			"failed", len(res.ErrorLog),
			"total_withholding", res.TotalWithholding.StringFixed(2),
			"total_transaction", res.TotalTransaction.StringFixed(2),
			"elapsed", res.Duration)
	}
	return res, nil
}

// processAll produces one result per record, positionally.
func (g *Generator) processAll(ctx context.Context, records []*ledger.MoveLine, run *config.RunConfig) ([]recordResult, error) {
	results := make([]recordResult, len(records))

	if g.concurrency <= 1 || len(records) < 2 {
		for i, rec := range records {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = g.processRecord(rec, run)
		}
		return results, nil
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, g.concurrency)

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, rec *ledger.MoveLine) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = g.processRecord(rec, run)
		}(i, rec)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// processRecord extracts and assembles one record, turning panics into errors.
func (g *Generator) processRecord(rec *ledger.MoveLine, run *config.RunConfig) (res recordResult) {
	defer func() {
		if p := recover(); p != nil {
			res = recordResult{err: &panicError{value: p, stack: debug.Stack()}}
		}
	}()

	if rec == nil {
		return recordResult{err: errNilRecord}
	}
	values, err := g.extractor.Extract(rec, run)
	if err != nil {
		return recordResult{err: err}
	}
	line, err := AssembleLine(values, g.layout)
	if err != nil {
		return recordResult{err: err}
	}
	return recordResult{line: line, values: values}
}

// =============================================================================
// ERROR REPORTING
// =============================================================================

var errNilRecord = errors.New("record is nil")

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// IsValidationError reports whether err is a data problem the user can fix
// (missing configuration or malformed fields) rather than a defect.
func IsValidationError(err error) bool {
	var missing *extractor.MissingConfigurationError
	var record *RecordError
	var field *codec.FieldFormatError
	return errors.As(err, &missing) || errors.As(err, &record) || errors.As(err, &field)
}

// describe logs a record failure and returns its error-log entry.
func (g *Generator) describe(idx int, name string, err error) string {
	var re *RecordError
	if errors.As(err, &re) {
		re.Index, re.Record = idx, name
	}

	if IsValidationError(err) {
		msg := fmt.Sprintf("validation error in record %d (%s): %v", idx, name, err)
		g.logger.Warn(msg, "layout", g.layout.Name)
		return msg
	}

	msg := fmt.Sprintf("unexpected error in record %d (%s): %v", idx, name, err)
	args := []any{"layout", g.layout.Name}
	var pe *panicError
	if errors.As(err, &pe) {
		args = append(args, "stack", string(pe.stack))
	}
	g.logger.Error(msg, args...)
	return msg
}

// =============================================================================
// TOTALS
// =============================================================================

// firstNonZero returns the absolute value of the first numeric, non-zero
// value among keys. Text values do not count.
func firstNonZero(values types.RawValues, keys ...string) decimal.Decimal {
	for _, k := range keys {
		d, ok := codec.NumericValue(values[k])
		if ok && !d.IsZero() {
			return d.Abs()
		}
	}
	return decimal.Zero
}
