package generator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/sicore-export/internal/config"
	"github.com/ginjaninja78/sicore-export/internal/extractor"
	"github.com/ginjaninja78/sicore-export/internal/layout"
	"github.com/ginjaninja78/sicore-export/internal/ledger"
	"github.com/ginjaninja78/sicore-export/internal/types"
)

var (
	sep27 = time.Date(2025, 9, 27, 0, 0, 0, 0, time.UTC)

	company  = &ledger.Company{ID: 1, Name: "TOSTADERO MANICOP S.R.L.", VAT: "30-70775330-3"}
	provider = &ledger.Partner{ID: 10, Name: "BARALE S.A. - 306", VAT: "30-54303506-4", DocumentTypeCode: "80"}
	ganancia = &ledger.Tax{ID: 5, Name: "Ganancias", TaxCode: "0217", RegimeCode: "0767"}

	fuelAcc        = &ledger.Account{ID: 1, Name: "Combustibles", ExportType: types.KindFuel}
	expenseAcc     = &ledger.Account{ID: 2, Name: "Gastos varios"}
	withholdingAcc = &ledger.Account{ID: 3, Name: "Retenciones", ExportType: types.KindRetention}
	perceptionAcc  = &ledger.Account{ID: 4, Name: "Percepciones", ExportType: types.KindPerception}
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fuelLine(name, amount string, acc *ledger.Account) *ledger.MoveLine {
	line := &ledger.MoveLine{ID: 1, Partner: provider, Account: acc, Balance: decimal.RequireFromString(amount)}
	m := &ledger.Move{Name: name, Type: ledger.MoveInInvoice, State: ledger.StatePosted, Date: sep27, Company: company, Lines: []*ledger.MoveLine{line}}
	line.Move = m
	return line
}

func taxLine(name, amount string, acc *ledger.Account) *ledger.MoveLine {
	line := &ledger.MoveLine{ID: 2, Partner: provider, Account: acc, Balance: decimal.RequireFromString(amount), TaxLine: ganancia}
	m := &ledger.Move{
		Name:        name,
		Type:        ledger.MoveEntry,
		State:       ledger.StatePosted,
		Date:        sep27,
		Company:     company,
		AmountTotal: decimal.RequireFromString("10000"),
		Lines:       []*ledger.MoveLine{line},
	}
	line.Move = m
	return line
}

func newGenerator(t *testing.T, l *types.Layout, opts ...Option) *Generator {
	t.Helper()
	ex, err := extractor.New(l.Kind)
	require.NoError(t, err)
	g, err := New(l, ex, append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return g
}

// =============================================================================
// LINE ASSEMBLY
// =============================================================================

func TestFuelScenarioLine(t *testing.T) {
	g := newGenerator(t, layout.Fuel())
	res, err := g.Generate(context.Background(), []*ledger.MoveLine{
		fuelLine("FC 23000-41130", "-44680.51", fuelAcc),
	}, config.DefaultRunConfig())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 1, res.LineCount())
	assert.Equal(t,
		"C;BARALE S.A. - 306;30543035064;5;001;2300041130;27092025;TOSTADERO MANICOP S.R.L.;30707753303;3;44680,51",
		res.Text)
	assert.True(t, decimal.RequireFromString("44680.51").Equal(res.TotalWithholding))
	assert.True(t, res.TotalTransaction.IsZero())
}

func TestFixedWidthLinesHaveDocumentedWidth(t *testing.T) {
	tests := []struct {
		name    string
		layout  *types.Layout
		account *ledger.Account
		width   int
	}{
		{"retention", layout.Retention(), withholdingAcc, layout.RetentionWidth},
		{"perception", layout.Perception(), perceptionAcc, layout.PerceptionWidth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGenerator(t, tt.layout)
			res, err := g.Generate(context.Background(), []*ledger.MoveLine{
				taxLine("OP 0001-00000042", "-150.25", tt.account),
			}, config.DefaultRunConfig())
			require.NoError(t, err)
			require.Equal(t, OutcomeSuccess, res.Outcome, res.ErrorLog)
			require.Len(t, res.Lines, 1)
			assert.Len(t, res.Lines[0], tt.width)
			assert.True(t, strings.HasPrefix(res.Lines[0], "0627/09/2025"))
			assert.True(t, decimal.RequireFromString("150.25").Equal(res.TotalWithholding))
			assert.True(t, decimal.RequireFromString("10000").Equal(res.TotalTransaction))
		})
	}
}

func TestAssembleLineCollectsEveryFieldError(t *testing.T) {
	l := layout.Fuel()
	values := types.RawValues{
		layout.FieldFuelRecordCode:    "C",
		layout.FieldFuelProviderName:  "X",
		layout.FieldFuelProviderTaxID: "30543035065",
		layout.FieldTaxCode:           "5",
		layout.FieldRegimeCode:        "001",
		layout.FieldDocumentNumber:    "1",
		layout.FieldFuelDocumentDate:  sep27,
		layout.FieldFuelClientName:    "Y",
		layout.FieldFuelConstantCode:  "3",
		layout.FieldFuelAmount:        "not a number",
	}

	line, err := AssembleLine(values, l)
	assert.Empty(t, line)

	var re *RecordError
	require.ErrorAs(t, err, &re)
	require.Len(t, re.Errs, 3)
	assert.Equal(t, layout.FieldFuelProviderTaxID, re.Errs[0].Field)
	assert.Equal(t, layout.FieldFuelClientTaxID, re.Errs[1].Field)
	assert.Equal(t, layout.FieldFuelAmount, re.Errs[2].Field)
	assert.True(t, IsValidationError(err))
}

func TestAssembleLineCountsCharactersNotBytes(t *testing.T) {
	l := &types.Layout{
		Name:        "angosto",
		RecordWidth: 5,
		Fields: []types.FieldSpec{
			{Name: "a", Type: types.FieldText, Length: 3, FillChar: 'º'},
			{Name: "b", Type: types.FieldText, Length: 2},
		},
	}

	line, err := AssembleLine(types.RawValues{"a": "A", "b": "B"}, l)
	require.NoError(t, err)
	assert.Equal(t, "AººB ", line)
	assert.Greater(t, len(line), 5, "fill is multi-byte")
}

// =============================================================================
// BATCH OUTCOMES
// =============================================================================

func TestDeriveOutcome(t *testing.T) {
	tests := []struct {
		ok, failed int
		want       Outcome
	}{
		{0, 0, OutcomeSuccess},
		{3, 0, OutcomeSuccess},
		{2, 1, OutcomeWarning},
		{0, 2, OutcomeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveOutcome(tt.ok, tt.failed), "%d ok / %d failed", tt.ok, tt.failed)
	}
}

func TestPartialFailureIsWarning(t *testing.T) {
	g := newGenerator(t, layout.Fuel())
	res, err := g.Generate(context.Background(), []*ledger.MoveLine{
		fuelLine("FC 1-1", "-100", fuelAcc),
		fuelLine("FC 1-2", "-200", expenseAcc),
		fuelLine("FC 1-3", "-300", fuelAcc),
	}, config.DefaultRunConfig())
	require.NoError(t, err)

	assert.Equal(t, OutcomeWarning, res.Outcome)
	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 2, res.LineCount())
	require.Len(t, res.ErrorLog, 1)
	assert.True(t, strings.HasPrefix(res.ErrorLog[0], "validation error in record 2 (FC 1-2"), res.ErrorLog[0])
	assert.Contains(t, res.ErrorLog[0], "ACCOUNT NOT CONFIGURED")
	assert.Len(t, strings.Split(res.Text, "\n"), 2)
	assert.True(t, decimal.RequireFromString("400").Equal(res.TotalWithholding))
}

func TestAllFailuresIsError(t *testing.T) {
	g := newGenerator(t, layout.Fuel())
	res, err := g.Generate(context.Background(), []*ledger.MoveLine{
		fuelLine("FC 1-1", "-100", expenseAcc),
		fuelLine("FC 1-2", "-200", expenseAcc),
	}, config.DefaultRunConfig())
	require.NoError(t, err)

	assert.Equal(t, OutcomeError, res.Outcome)
	assert.Equal(t, 0, res.LineCount())
	assert.Empty(t, res.Text)
	assert.Len(t, res.ErrorLog, 2)
	assert.True(t, res.TotalWithholding.IsZero())
}

func TestEmptyInputIsSuccess(t *testing.T) {
	g := newGenerator(t, layout.Fuel())
	res, err := g.Generate(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Empty(t, res.Text)
}

// panicky extracts fuel records but panics on one move.
type panicky struct {
	extractor.Fuel
	on string
}

func (p panicky) Extract(line *ledger.MoveLine, run *config.RunConfig) (types.RawValues, error) {
	if line.Move.Name == p.on {
		var m map[string]int
		m["boom"]++
	}
	return p.Fuel.Extract(line, run)
}

func TestPanicIsReportedAsUnexpectedError(t *testing.T) {
	g, err := New(layout.Fuel(), panicky{on: "FC 1-1"}, WithLogger(quietLogger()))
	require.NoError(t, err)

	res, err := g.Generate(context.Background(), []*ledger.MoveLine{
		fuelLine("FC 1-1", "-100", fuelAcc),
		fuelLine("FC 1-2", "-200", fuelAcc),
	}, config.DefaultRunConfig())
	require.NoError(t, err)

	assert.Equal(t, OutcomeWarning, res.Outcome)
	require.Len(t, res.ErrorLog, 1)
	assert.True(t, strings.HasPrefix(res.ErrorLog[0], "unexpected error in record 1 (FC 1-1"), res.ErrorLog[0])
	assert.Contains(t, res.ErrorLog[0], "panic")
}

func TestNilRecordIsReportedAsUnexpectedError(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		g := newGenerator(t, layout.Fuel(), WithConcurrency(concurrency))

		var res *BatchResult
		var err error
		require.NotPanics(t, func() {
			res, err = g.Generate(context.Background(), []*ledger.MoveLine{
				nil,
				fuelLine("FC 1-2", "-200", fuelAcc),
			}, config.DefaultRunConfig())
		})
		require.NoError(t, err)

		assert.Equal(t, OutcomeWarning, res.Outcome)
		assert.Equal(t, 1, res.SuccessCount)
		require.Len(t, res.ErrorLog, 1)
		assert.Equal(t, "unexpected error in record 1 (<nil record>): record is nil", res.ErrorLog[0])
	}
}

// =============================================================================
// CONCURRENCY AND CONFIGURATION
// =============================================================================

func TestConcurrentGenerationKeepsInputOrder(t *testing.T) {
	var records []*ledger.MoveLine
	for i := 1; i <= 40; i++ {
		acc := fuelAcc
		if i%7 == 0 {
			acc = expenseAcc
		}
		records = append(records, fuelLine(fmt.Sprintf("FC 1-%d", i), fmt.Sprintf("-%d.10", i), acc))
	}

	seq, err := newGenerator(t, layout.Fuel()).Generate(context.Background(), records, config.DefaultRunConfig())
	require.NoError(t, err)
	par, err := newGenerator(t, layout.Fuel(), WithConcurrency(8)).Generate(context.Background(), records, config.DefaultRunConfig())
	require.NoError(t, err)

	assert.Equal(t, seq.Text, par.Text)
	assert.Equal(t, seq.ErrorLog, par.ErrorLog)
	assert.True(t, seq.TotalWithholding.Equal(par.TotalWithholding))
}

func TestLineSeparator(t *testing.T) {
	g := newGenerator(t, layout.Fuel(), WithLineSeparator("\r\n"))
	res, err := g.Generate(context.Background(), []*ledger.MoveLine{
		fuelLine("FC 1-1", "-1", fuelAcc),
		fuelLine("FC 1-2", "-2", fuelAcc),
	}, config.DefaultRunConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(res.Text, "\r\n"))
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newGenerator(t, layout.Fuel()).Generate(ctx, []*ledger.MoveLine{fuelLine("FC 1-1", "-1", fuelAcc)}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsMismatchedExtractor(t *testing.T) {
	_, err := New(layout.Retention(), extractor.Fuel{})
	assert.Error(t, err)

	broken := layout.Fuel()
	broken.Fields = nil
	_, err = New(broken, extractor.Fuel{})
	assert.Error(t, err)
}

func TestFirstNonZeroIgnoresText(t *testing.T) {
	values := types.RawValues{
		layout.FieldWithholdingAmount: "12,50",
		layout.FieldFuelAmount:        decimal.RequireFromString("-3"),
	}
	got := firstNonZero(values, layout.FieldWithholdingAmount, layout.FieldFuelAmount)
	assert.True(t, decimal.RequireFromString("3").Equal(got))
}
