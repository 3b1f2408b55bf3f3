package extractor

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/sicore-export/internal/config"
	"github.com/ginjaninja78/sicore-export/internal/layout"
	"github.com/ginjaninja78/sicore-export/internal/ledger"
	"github.com/ginjaninja78/sicore-export/internal/types"
)

// =============================================================================
// FIXTURES
// =============================================================================

var (
	sep27 = time.Date(2025, 9, 27, 0, 0, 0, 0, time.UTC)
	aug30 = time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC)

	company    = &ledger.Company{ID: 1, Name: "TOSTADERO MANICOP S.R.L.", VAT: "30-70775330-3"}
	supplier   = &ledger.Partner{ID: 10, Name: "BARALE S.A. - 306", VAT: "30-54303506-4", DocumentTypeCode: "80"}
	customer   = &ledger.Partner{ID: 20, Name: "Almacén Ñandú", VAT: "2012345678", DocumentTypeCode: "80"}
	gananciasT = &ledger.Tax{ID: 5, Name: "Ganancias", TaxCode: "0217", RegimeCode: "0767"}

	withholdingAcc = &ledger.Account{ID: 100, Name: "Retenciones", Type: ledger.AccountOther, ExportType: types.KindRetention}
	perceptionAcc  = &ledger.Account{ID: 101, Name: "Percepciones", Type: ledger.AccountOther, ExportType: types.KindPerception}
	payableAcc     = &ledger.Account{ID: 102, Name: "Proveedores", Type: ledger.AccountPayable}
	receivableAcc  = &ledger.Account{ID: 103, Name: "Deudores", Type: ledger.AccountReceivable}
	fuelAcc        = &ledger.Account{ID: 104, Name: "Combustibles", Type: ledger.AccountOther, ExportType: types.KindFuel}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func move(name string, mt ledger.MoveType, lines ...*ledger.MoveLine) *ledger.Move {
	m := &ledger.Move{Name: name, Type: mt, State: ledger.StatePosted, Date: sep27, Company: company, Lines: lines}
	for _, l := range lines {
		l.Move = m
	}
	return m
}

// supplierPayment builds an invoice and a payment that settles it with a
// withholding line.
func supplierPayment(reconcile bool) (*ledger.MoveLine, *ledger.Move) {
	invLine := &ledger.MoveLine{ID: 1, Partner: supplier, Account: payableAcc, Balance: dec("-121000")}
	inv := move("FA-A 0003-00001234", ledger.MoveInInvoice, invLine)
	inv.InvoiceDate = aug30
	inv.AmountTotal = dec("121000")
	inv.AmountUntaxed = dec("100000")

	wh := &ledger.MoveLine{ID: 2, Partner: supplier, Account: withholdingAcc, Balance: dec("-1500.5"), TaxLine: gananciasT}
	settle := &ledger.MoveLine{ID: 3, Partner: supplier, Account: payableAcc, Balance: dec("121000")}
	pay := move("OP 0001-00000042", ledger.MoveEntry, wh, settle)
	pay.AmountTotal = dec("121000")

	if reconcile {
		ledger.Reconcile(settle, invLine)
	}
	return wh, inv
}

// =============================================================================
// RETENTION
// =============================================================================

func TestRetentionWithReconciledInvoice(t *testing.T) {
	line, _ := supplierPayment(true)
	run := config.DefaultRunConfig()

	values, err := Retention{}.Extract(line, run)
	require.NoError(t, err)

	assert.Equal(t, "01", values[layout.FieldDocumentCode])
	assert.Equal(t, aug30, values[layout.FieldDocumentDate])
	assert.Equal(t, "000300001234", values[layout.FieldDocumentNumber])
	assert.True(t, dec("121000").Equal(values[layout.FieldDocumentAmount].(decimal.Decimal)))
	assert.True(t, dec("100000").Equal(values[layout.FieldTaxBase].(decimal.Decimal)))
	assert.True(t, dec("1500.5").Equal(values[layout.FieldWithholdingAmount].(decimal.Decimal)))
	assert.Equal(t, "217", values[layout.FieldTaxCode])
	assert.Equal(t, "767", values[layout.FieldRegimeCode])
	assert.Equal(t, "30543035064", values[layout.FieldSubjectDocumentNum])
	assert.Equal(t, "30543035064", values[layout.FieldOrderingPartyTaxID])
	assert.Equal(t, "80", values[layout.FieldSubjectDocumentType])
	assert.Equal(t, "1", values[layout.FieldOperationCode])
	assert.Equal(t, sep27, values[layout.FieldValidityEndDate])

	for _, f := range layout.Retention().Fields {
		assert.Contains(t, values, f.Name)
	}
}

func TestRetentionFallsBackToPaymentGross(t *testing.T) {
	line, _ := supplierPayment(false)
	line.Move.Payment = &ledger.Payment{Amount: dec("-119499.5"), Withholdings: []decimal.Decimal{dec("1500.5")}}

	values, err := Retention{}.Extract(line, config.DefaultRunConfig())
	require.NoError(t, err)

	assert.True(t, dec("121000").Equal(values[layout.FieldDocumentAmount].(decimal.Decimal)))
	assert.True(t, dec("121000").Equal(values[layout.FieldTaxBase].(decimal.Decimal)))
	assert.Equal(t, "06", values[layout.FieldDocumentCode])
	assert.Equal(t, "000100000042", values[layout.FieldDocumentNumber])
}

func TestRetentionFallsBackToEntry(t *testing.T) {
	line, _ := supplierPayment(false)
	line.Move.AmountTotal = dec("-500")
	line.Move.Lines[1].Balance = dec("0")

	values, err := Retention{}.Extract(line, config.DefaultRunConfig())
	require.NoError(t, err)

	assert.True(t, dec("500").Equal(values[layout.FieldDocumentAmount].(decimal.Decimal)))
	assert.True(t, dec("500").Equal(values[layout.FieldTaxBase].(decimal.Decimal)), "zero settlement total falls back to entry total")
}

func TestRetentionMissingConfiguration(t *testing.T) {
	bare := &ledger.Partner{ID: 30, Name: "Sin Datos"}
	line := &ledger.MoveLine{ID: 9, Partner: bare, Account: withholdingAcc, Balance: dec("-10")}
	move("OP 9", ledger.MoveEntry, line)

	_, err := Retention{}.Extract(line, config.DefaultRunConfig())

	var missing *MissingConfigurationError
	require.ErrorAs(t, err, &missing)
	assert.Len(t, missing.Problems, 4)
	assert.Contains(t, err.Error(), "MISSING PARTNER TAX ID")
	assert.Contains(t, err.Error(), "MISSING DOCUMENT TYPE")
	assert.Contains(t, err.Error(), "MISSING TAX CODE")
	assert.Contains(t, err.Error(), "MISSING REGIME CODE")
	assert.Contains(t, err.Error(), " | ")
	assert.Contains(t, missing.Record, "OP 9")
}

func TestTaxCodesTwoTierLookup(t *testing.T) {
	onlyTax := &ledger.Tax{TaxCode: "0217"}
	onlyRegime := &ledger.Tax{RegimeCode: "078"}
	other := &ledger.Tax{TaxCode: "9999", RegimeCode: "999"}

	tests := []struct {
		name       string
		line       *ledger.MoveLine
		tax, regim string
	}{
		{name: "tax line wins", line: &ledger.MoveLine{TaxLine: gananciasT, Taxes: []*ledger.Tax{other}}, tax: "0217", regim: "0767"},
		{name: "applied taxes fill gaps", line: &ledger.MoveLine{TaxLine: onlyTax, Taxes: []*ledger.Tax{onlyRegime, other}}, tax: "0217", regim: "078"},
		{name: "first applied tax per code", line: &ledger.MoveLine{Taxes: []*ledger.Tax{onlyRegime, onlyTax, other}}, tax: "0217", regim: "078"},
		{name: "none", line: &ledger.MoveLine{}, tax: "", regim: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tax, regime := taxCodes(tt.line)
			assert.Equal(t, tt.tax, tax)
			assert.Equal(t, tt.regim, regime)
		})
	}
}

func TestStripLeadingZeros(t *testing.T) {
	assert.Equal(t, "767", stripLeadingZeros("0767"))
	assert.Equal(t, "78", stripLeadingZeros("078"))
	assert.Equal(t, "0", stripLeadingZeros("000"))
	assert.Equal(t, "", stripLeadingZeros(""))
}

// =============================================================================
// PERCEPTION
// =============================================================================

func TestPerceptionResolvesCustomerInvoiceOnly(t *testing.T) {
	invLine := &ledger.MoveLine{ID: 1, Partner: customer, Account: receivableAcc, Balance: dec("24200")}
	inv := move("FA-B 0001-00000077", ledger.MoveOutInvoice, invLine)
	inv.DocumentTypeCode = "06"
	inv.InvoiceDate = aug30
	inv.AmountTotal = dec("24200")
	inv.AmountUntaxed = dec("20000")

	perc := &ledger.MoveLine{ID: 2, Partner: customer, Account: perceptionAcc, Balance: dec("-300"), Taxes: []*ledger.Tax{gananciasT}}
	collect := &ledger.MoveLine{ID: 3, Partner: customer, Account: receivableAcc, Balance: dec("-24200")}
	rec := move("RC 0001-00000005", ledger.MoveEntry, perc, collect)
	rec.AmountTotal = dec("24500")
	ledger.Reconcile(invLine, collect)

	run := config.DefaultRunConfig()
	values, err := Perception{}.Extract(perc, run)
	require.NoError(t, err)

	assert.Equal(t, "06", values[layout.FieldDocumentCode], "explicit document type wins")
	assert.Equal(t, "000100000077", values[layout.FieldDocumentNumber])
	assert.True(t, dec("20000").Equal(values[layout.FieldTaxBase].(decimal.Decimal)))
	assert.Equal(t, "0000000000", values[layout.FieldBulletinDate])
	assert.Equal(t, "02012345678", values[layout.FieldSubjectDocumentNum])
	assert.NotContains(t, values, layout.FieldOrderingPartyTaxID)

	// A supplier invoice behind the same link is not followed.
	inv.Type = ledger.MoveInInvoice
	values, err = Perception{}.Extract(perc, run)
	require.NoError(t, err)
	assert.True(t, dec("24500").Equal(values[layout.FieldDocumentAmount].(decimal.Decimal)))
	assert.True(t, dec("24200").Equal(values[layout.FieldTaxBase].(decimal.Decimal)))
	assert.Equal(t, "06", values[layout.FieldDocumentCode])
}

// =============================================================================
// FUEL
// =============================================================================

func TestFuelExtract(t *testing.T) {
	line := &ledger.MoveLine{ID: 1, Partner: supplier, Account: fuelAcc, Balance: dec("44680.51")}
	m := move("FC 2300-041130", ledger.MoveInInvoice, line)
	m.InvoiceDate = sep27

	values, err := Fuel{}.Extract(line, config.DefaultRunConfig())
	require.NoError(t, err)

	assert.Equal(t, types.RawValues{
		layout.FieldFuelRecordCode:    "C",
		layout.FieldFuelProviderName:  "BARALE S.A. - 306",
		layout.FieldFuelProviderTaxID: "30543035064",
		layout.FieldTaxCode:           "5",
		layout.FieldRegimeCode:        "001",
		layout.FieldDocumentNumber:    "2300041130",
		layout.FieldFuelDocumentDate:  sep27,
		layout.FieldFuelClientName:    "TOSTADERO MANICOP S.R.L.",
		layout.FieldFuelClientTaxID:   "30707753303",
		layout.FieldFuelConstantCode:  "3",
		layout.FieldFuelAmount:        dec("44680.51"),
	}, values)
}

func TestFuelMissingConfiguration(t *testing.T) {
	line := &ledger.MoveLine{ID: 1, Account: withholdingAcc, Balance: dec("10")}
	m := move("FC 1", ledger.MoveInInvoice, line)
	m.Company = &ledger.Company{Name: "Sin CUIT"}

	_, err := Fuel{}.Extract(line, config.DefaultRunConfig())

	var missing *MissingConfigurationError
	require.ErrorAs(t, err, &missing)
	require.Len(t, missing.Problems, 3)
	assert.Contains(t, missing.Problems[0], "MISSING PARTNER")
	assert.Contains(t, missing.Problems[1], "MISSING COMPANY TAX ID")
	assert.Contains(t, missing.Problems[2], "ACCOUNT NOT CONFIGURED")
}

// =============================================================================
// QUERIES
// =============================================================================

func TestQueries(t *testing.T) {
	run := config.DefaultRunConfig()
	run.DateFrom = "2025-09-01"
	run.DateTo = "2025-09-30"
	run.PartnerRegime = "simplified"
	run.JournalIDs = []int{3}

	for _, kind := range types.Kinds() {
		ex, err := New(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, ex.Kind())

		q, err := ex.Query(run)
		require.NoError(t, err)
		assert.Equal(t, kind, q.Kind)
		assert.Equal(t, []int{3}, q.JournalIDs)
		assert.Equal(t, 30, q.DateTo.Day())
		if kind == types.KindFuel {
			assert.Empty(t, q.Regime)
		} else {
			assert.Equal(t, ledger.RegimeFilterSimplified, q.Regime)
		}
	}

	run.PartnerRegime = "mixed"
	_, err := Retention{}.Query(run)
	assert.Error(t, err)

	_, err = New(types.Kind("vat"))
	assert.Error(t, err)
}
