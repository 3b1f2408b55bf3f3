// =============================================================================
// SICORE Export - Record Value Extractors
// =============================================================================
//
// An Extractor turns one ledger move line into the raw values of one record.
// There is one variant per layout:
//
//   - Retention  : withholdings applied when paying suppliers
//   - Perception : perceptions collected from customers
//   - Fuel       : fuel purchases, semicolon-delimited
//
// Each variant also shapes the ledger query that selects its lines, so a
// layout, its extractor and its query always travel together.
//
// ERRORS:
//   Missing prerequisites (partner, tax ID, document type, tax or regime code)
//   are gathered into a single *MissingConfigurationError so the user can fix
//   everything about a record in one pass.
//
// =============================================================================

package extractor

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/sicore-export/internal/codec"
	"github.com/ginjaninja78/sicore-export/internal/config"
	"github.com/ginjaninja78/sicore-export/internal/ledger"
	"github.com/ginjaninja78/sicore-export/internal/types"
)

// =============================================================================
// INTERFACE
// =============================================================================

// Extractor maps a source record to raw field values.
type Extractor interface {
	// Kind is the layout kind this extractor feeds.
	Kind() types.Kind

	// Query builds the ledger query for a run.
	Query(run *config.RunConfig) (ledger.Query, error)

	// Extract produces the raw values of one record.
	Extract(line *ledger.MoveLine, run *config.RunConfig) (types.RawValues, error)
}

// New returns the extractor for a layout kind.
func New(kind types.Kind) (Extractor, error) {
	switch kind {
	case types.KindRetention:
		return Retention{}, nil
	case types.KindPerception:
		return Perception{}, nil
	case types.KindFuel:
		return Fuel{}, nil
	default:
		return nil, fmt.Errorf("no extractor for layout %q", kind)
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// MissingConfigurationError lists every prerequisite a record lacks.
type MissingConfigurationError struct {
	// Record is the display name of the source record.
	Record string

	// Problems are remediation messages, one per missing item.
	Problems []string
}

// Error joins every problem with " | ".
func (e *MissingConfigurationError) Error() string {
	return strings.Join(e.Problems, " | ")
}

type problems struct {
	record string
	list   []string
}

func (p *problems) addf(format string, args ...any) {
	p.list = append(p.list, fmt.Sprintf(format, args...))
}

func (p *problems) err() error {
	if len(p.list) == 0 {
		return nil
	}
	return &MissingConfigurationError{Record: p.record, Problems: p.list}
}

// =============================================================================
// QUERY
// =============================================================================

// baseQuery maps the shared run settings to a ledger query.
func baseQuery(kind types.Kind, run *config.RunConfig) (ledger.Query, error) {
	from, to, err := run.Period()
	if err != nil {
		return ledger.Query{}, err
	}
	return ledger.Query{
		Kind:       kind,
		CompanyID:  run.CompanyID,
		DateFrom:   from,
		DateTo:     to,
		JournalIDs: run.JournalIDs,
		PartnerIDs: run.PartnerIDs,
	}, nil
}

// =============================================================================
// SHARED DERIVATIONS
// =============================================================================

// moveName returns the entry name for messages.
func moveName(line *ledger.MoveLine) string {
	if line.Move == nil {
		return "?"
	}
	return line.Move.Name
}

// paddedVAT keeps the digits of a tax ID and left-pads them to 11 with zeros.
func paddedVAT(vat string) string {
	digits := codec.DigitsOnly(vat)
	if len(digits) >= 11 {
		return digits
	}
	return strings.Repeat("0", 11-len(digits)) + digits
}

// stripLeadingZeros drops leading zeros so padding re-adds exactly what the
// field width needs: "0767" becomes "767", "000" becomes "0".
func stripLeadingZeros(code string) string {
	if code == "" {
		return ""
	}
	if s := strings.TrimLeft(code, "0"); s != "" {
		return s
	}
	return "0"
}

// taxCodes resolves the tax and regime codes of a line. The tax the line is
// the output of wins; otherwise the applied taxes are scanned for the first
// tax bearing each code.
func taxCodes(line *ledger.MoveLine) (taxCode, regimeCode string) {
	if t := line.TaxLine; t != nil {
		taxCode, regimeCode = t.TaxCode, t.RegimeCode
	}
	for _, t := range line.Taxes {
		if taxCode != "" && regimeCode != "" {
			break
		}
		if taxCode == "" && t.TaxCode != "" {
			taxCode = t.TaxCode
		}
		if regimeCode == "" && t.RegimeCode != "" {
			regimeCode = t.RegimeCode
		}
	}
	return taxCode, regimeCode
}

// documentCode is the entry's own document type, or the code mapped from its type.
func documentCode(m *ledger.Move, codes config.Codes) string {
	if m.DocumentTypeCode != "" {
		return m.DocumentTypeCode
	}
	return codes.DocumentType(string(m.Type))
}

// findInvoice follows the reconciliation links of the settlement lines of a
// move back to the first invoice they were matched with.
func findInvoice(m *ledger.Move, settles func(*ledger.Account) bool, accepts func(ledger.MoveType) bool) *ledger.Move {
	for _, l := range m.Lines {
		if !settles(l.Account) {
			continue
		}
		for _, other := range l.MatchedDebits {
			if other.Move != nil && accepts(other.Move.Type) {
				return other.Move
			}
		}
		for _, other := range l.MatchedCredits {
			if other.Move != nil && accepts(other.Move.Type) {
				return other.Move
			}
		}
	}
	return nil
}

// settlementTotal sums the absolute balances of the move's settlement lines.
func settlementTotal(m *ledger.Move, settles func(*ledger.Account) bool) decimal.Decimal {
	total := decimal.Zero
	for _, l := range m.Lines {
		if settles(l.Account) {
			total = total.Add(l.Balance.Abs())
		}
	}
	return total
}

// amounts is the resolved document amount and tax base of a record.
type amounts struct {
	transaction decimal.Decimal
	base        decimal.Decimal
	invoice     *ledger.Move
}

// fallbackAmounts uses the settlement entry itself: its total, and the sum of
// its settlement lines as base (or the total when they sum to zero).
func fallbackAmounts(m *ledger.Move, settles func(*ledger.Account) bool) amounts {
	transaction := m.AmountTotal.Abs()
	base := settlementTotal(m, settles)
	if !base.IsPositive() {
		base = transaction
	}
	return amounts{transaction: transaction, base: base}
}

// fromInvoice uses the invoice total and untaxed amount.
func fromInvoice(inv *ledger.Move) amounts {
	return amounts{
		transaction: inv.AmountTotal.Abs(),
		base:        inv.AmountUntaxed.Abs(),
		invoice:     inv,
	}
}

func settlementAccount(a *ledger.Account) bool {
	return a.IsSettlement()
}

func receivableAccount(a *ledger.Account) bool {
	return a != nil && a.Type == ledger.AccountReceivable
}

// =============================================================================
// SHARED VALIDATION
// =============================================================================

// checkPartnerAndCodes collects the prerequisites shared by retentions and
// perceptions.
func checkPartnerAndCodes(line *ledger.MoveLine) *problems {
	p := &problems{record: line.DisplayName()}

	if partner := line.Partner; partner == nil {
		p.addf("MISSING PARTNER: entry '%s' has no partner.", moveName(line))
	} else {
		if codec.DigitsOnly(partner.VAT) == "" {
			p.addf("MISSING PARTNER TAX ID: partner '%s' (ID: %d) has no tax ID. "+
				"Open the contact > 'Sales & Purchase' tab > 'Tax ID (CUIT)' field and enter it.",
				partner.Name, partner.ID)
		}
		if partner.DocumentTypeCode == "" {
			p.addf("MISSING DOCUMENT TYPE: partner '%s' (ID: %d) has no identification type. "+
				"Open the contact > 'Sales & Purchase' tab > 'Identification Type' field and choose one (CUIT, DNI, ...).",
				partner.Name, partner.ID)
		}
	}

	taxCode, regimeCode := taxCodes(line)
	if taxCode == "" {
		p.addf("MISSING TAX CODE: no tax code found for entry '%s'. "+
			"Accounting > Configuration > Taxes > open the tax used > 'Tax Code' field and enter it.",
			moveName(line))
	}
	if regimeCode == "" {
		p.addf("MISSING REGIME CODE: no regime code found for entry '%s'. "+
			"Accounting > Configuration > Taxes > open the tax used > 'Regime Code' field and enter it.",
			moveName(line))
	}
	return p
}
