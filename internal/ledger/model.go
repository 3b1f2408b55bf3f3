// =============================================================================
// SICORE Export - Accounting Model
// =============================================================================
//
// This package models the slice of an accounting ledger the export reads:
// companies, partners, taxes, accounts, journals, journal entries (moves),
// their lines, and the reconciliation links between lines.
//
// The exporter never writes to a ledger. A Source hands back move lines that
// match a Query, in insertion order, and the extractors walk the object graph
// from there (line -> move -> sibling lines -> reconciled invoice).
//
// =============================================================================

package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/sicore-export/internal/types"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

// MoveType is the category of a journal entry.
type MoveType string

const (
	MoveEntry      MoveType = "entry"
	MoveOutInvoice MoveType = "out_invoice"
	MoveInInvoice  MoveType = "in_invoice"
	MoveOutRefund  MoveType = "out_refund"
	MoveInRefund   MoveType = "in_refund"
)

// IsInvoice reports whether the move is an invoice or credit note.
func (t MoveType) IsInvoice() bool {
	switch t {
	case MoveOutInvoice, MoveInInvoice, MoveOutRefund, MoveInRefund:
		return true
	}
	return false
}

// IsCustomerInvoice reports whether the move is a sale invoice or credit note.
func (t MoveType) IsCustomerInvoice() bool {
	return t == MoveOutInvoice || t == MoveOutRefund
}

// MoveState is the lifecycle state of a journal entry.
type MoveState string

const (
	StateDraft  MoveState = "draft"
	StatePosted MoveState = "posted"
	StatePaid   MoveState = "paid"
	StateCancel MoveState = "cancel"
)

// Exportable reports whether entries in this state are exported.
func (s MoveState) Exportable() bool {
	return s == StatePosted || s == StatePaid
}

// AccountType distinguishes settlement accounts from the rest.
type AccountType string

const (
	AccountReceivable AccountType = "receivable"
	AccountPayable    AccountType = "payable"
	AccountOther      AccountType = "other"
)

// JournalExportType flags whether a journal feeds the export.
type JournalExportType string

const (
	JournalReal   JournalExportType = "real"
	JournalBudget JournalExportType = "budget"
	JournalBoth   JournalExportType = "both"
)

// Regime is a partner's tax regime.
type Regime string

const (
	RegimeNone       Regime = ""
	RegimeGeneral    Regime = "general"
	RegimeSimplified Regime = "simplified"
)

// =============================================================================
// MASTER DATA
// =============================================================================

// Company is the exporting organisation.
type Company struct {
	ID   int
	Name string
	VAT  string
}

// Partner is a counterparty (supplier, customer, fuel provider).
type Partner struct {
	ID   int
	Name string
	VAT  string

	// DocumentTypeCode is the identification type code (80 = CUIT, 96 = DNI, ...).
	DocumentTypeCode string

	Regime Regime
}

// Tax carries the tax and regime codes configured for an applied tax.
type Tax struct {
	ID         int
	Name       string
	TaxCode    string
	RegimeCode string
}

// Account is a ledger account.
type Account struct {
	ID   int
	Code string
	Name string
	Type AccountType

	// ExportType marks which layout the account feeds. Empty means none.
	ExportType types.Kind
}

// IsSettlement reports whether the account is receivable or payable.
func (a *Account) IsSettlement() bool {
	return a != nil && (a.Type == AccountReceivable || a.Type == AccountPayable)
}

// Journal groups entries.
type Journal struct {
	ID         int
	Name       string
	ExportType JournalExportType
}

// =============================================================================
// ENTRIES
// =============================================================================

// Payment is an explicit settlement document attached to a move. Its
// withholding sub-lines are amounts retained when paying.
type Payment struct {
	ID           int
	Name         string
	Amount       decimal.Decimal
	Withholdings []decimal.Decimal
}

// Move is a journal entry: an invoice, credit note, payment or plain entry.
type Move struct {
	ID          int
	Name        string
	Type        MoveType
	State       MoveState
	Date        time.Time
	InvoiceDate time.Time

	// DocumentTypeCode is the localized document type (e.g. "01"). Empty
	// means the code is derived from Type.
	DocumentTypeCode string

	AmountTotal   decimal.Decimal
	AmountUntaxed decimal.Decimal

	Journal *Journal
	Company *Company
	Payment *Payment
	Lines   []*MoveLine
}

// EffectiveInvoiceDate is the invoice date, or the accounting date when unset.
func (m *Move) EffectiveInvoiceDate() time.Time {
	if !m.InvoiceDate.IsZero() {
		return m.InvoiceDate
	}
	return m.Date
}

// MoveLine is one line of a journal entry.
type MoveLine struct {
	ID      int
	Name    string
	Move    *Move
	Partner *Partner
	Account *Account
	Balance decimal.Decimal
	Date    time.Time

	// TaxLine is set when this line is the output of a tax computation.
	TaxLine *Tax

	// Taxes are the taxes applied on this line.
	Taxes []*Tax

	// MatchedDebits are debit lines this line is reconciled against.
	MatchedDebits []*MoveLine

	// MatchedCredits are credit lines this line is reconciled against.
	MatchedCredits []*MoveLine
}

// EffectiveDate is the line date, or the move date when unset.
func (l *MoveLine) EffectiveDate() time.Time {
	if !l.Date.IsZero() || l.Move == nil {
		return l.Date
	}
	return l.Move.Date
}

// DisplayName identifies the line in logs and error messages. It is safe to
// call on a nil line.
func (l *MoveLine) DisplayName() string {
	if l == nil {
		return "<nil record>"
	}
	move := "?"
	if l.Move != nil && l.Move.Name != "" {
		move = l.Move.Name
	}
	switch {
	case l.Name != "":
		return fmt.Sprintf("%s - %s", move, l.Name)
	case l.Account != nil:
		return fmt.Sprintf("%s - %s %s", move, l.Account.Code, l.Account.Name)
	default:
		return move
	}
}
