// =============================================================================
// SICORE Export - In-Memory Ledger Book
// =============================================================================
//
// Book is the Source implementation used by the CLI and the tests. It holds a
// company and its journal entries in memory and answers queries by scanning
// entries and lines in insertion order.
//
// YAML FORMAT:
//   Master data and entries are listed with integer IDs; entries and lines
//   refer to master data by ID. Reconciliation is declared on either side of
//   the pair with `reconciled_with: [line ids]` and linked both ways.
//
//   company:  {id: 1, name: TOSTADERO MANICOP S.R.L., vat: 30-70775330-3}
//   partners: [{id: 10, name: BARALE S.A. - 306, vat: 30543035064, document_type: "80", regime: general}]
//   taxes:    [{id: 5, name: Ganancias, tax_code: "0217", regime_code: "078"}]
//   accounts: [{id: 100, code: "2.1.3.01", name: Retenciones, type: other, export_type: retention}]
//   journals: [{id: 1, name: Pagos, export_type: real}]
//   moves:
//     - id: 500
//       name: OP 0001-00000042
//       type: entry
//       state: posted
//       date: 2025-09-27
//       journal: 1
//       lines:
//         - {id: 5001, partner: 10, account: 100, balance: "-1500.00", tax_line: 5}
//
// =============================================================================

package ledger

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/sicore-export/internal/types"
)

// =============================================================================
// BOOK
// =============================================================================

// Book is an in-memory ledger.
type Book struct {
	Company *Company
	Moves   []*Move
}

// NewBook creates an empty book for a company.
func NewBook(company *Company) *Book {
	return &Book{Company: company}
}

// AddMove appends an entry and wires its lines back to it. Moves without a
// company inherit the book's.
func (b *Book) AddMove(m *Move) *Move {
	if m.Company == nil {
		m.Company = b.Company
	}
	for _, l := range m.Lines {
		l.Move = m
	}
	b.Moves = append(b.Moves, m)
	return m
}

// Reconcile links a debit line and a credit line.
func Reconcile(debit, credit *MoveLine) {
	credit.MatchedDebits = append(credit.MatchedDebits, debit)
	debit.MatchedCredits = append(debit.MatchedCredits, credit)
}

// Search implements Source.
func (b *Book) Search(ctx context.Context, q Query) ([]*MoveLine, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var out []*MoveLine
	for _, m := range b.Moves {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, l := range m.Lines {
			if q.Matches(l) {
				out = append(out, l)
			}
		}
	}
	return out, nil
}

// =============================================================================
// YAML DOCUMENT
// =============================================================================

type bookDoc struct {
	Company  companyDoc   `yaml:"company"`
	Partners []partnerDoc `yaml:"partners"`
	Taxes    []taxDoc     `yaml:"taxes"`
	Accounts []accountDoc `yaml:"accounts"`
	Journals []journalDoc `yaml:"journals"`
	Moves    []moveDoc    `yaml:"moves"`
}

type companyDoc struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
	VAT  string `yaml:"vat"`
}

type partnerDoc struct {
	ID           int    `yaml:"id"`
	Name         string `yaml:"name"`
	VAT          string `yaml:"vat"`
	DocumentType string `yaml:"document_type"`
	Regime       string `yaml:"regime"`
}

type taxDoc struct {
	ID         int    `yaml:"id"`
	Name       string `yaml:"name"`
	TaxCode    string `yaml:"tax_code"`
	RegimeCode string `yaml:"regime_code"`
}

type accountDoc struct {
	ID         int    `yaml:"id"`
	Code       string `yaml:"code"`
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	ExportType string `yaml:"export_type"`
}

type journalDoc struct {
	ID         int    `yaml:"id"`
	Name       string `yaml:"name"`
	ExportType string `yaml:"export_type"`
}

type paymentDoc struct {
	ID           int      `yaml:"id"`
	Name         string   `yaml:"name"`
	Amount       string   `yaml:"amount"`
	Withholdings []string `yaml:"withholdings"`
}

type moveDoc struct {
	ID            int         `yaml:"id"`
	Name          string      `yaml:"name"`
	Type          string      `yaml:"type"`
	State         string      `yaml:"state"`
	Date          string      `yaml:"date"`
	InvoiceDate   string      `yaml:"invoice_date"`
	DocumentType  string      `yaml:"document_type"`
	AmountTotal   string      `yaml:"amount_total"`
	AmountUntaxed string      `yaml:"amount_untaxed"`
	Journal       int         `yaml:"journal"`
	Payment       *paymentDoc `yaml:"payment"`
	Lines         []lineDoc   `yaml:"lines"`
}

type lineDoc struct {
	ID             int    `yaml:"id"`
	Name           string `yaml:"name"`
	Partner        int    `yaml:"partner"`
	Account        int    `yaml:"account"`
	Balance        string `yaml:"balance"`
	Date           string `yaml:"date"`
	TaxLine        int    `yaml:"tax_line"`
	Taxes          []int  `yaml:"taxes"`
	ReconciledWith []int  `yaml:"reconciled_with"`
}

// =============================================================================
// LOADING
// =============================================================================

// LoadBook reads a YAML ledger file.
func LoadBook(path string) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file '%s': %w", path, err)
	}
	book, err := ParseBook(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger file '%s': %w", path, err)
	}
	return book, nil
}

// ParseBook decodes a YAML ledger document and resolves every reference.
func ParseBook(data []byte) (*Book, error) {
	var doc bookDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	r := &resolver{
		partners: make(map[int]*Partner),
		taxes:    make(map[int]*Tax),
		accounts: make(map[int]*Account),
		journals: make(map[int]*Journal),
		lines:    make(map[int]*MoveLine),
	}
	return r.build(doc)
}

type resolver struct {
	partners map[int]*Partner
	taxes    map[int]*Tax
	accounts map[int]*Account
	journals map[int]*Journal
	lines    map[int]*MoveLine
}

func (r *resolver) build(doc bookDoc) (*Book, error) {
	book := NewBook(&Company{ID: doc.Company.ID, Name: doc.Company.Name, VAT: doc.Company.VAT})

	for _, p := range doc.Partners {
		r.partners[p.ID] = &Partner{
			ID:               p.ID,
			Name:             p.Name,
			VAT:              p.VAT,
			DocumentTypeCode: p.DocumentType,
			Regime:           Regime(strings.ToLower(p.Regime)),
		}
	}
	for _, t := range doc.Taxes {
		r.taxes[t.ID] = &Tax{ID: t.ID, Name: t.Name, TaxCode: t.TaxCode, RegimeCode: t.RegimeCode}
	}
	for _, a := range doc.Accounts {
		acc := &Account{ID: a.ID, Code: a.Code, Name: a.Name, Type: AccountType(strings.ToLower(a.Type))}
		if acc.Type == "" {
			acc.Type = AccountOther
		}
		if a.ExportType != "" {
			kind, err := types.ParseKind(a.ExportType)
			if err != nil {
				return nil, fmt.Errorf("account %d: %w", a.ID, err)
			}
			acc.ExportType = kind
		}
		r.accounts[a.ID] = acc
	}
	for _, j := range doc.Journals {
		jt := JournalExportType(strings.ToLower(j.ExportType))
		if jt == "" {
			jt = JournalReal
		}
		r.journals[j.ID] = &Journal{ID: j.ID, Name: j.Name, ExportType: jt}
	}

	links := make(map[int][]int)
	for _, md := range doc.Moves {
		m, err := r.move(md, links)
		if err != nil {
			return nil, err
		}
		book.AddMove(m)
	}

	// Reconciliation links are resolved once every line exists.
	for _, id := range slices.Sorted(maps.Keys(links)) {
		line := r.lines[id]
		others := links[id]
		for _, otherID := range others {
			other, ok := r.lines[otherID]
			if !ok {
				return nil, fmt.Errorf("line %d: reconciled with unknown line %d", id, otherID)
			}
			if alreadyLinked(line, other) {
				continue
			}
			if line.Balance.IsPositive() {
				Reconcile(line, other)
			} else {
				Reconcile(other, line)
			}
		}
	}
	return book, nil
}

func (r *resolver) move(md moveDoc, links map[int][]int) (*Move, error) {
	m := &Move{
		ID:               md.ID,
		Name:             md.Name,
		Type:             MoveType(strings.ToLower(md.Type)),
		State:            MoveState(strings.ToLower(md.State)),
		DocumentTypeCode: md.DocumentType,
	}
	if m.Type == "" {
		m.Type = MoveEntry
	}
	if m.State == "" {
		m.State = StatePosted
	}

	var err error
	if m.Date, err = parseDate(md.Date); err != nil {
		return nil, fmt.Errorf("move %d: %w", md.ID, err)
	}
	if m.InvoiceDate, err = parseDate(md.InvoiceDate); err != nil {
		return nil, fmt.Errorf("move %d: %w", md.ID, err)
	}
	if m.AmountTotal, err = parseAmount(md.AmountTotal); err != nil {
		return nil, fmt.Errorf("move %d: %w", md.ID, err)
	}
	if m.AmountUntaxed, err = parseAmount(md.AmountUntaxed); err != nil {
		return nil, fmt.Errorf("move %d: %w", md.ID, err)
	}
	if md.Journal != 0 {
		j, ok := r.journals[md.Journal]
		if !ok {
			return nil, fmt.Errorf("move %d: unknown journal %d", md.ID, md.Journal)
		}
		m.Journal = j
	}
	if md.Payment != nil {
		p := &Payment{ID: md.Payment.ID, Name: md.Payment.Name}
		if p.Amount, err = parseAmount(md.Payment.Amount); err != nil {
			return nil, fmt.Errorf("move %d payment: %w", md.ID, err)
		}
		for _, w := range md.Payment.Withholdings {
			d, err := parseAmount(w)
			if err != nil {
				return nil, fmt.Errorf("move %d payment withholding: %w", md.ID, err)
			}
			p.Withholdings = append(p.Withholdings, d)
		}
		m.Payment = p
	}

	for _, ld := range md.Lines {
		l, err := r.line(ld)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", md.ID, err)
		}
		if len(ld.ReconciledWith) > 0 {
			links[ld.ID] = append(links[ld.ID], ld.ReconciledWith...)
		}
		m.Lines = append(m.Lines, l)
	}
	return m, nil
}

func (r *resolver) line(ld lineDoc) (*MoveLine, error) {
	if _, dup := r.lines[ld.ID]; dup {
		return nil, fmt.Errorf("duplicate line id %d", ld.ID)
	}
	l := &MoveLine{ID: ld.ID, Name: ld.Name}

	var err error
	if l.Balance, err = parseAmount(ld.Balance); err != nil {
		return nil, fmt.Errorf("line %d: %w", ld.ID, err)
	}
	if l.Date, err = parseDate(ld.Date); err != nil {
		return nil, fmt.Errorf("line %d: %w", ld.ID, err)
	}
	if ld.Partner != 0 {
		p, ok := r.partners[ld.Partner]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown partner %d", ld.ID, ld.Partner)
		}
		l.Partner = p
	}
	if ld.Account != 0 {
		a, ok := r.accounts[ld.Account]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown account %d", ld.ID, ld.Account)
		}
		l.Account = a
	}
	if ld.TaxLine != 0 {
		t, ok := r.taxes[ld.TaxLine]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown tax %d", ld.ID, ld.TaxLine)
		}
		l.TaxLine = t
	}
	for _, id := range ld.Taxes {
		t, ok := r.taxes[id]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown tax %d", ld.ID, id)
		}
		l.Taxes = append(l.Taxes, t)
	}

	r.lines[ld.ID] = l
	return l, nil
}

func alreadyLinked(a, b *MoveLine) bool {
	for _, x := range a.MatchedDebits {
		if x == b {
			return true
		}
	}
	for _, x := range a.MatchedCredits {
		if x == b {
			return true
		}
	}
	return false
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return t, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}
