package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ginjaninja78/sicore-export/internal/types"
)

// RegimeFilter restricts retention and perception exports by partner regime.
type RegimeFilter string

const (
	RegimeFilterAll        RegimeFilter = "all"
	RegimeFilterGeneral    RegimeFilter = "general"
	RegimeFilterSimplified RegimeFilter = "simplified"
)

// ParseRegimeFilter accepts all, general or simplified. Empty means all.
func ParseRegimeFilter(value string) (RegimeFilter, error) {
	switch f := RegimeFilter(strings.ToLower(strings.TrimSpace(value))); f {
	case "", RegimeFilterAll:
		return RegimeFilterAll, nil
	case RegimeFilterGeneral, RegimeFilterSimplified:
		return f, nil
	default:
		return RegimeFilterAll, fmt.Errorf("unknown partner regime %q (expected all, general or simplified)", value)
	}
}

// Query selects the move lines one export run covers.
type Query struct {
	// Kind is matched against the account export type.
	Kind types.Kind

	// CompanyID limits lines to one company. Zero matches any.
	CompanyID int

	// DateFrom and DateTo bound the line date, inclusive. Zero is unbounded.
	DateFrom time.Time
	DateTo   time.Time

	// JournalIDs and PartnerIDs are optional allow-lists.
	JournalIDs []int
	PartnerIDs []int

	// Regime applies to retention and perception queries only.
	Regime RegimeFilter
}

// Validate checks the date range.
func (q Query) Validate() error {
	if !q.DateFrom.IsZero() && !q.DateTo.IsZero() && q.DateFrom.After(q.DateTo) {
		return fmt.Errorf("date from %s is after date to %s",
			q.DateFrom.Format(time.DateOnly), q.DateTo.Format(time.DateOnly))
	}
	return nil
}

// Matches reports whether a line belongs to the query result.
func (q Query) Matches(l *MoveLine) bool {
	if l == nil || l.Move == nil || l.Account == nil {
		return false
	}
	if l.Account.ExportType != q.Kind {
		return false
	}

	m := l.Move
	if !m.State.Exportable() {
		return false
	}
	if q.CompanyID != 0 && (m.Company == nil || m.Company.ID != q.CompanyID) {
		return false
	}
	if m.Journal != nil && m.Journal.ExportType == JournalBudget {
		return false
	}

	d := l.EffectiveDate()
	if !q.DateFrom.IsZero() && d.Before(q.DateFrom) {
		return false
	}
	if !q.DateTo.IsZero() && d.After(q.DateTo) {
		return false
	}

	if len(q.JournalIDs) > 0 && (m.Journal == nil || !slices.Contains(q.JournalIDs, m.Journal.ID)) {
		return false
	}
	if len(q.PartnerIDs) > 0 && (l.Partner == nil || !slices.Contains(q.PartnerIDs, l.Partner.ID)) {
		return false
	}

	if q.Kind != types.KindFuel && q.Regime != "" && q.Regime != RegimeFilterAll {
		if l.Partner == nil {
			return false
		}
		simplified := l.Partner.Regime == RegimeSimplified
		if simplified != (q.Regime == RegimeFilterSimplified) {
			return false
		}
	}
	return true
}

// Source yields the move lines matching a query, in insertion order.
type Source interface {
	Search(ctx context.Context, q Query) ([]*MoveLine, error)
}
