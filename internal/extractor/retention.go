package extractor

import (
	"github.com/ginjaninja78/sicore-export/internal/codec"
	"github.com/ginjaninja78/sicore-export/internal/config"
	"github.com/ginjaninja78/sicore-export/internal/layout"
	"github.com/ginjaninja78/sicore-export/internal/ledger"
	"github.com/ginjaninja78/sicore-export/internal/types"
)

// Retention extracts withholding records from settlement entries.
type Retention struct{}

// Kind implements Extractor.
func (Retention) Kind() types.Kind { return types.KindRetention }

// Query implements Extractor.
func (Retention) Query(run *config.RunConfig) (ledger.Query, error) {
	return regimeQuery(types.KindRetention, run)
}

// Extract implements Extractor.
func (Retention) Extract(line *ledger.MoveLine, run *config.RunConfig) (types.RawValues, error) {
	if err := checkPartnerAndCodes(line).err(); err != nil {
		return nil, err
	}

	partner := line.Partner
	move := line.Move
	vat := paddedVAT(partner.VAT)
	taxCode, regimeCode := taxCodes(line)

	amt := retentionAmounts(move)
	source := move
	if amt.invoice != nil {
		source = amt.invoice
	}
	docDate := source.EffectiveInvoiceDate()

	return types.RawValues{
		layout.FieldDocumentCode:        documentCode(source, run.Codes),
		layout.FieldDocumentDate:        docDate,
		layout.FieldDocumentNumber:      codec.DigitsOnly(source.Name),
		layout.FieldDocumentAmount:      amt.transaction,
		layout.FieldTaxCode:             stripLeadingZeros(taxCode),
		layout.FieldRegimeCode:          stripLeadingZeros(regimeCode),
		layout.FieldOperationCode:       run.Codes.OperationCode,
		layout.FieldTaxBase:             amt.base,
		layout.FieldWithholdingDate:     line.EffectiveDate(),
		layout.FieldConditionCode:       run.Codes.ConditionCode,
		layout.FieldSuspendedSubjects:   run.Codes.SuspendedSubjects,
		layout.FieldWithholdingAmount:   line.Balance.Abs(),
		layout.FieldExclusionPercentage: run.Codes.ExclusionPercentage,
		layout.FieldValidityEndDate:     line.EffectiveDate(),
		layout.FieldSubjectDocumentType: partner.DocumentTypeCode,
		layout.FieldSubjectDocumentNum:  vat,
		layout.FieldOriginalCertificate: run.Codes.OriginalCertificate,
		layout.FieldOrderingPartyName:   partner.Name,
		layout.FieldSubjectCountryTaxID: vat,
		// Mirrors the withheld party until the ordering party is confirmed.
		layout.FieldOrderingPartyTaxID: vat,
	}, nil
}

// retentionAmounts resolves the document amount and tax base of a
// withholding. A reconciled invoice of any kind wins, then an explicit
// payment grossed up by its withholdings, then the entry itself.
func retentionAmounts(move *ledger.Move) amounts {
	if inv := findInvoice(move, settlementAccount, ledger.MoveType.IsInvoice); inv != nil {
		return fromInvoice(inv)
	}
	if p := move.Payment; p != nil && len(p.Withholdings) > 0 {
		gross := p.Amount.Abs()
		for _, w := range p.Withholdings {
			gross = gross.Add(w.Abs())
		}
		return amounts{transaction: gross, base: gross}
	}
	return fallbackAmounts(move, settlementAccount)
}

// regimeQuery adds the partner-regime filter used by retentions and perceptions.
func regimeQuery(kind types.Kind, run *config.RunConfig) (ledger.Query, error) {
	q, err := baseQuery(kind, run)
	if err != nil {
		return q, err
	}
	regime, err := ledger.ParseRegimeFilter(run.PartnerRegime)
	if err != nil {
		return q, err
	}
	q.Regime = regime
	return q, nil
}
