package extractor

import (
	"github.com/ginjaninja78/sicore-export/internal/codec"
	"github.com/ginjaninja78/sicore-export/internal/config"
	"github.com/ginjaninja78/sicore-export/internal/layout"
	"github.com/ginjaninja78/sicore-export/internal/ledger"
	"github.com/ginjaninja78/sicore-export/internal/types"
)

// Perception extracts perception records from customer collections.
type Perception struct{}

// Kind implements Extractor.
func (Perception) Kind() types.Kind { return types.KindPerception }

// Query implements Extractor.
func (Perception) Query(run *config.RunConfig) (ledger.Query, error) {
	return regimeQuery(types.KindPerception, run)
}

// Extract implements Extractor.
func (Perception) Extract(line *ledger.MoveLine, run *config.RunConfig) (types.RawValues, error) {
	if err := checkPartnerAndCodes(line).err(); err != nil {
		return nil, err
	}

	partner := line.Partner
	move := line.Move
	taxCode, regimeCode := taxCodes(line)

	// Only receivable lines and customer documents lead to the invoice.
	amt := fallbackAmounts(move, receivableAccount)
	if inv := findInvoice(move, receivableAccount, ledger.MoveType.IsCustomerInvoice); inv != nil {
		amt = fromInvoice(inv)
	}
	source := move
	if amt.invoice != nil {
		source = amt.invoice
	}

	return types.RawValues{
		layout.FieldDocumentCode:        documentCode(source, run.Codes),
		layout.FieldDocumentDate:        source.EffectiveInvoiceDate(),
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
		layout.FieldBulletinDate:        run.Codes.BulletinDate,
		layout.FieldSubjectDocumentType: partner.DocumentTypeCode,
		layout.FieldSubjectDocumentNum:  paddedVAT(partner.VAT),
		layout.FieldOriginalCertificate: run.Codes.OriginalCertificate,
	}, nil
}
