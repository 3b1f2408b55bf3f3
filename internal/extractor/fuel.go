package extractor

import (
	"github.com/ginjaninja78/sicore-export/internal/codec"
	"github.com/ginjaninja78/sicore-export/internal/config"
	"github.com/ginjaninja78/sicore-export/internal/layout"
	"github.com/ginjaninja78/sicore-export/internal/ledger"
	"github.com/ginjaninja78/sicore-export/internal/types"
)

// Fuel extracts fuel purchase records. The provider is the line's partner;
// the client is the exporting company.
//
// Output shape:
//
//	C;PROVIDER;PROVIDER_CUIT;5;001;NUMBER;DDMMYYYY;CLIENT;CLIENT_CUIT;3;AMOUNT
type Fuel struct{}

// Kind implements Extractor.
func (Fuel) Kind() types.Kind { return types.KindFuel }

// Query implements Extractor. Fuel ignores the partner regime filter.
func (Fuel) Query(run *config.RunConfig) (ledger.Query, error) {
	return baseQuery(types.KindFuel, run)
}

// Extract implements Extractor.
func (Fuel) Extract(line *ledger.MoveLine, run *config.RunConfig) (types.RawValues, error) {
	p := &problems{record: line.DisplayName()}

	partner := line.Partner
	if partner == nil {
		p.addf("MISSING PARTNER: entry '%s' has no partner (provider).", moveName(line))
	} else if codec.DigitsOnly(partner.VAT) == "" {
		p.addf("MISSING PROVIDER TAX ID: provider '%s' (ID: %d) has no tax ID. "+
			"Open the provider contact > 'Sales & Purchase' tab > 'Tax ID (CUIT)' field and enter it.",
			partner.Name, partner.ID)
	}

	var company *ledger.Company
	if line.Move != nil {
		company = line.Move.Company
	}
	if company == nil || codec.DigitsOnly(company.VAT) == "" {
		name := "?"
		if company != nil {
			name = company.Name
		}
		p.addf("MISSING COMPANY TAX ID: company '%s' has no tax ID. "+
			"Settings > Companies > select '%s' > 'General Information' tab > 'Tax ID (CUIT)' field and enter it.",
			name, name)
	}

	if line.Account == nil || line.Account.ExportType != types.KindFuel {
		account := "?"
		if line.Account != nil {
			account = line.Account.Name
		}
		p.addf("ACCOUNT NOT CONFIGURED: entry '%s' uses account '%s', which is not marked as Fuel. "+
			"Open account '%s' > 'Configuration' tab > 'Export Type' field and select 'Fuel'.",
			moveName(line), account, account)
	}

	if err := p.err(); err != nil {
		return nil, err
	}

	move := line.Move
	return types.RawValues{
		layout.FieldFuelRecordCode:    run.Codes.FuelRecordCode,
		layout.FieldFuelProviderName:  partner.Name,
		layout.FieldFuelProviderTaxID: codec.DigitsOnly(partner.VAT),
		layout.FieldTaxCode:           run.Codes.FuelTaxCode,
		layout.FieldRegimeCode:        run.Codes.FuelRegimeCode,
		layout.FieldDocumentNumber:    codec.DigitsOnly(move.Name),
		layout.FieldFuelDocumentDate:  move.EffectiveInvoiceDate(),
		layout.FieldFuelClientName:    company.Name,
		layout.FieldFuelClientTaxID:   codec.DigitsOnly(company.VAT),
		layout.FieldFuelConstantCode:  run.Codes.FuelConstantCode,
		layout.FieldFuelAmount:        line.Balance.Abs(),
	}, nil
}
