// =============================================================================
// SICORE Export - Layout Registry
// =============================================================================
//
// This package defines the three built-in record layouts and the registry the
// CLI resolves them from.
//
// LAYOUTS:
//   - retention  : fixed-width, 20 fields, 197 characters per line
//   - perception : fixed-width, 17 fields, 145 characters per line
//   - fuel       : ';'-delimited, 11 fields, unpadded
//
// Field names are the wire-format identifiers published for each record and
// double as the keys extractors populate in types.RawValues.
//
// CUSTOMIZATION:
//   Layouts can be overridden with XLSX templates (see internal/xlsxparser).
//   Every layout, built-in or loaded, goes through Validate before use.
//
// =============================================================================

package layout

import (
	"fmt"
	"sort"
	"sync"
	"unicode"

	"github.com/ginjaninja78/sicore-export/internal/types"
)

// =============================================================================
// FIELD NAMES
// =============================================================================

const (
	FieldDocumentCode         = "codigo_comprobante"
	FieldDocumentDate         = "fecha_emision_comprobante"
	FieldDocumentNumber       = "numero_comprobante"
	FieldDocumentAmount       = "importe_comprobante"
	FieldTaxCode              = "codigo_impuesto"
	FieldRegimeCode           = "codigo_regimen"
	FieldOperationCode        = "codigo_operacion"
	FieldTaxBase              = "base_calculo"
	FieldWithholdingDate      = "fecha_emision_retencion"
	FieldConditionCode        = "codigo_condicion"
	FieldSuspendedSubjects    = "retencion_practicada_sujetos_suspendidos"
	FieldWithholdingAmount    = "importe_retencion"
	FieldExclusionPercentage  = "porcentaje_exclusion"
	FieldValidityEndDate      = "fecha_publicacion_finalizacion_vigencia"
	FieldBulletinDate         = "fecha_emision_boletin"
	FieldSubjectDocumentType  = "tipo_documento_retenido"
	FieldSubjectDocumentNum   = "numero_documento_retenido"
	FieldOriginalCertificate  = "numero_certificado_original"
	FieldOrderingPartyName    = "denominacion_ordenante"
	FieldSubjectCountryTaxID  = "cuit_pais_retenido"
	FieldOrderingPartyTaxID   = "cuit_ordenante"
	FieldFuelRecordCode       = "codigo_registro"
	FieldFuelProviderName     = "razon_social_proveedor"
	FieldFuelProviderTaxID    = "cuit_proveedor"
	FieldFuelDocumentDate     = "fecha_comprobante"
	FieldFuelClientName       = "razon_social_cliente"
	FieldFuelClientTaxID      = "cuit_cliente"
	FieldFuelConstantCode     = "codigo_constante"
	FieldFuelAmount           = "importe"
)

// Documented record widths of the fixed-width layouts.
const (
	RetentionWidth  = 197
	PerceptionWidth = 145
)

// =============================================================================
// SPEC HELPERS
// =============================================================================

// zeroText is a required, right-justified, zero-filled text field.
func zeroText(name string, length int) types.FieldSpec {
	return types.FieldSpec{
		Name:     name,
		Type:     types.FieldText,
		Length:   length,
		Padding:  types.PadLeft,
		FillChar: '0',
		Required: true,
	}
}

func amount(name string, length int) types.FieldSpec {
	return types.FieldSpec{
		Name:     name,
		Type:     types.FieldDecimalComma,
		Length:   length,
		Padding:  types.PadLeft,
		FillChar: '0',
		Required: true,
		Decimals: 2,
	}
}

func slashDate(name string) types.FieldSpec {
	return types.FieldSpec{
		Name:       name,
		Type:       types.FieldDate,
		Length:     10,
		Padding:    types.PadRight,
		FillChar:   ' ',
		Required:   true,
		DateFormat: "DD/MM/YYYY",
	}
}

func optional(spec types.FieldSpec) types.FieldSpec {
	spec.Required = false
	return spec
}

// commonHead is the 13-field prefix shared by retentions and perceptions
// (positions 1 to 99).
func commonHead() []types.FieldSpec {
	return []types.FieldSpec{
		zeroText(FieldDocumentCode, 2),
		slashDate(FieldDocumentDate),
		zeroText(FieldDocumentNumber, 16),
		amount(FieldDocumentAmount, 16),
		zeroText(FieldTaxCode, 4),
		zeroText(FieldRegimeCode, 3),
		zeroText(FieldOperationCode, 1),
		amount(FieldTaxBase, 14),
		slashDate(FieldWithholdingDate),
		zeroText(FieldConditionCode, 2),
		zeroText(FieldSuspendedSubjects, 1),
		amount(FieldWithholdingAmount, 14),
		optional(zeroText(FieldExclusionPercentage, 6)),
	}
}

// =============================================================================
// BUILT-IN LAYOUTS
// =============================================================================

// Retention returns the 197-character withholding layout.
func Retention() *types.Layout {
	fields := commonHead()
	fields = append(fields,
		slashDate(FieldValidityEndDate),
		zeroText(FieldSubjectDocumentType, 2),
		zeroText(FieldSubjectDocumentNum, 20),
		zeroText(FieldOriginalCertificate, 14),
		// Right-justified name, spaces on the left.
		types.FieldSpec{
			Name:     FieldOrderingPartyName,
			Type:     types.FieldText,
			Length:   30,
			Padding:  types.PadLeft,
			FillChar: ' ',
			Required: true,
		},
		zeroText(FieldSubjectCountryTaxID, 11),
		zeroText(FieldOrderingPartyTaxID, 11),
	)
	return &types.Layout{
		Name:        "retenciones",
		Kind:        types.KindRetention,
		Fields:      fields,
		Decimals:    types.CommaDecimal,
		RecordWidth: RetentionWidth,
	}
}

// Perception returns the 145-character perception layout.
func Perception() *types.Layout {
	fields := commonHead()
	fields = append(fields,
		// Fixed placeholder, so text rather than date.
		zeroText(FieldBulletinDate, 10),
		zeroText(FieldSubjectDocumentType, 2),
		zeroText(FieldSubjectDocumentNum, 20),
		zeroText(FieldOriginalCertificate, 14),
	)
	return &types.Layout{
		Name:        "percepciones",
		Kind:        types.KindPerception,
		Fields:      fields,
		Decimals:    types.CommaDecimal,
		RecordWidth: PerceptionWidth,
	}
}

// Fuel returns the semicolon-delimited fuel purchase layout.
func Fuel() *types.Layout {
	text := func(name string) types.FieldSpec {
		return types.FieldSpec{Name: name, Type: types.FieldText, Required: true}
	}
	cuit := func(name string) types.FieldSpec {
		return types.FieldSpec{Name: name, Type: types.FieldNationalTaxID, Required: true}
	}
	return &types.Layout{
		Name:      "combustibles",
		Kind:      types.KindFuel,
		Separator: ";",
		Decimals:  types.CommaDecimal,
		Fields: []types.FieldSpec{
			text(FieldFuelRecordCode),
			text(FieldFuelProviderName),
			cuit(FieldFuelProviderTaxID),
			text(FieldTaxCode),
			text(FieldRegimeCode),
			text(FieldDocumentNumber),
			{Name: FieldFuelDocumentDate, Type: types.FieldDate, Required: true, DateFormat: "DDMMYYYY"},
			text(FieldFuelClientName),
			cuit(FieldFuelClientTaxID),
			text(FieldFuelConstantCode),
			{Name: FieldFuelAmount, Type: types.FieldDecimalComma, Required: true, Decimals: 2},
		},
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the structural invariants of a layout: unique non-empty
// field names, a length on every fixed-width field, ASCII fill characters,
// a single-character separator, and a total width matching RecordWidth when
// one is documented.
func Validate(l *types.Layout) error {
	if l == nil {
		return fmt.Errorf("layout is nil")
	}
	if len(l.Fields) == 0 {
		return fmt.Errorf("layout %q has no fields", l.Name)
	}
	if len([]rune(l.Separator)) > 1 {
		return fmt.Errorf("layout %q: separator %q must be a single character", l.Name, l.Separator)
	}

	seen := make(map[string]bool, len(l.Fields))
	for i, f := range l.Fields {
		if f.Name == "" {
			return fmt.Errorf("layout %q: field %d has no name", l.Name, i+1)
		}
		if seen[f.Name] {
			return fmt.Errorf("layout %q: duplicate field %q", l.Name, f.Name)
		}
		seen[f.Name] = true

		if f.Length < 0 {
			return fmt.Errorf("layout %q: field %q has negative length", l.Name, f.Name)
		}
		if l.FixedWidth() && f.Length == 0 {
			return fmt.Errorf("layout %q: fixed-width field %q needs a length", l.Name, f.Name)
		}
		if f.Decimals < 0 {
			return fmt.Errorf("layout %q: field %q has negative decimals", l.Name, f.Name)
		}
		if f.Fill() > unicode.MaxASCII {
			return fmt.Errorf("layout %q: field %q fill character %q must be ASCII", l.Name, f.Name, f.Fill())
		}
	}

	if l.FixedWidth() && l.RecordWidth > 0 && l.Width() != l.RecordWidth {
		return fmt.Errorf("layout %q: field lengths sum to %d, record width is %d", l.Name, l.Width(), l.RecordWidth)
	}
	return nil
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry maps layout kinds to layouts. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	layouts map[types.Kind]*types.Layout
}

// NewRegistry returns a registry holding the three built-in layouts.
func NewRegistry() *Registry {
	r := &Registry{layouts: make(map[types.Kind]*types.Layout)}
	for _, l := range []*types.Layout{Retention(), Perception(), Fuel()} {
		r.layouts[l.Kind] = l
	}
	return r
}

// Register validates a layout and replaces the one of the same kind.
func (r *Registry) Register(l *types.Layout) error {
	if err := Validate(l); err != nil {
		return err
	}
	if _, err := types.ParseKind(string(l.Kind)); err != nil {
		return fmt.Errorf("layout %q: %w", l.Name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layouts[l.Kind] = l
	return nil
}

// Get returns the layout for a kind.
func (r *Registry) Get(kind types.Kind) (*types.Layout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.layouts[kind]
	if !ok {
		return nil, fmt.Errorf("no layout registered for %q", kind)
	}
	return l, nil
}

// All returns the registered layouts sorted by name.
func (r *Registry) All() []*types.Layout {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*types.Layout, 0, len(r.layouts))
	for _, l := range r.layouts {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
