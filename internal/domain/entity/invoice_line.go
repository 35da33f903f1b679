package entity

import "github.com/shopspring/decimal"

// Tipos de grupo de impuesto.
const (
	TaxGroupVAT    = "vat"
	TaxGroupNotVAT = "not_vat"
)

// TaxGroup agrupa impuestos con el mismo tratamiento ante AFIP.
type TaxGroup struct {
	ID              string
	Name            string
	Kind            string // vat | not_vat
	VATAfipCode     string // 0 no corresponde, 1 no gravado, 2 exento, 3..9 alícuotas
	TributeAfipCode string // Código de tributo (FEParamGetTiposTributos), vacío si no aplica
}

// Tax impuesto aplicado a una línea.
type Tax struct {
	ID    string
	Name  string
	Group TaxGroup
}

// InvoiceLine línea del comprobante: de producto (Taxes) o de impuesto (TaxLine != nil).
type InvoiceLine struct {
	ID            string
	InvoiceID     string
	Name          string
	PriceSubtotal decimal.Decimal
	Taxes         []Tax
	TaxLine       *Tax
}

// HasTaxGroupTribute indica si la línea lleva algún impuesto con el código de tributo dado.
func (l *InvoiceLine) HasTaxGroupTribute(code string) bool {
	for _, t := range l.Taxes {
		if t.Group.TributeAfipCode == code {
			return true
		}
	}
	return false
}
