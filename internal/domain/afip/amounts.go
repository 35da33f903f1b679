// Package afip contiene reglas de dominio para informar comprobantes a AFIP:
// agregación de importes y el payload transitorio de la llamada remota.
package afip

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/afipws-caea/internal/domain/entity"
)

// Códigos de alícuota de IVA (FEParamGetTiposIva) con tratamiento especial.
const (
	VATCodeNotApplicable = "0" // Comprobantes C: no se discrimina IVA
	VATCodeUntaxed       = "1" // No gravado
	VATCodeExempt        = "2" // Exento
)

// Amounts importes agregados que exige el detalle AFIP.
type Amounts struct {
	VATTaxableAmount     decimal.Decimal // ImpNeto
	VATAmount            decimal.Decimal // ImpIVA
	NotVATTaxesAmount    decimal.Decimal // ImpTrib
	VATExemptBaseAmount  decimal.Decimal // ImpOpEx
	VATUntaxedBaseAmount decimal.Decimal // ImpTotConc
}

// ComputeAmounts agrega los importes del comprobante a partir de sus líneas.
func ComputeAmounts(inv *entity.Invoice) Amounts {
	var a Amounts
	for _, l := range inv.ProductLines() {
		vat := vatGroup(l)
		switch {
		case vat == nil || vat.VATAfipCode == VATCodeUntaxed:
			a.VATUntaxedBaseAmount = a.VATUntaxedBaseAmount.Add(l.PriceSubtotal)
		case vat.VATAfipCode == VATCodeExempt:
			a.VATExemptBaseAmount = a.VATExemptBaseAmount.Add(l.PriceSubtotal)
		case vat.VATAfipCode == VATCodeNotApplicable:
		default:
			a.VATTaxableAmount = a.VATTaxableAmount.Add(l.PriceSubtotal)
		}
	}
	for _, l := range inv.TaxLines() {
		if l.TaxLine.Group.Kind == entity.TaxGroupVAT {
			a.VATAmount = a.VATAmount.Add(l.PriceSubtotal)
		} else {
			a.NotVATTaxesAmount = a.NotVATTaxesAmount.Add(l.PriceSubtotal)
		}
	}
	return a
}

func vatGroup(l *entity.InvoiceLine) *entity.TaxGroup {
	for i := range l.Taxes {
		if l.Taxes[i].Group.Kind == entity.TaxGroupVAT {
			return &l.Taxes[i].Group
		}
	}
	return nil
}
