package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/afipws-caea/internal/domain"
	"github.com/jhoicas/afipws-caea/internal/domain/afip"
	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	pkgafip "github.com/jhoicas/afipws-caea/pkg/afip"
)

// PayloadInput estado necesario para armar la llamada de un comprobante.
type PayloadInput struct {
	Invoice         *entity.Invoice
	Journal         *entity.Journal
	Company         *entity.Company
	Partner         *entity.Partner // nil = receptor no identificado
	Related         *entity.Invoice // comprobante asociado; nil si no hay
	FCETransmission string
}

// BuildPayload arma el payload de FECAEARegInformativo. Es una función pura del estado recibido.
func BuildPayload(in PayloadInput) (*afip.Payload, error) {
	return buildPayload(in, true)
}

// BuildCAEPayload arma el payload de FECAESolicitar (sin CAEA ni fecha de generación).
func BuildCAEPayload(in PayloadInput) (*afip.Payload, error) {
	return buildPayload(in, false)
}

func buildPayload(in PayloadInput, caea bool) (*afip.Payload, error) {
	inv, ws := in.Invoice, in.Journal.AfipWS
	docType := inv.DocumentTypeCode

	parts, err := pkgafip.SplitDocumentNumber(inv.DocumentNumber, docType)
	if err != nil {
		return nil, fmt.Errorf("comprobante %s: %w", inv.ID, err)
	}

	tipoDoc, nroDoc := pkgafip.BuyerDocTypeUnidentified, "0"
	if in.Partner != nil && in.Partner.IdentificationAfipCode != "" {
		tipoDoc, nroDoc = in.Partner.IdentificationAfipCode, in.Partner.VAT
	}

	amounts := afip.ComputeAmounts(inv)
	neto := amounts.VATTaxableAmount
	if inv.DocumentLetter == "C" {
		neto = inv.AmountUntaxed
	}

	c := afip.Comprobante{
		Concepto:   inv.Concept,
		TipoDoc:    tipoDoc,
		NroDoc:     nroDoc,
		TipoCbte:   docType,
		PuntoVta:   in.Journal.POSNumber,
		CbtDesde:   parts.InvoiceNumber,
		CbtHasta:   parts.InvoiceNumber,
		ImpTotal:   pkgafip.FormatAmount(inv.AmountTotal),
		ImpTotConc: pkgafip.FormatAmount(amounts.VATUntaxedBaseAmount),
		ImpNeto:    pkgafip.FormatAmount(neto),
		ImpIVA:     pkgafip.FormatAmount(amounts.VATAmount),
		ImpTrib:    pkgafip.FormatAmount(amounts.NotVATTaxesAmount),
		ImpOpEx:    pkgafip.FormatAmount(amounts.VATExemptBaseAmount),
		FechaCbte:  inv.InvoiceDate.Format(pkgafip.DateCompact),
		MonedaID:   inv.CurrencyCode,
		MonedaCtz:  inv.CurrencyRate.String(),
	}

	mipyme := pkgafip.IsMiPyMEInvoice(docType)
	// Vencimiento: concepto distinto de productos y no nota FCE, o factura MiPyME.
	if (inv.Concept != pkgafip.ConceptProducts && !pkgafip.IsFCENote(docType)) || mipyme {
		due := inv.InvoiceDate
		if inv.DueDate != nil {
			due = *inv.DueDate
		}
		c.FechaVencPago = pkgafip.FormatDate(ws, due)
	}
	if inv.Concept != pkgafip.ConceptProducts {
		c.FechaServDesde = formatOptionalDate(ws, inv.ServiceStart)
		c.FechaServHasta = formatOptionalDate(ws, inv.ServiceEnd)
	}

	p := &afip.Payload{}
	if ws == pkgafip.WSFE && (!caea || (inv.AuthMode == pkgafip.AuthModeCAEA && inv.AuthCode != "")) {
		if caea {
			if inv.CAEAPostedAt == nil {
				return nil, fmt.Errorf("comprobante %s: %w", inv.ID, domain.ErrMissingTimestamp)
			}
			c.CAEA = inv.AuthCode
			c.CbteFchHsGen = inv.CAEAPostedAt.Format(pkgafip.TimestampGen)
		}
		switch {
		case mipyme:
			p.Opcionales = append(p.Opcionales, afip.Opcional{ID: pkgafip.OptionalCBU, Valor: inv.PartnerBankAccount})
			if in.FCETransmission != "" {
				p.Opcionales = append(p.Opcionales, afip.Opcional{ID: pkgafip.OptionalTransmissionType, Valor: in.FCETransmission})
			}
		case pkgafip.IsFCENote(docType):
			valor := "N"
			if inv.FCECancellation {
				valor = "S"
			}
			p.Opcionales = append(p.Opcionales, afip.Opcional{ID: pkgafip.OptionalCancellation, Valor: valor})
		}
		p.Tributos = buildTributes(inv)
	}
	p.Comprobante = c

	if in.Related != nil {
		asoc, err := buildAssociated(ws, in.Related, in.Company)
		if err != nil {
			return nil, fmt.Errorf("comprobante %s: %w", inv.ID, err)
		}
		p.CbtesAsoc = append(p.CbtesAsoc, asoc)
	}
	return p, nil
}

func formatOptionalDate(ws string, t *time.Time) string {
	if t == nil {
		return ""
	}
	return pkgafip.FormatDate(ws, *t)
}

// buildTributes arma un tributo por grupo de impuesto no IVA con código AFIP.
// La alícuota viaja en 0: el grupo no conoce la tasa aplicada.
func buildTributes(inv *entity.Invoice) []afip.Tributo {
	type acc struct {
		code, name string
		importe    decimal.Decimal
	}
	groups := make(map[string]*acc)
	var order []string
	for _, l := range inv.TaxLines() {
		g := l.TaxLine.Group
		if g.Kind == entity.TaxGroupVAT || g.TributeAfipCode == "" {
			continue
		}
		a, ok := groups[g.ID]
		if !ok {
			a = &acc{code: g.TributeAfipCode, name: g.Name}
			groups[g.ID] = a
			order = append(order, g.ID)
		}
		a.importe = a.importe.Add(l.PriceSubtotal)
	}

	out := make([]afip.Tributo, 0, len(order))
	for _, id := range order {
		a := groups[id]
		base := decimal.Zero
		for _, l := range inv.ProductLines() {
			if l.HasTaxGroupTribute(a.code) {
				base = base.Add(l.PriceSubtotal)
			}
		}
		out = append(out, afip.Tributo{
			ID:      a.code,
			Desc:    a.name,
			BaseImp: pkgafip.FormatAmount(base),
			Alic:    "0",
			Importe: pkgafip.FormatAmount(a.importe),
		})
	}
	return out
}

// buildAssociated referencia al comprobante original. WSFEX no acepta la fecha.
func buildAssociated(ws string, related *entity.Invoice, company *entity.Company) (afip.CbteAsoc, error) {
	parts, err := pkgafip.SplitDocumentNumber(related.DocumentNumber, related.DocumentTypeCode)
	if err != nil {
		return afip.CbteAsoc{}, fmt.Errorf("comprobante asociado %s: %w", related.ID, err)
	}
	asoc := afip.CbteAsoc{
		Tipo:   related.DocumentTypeCode,
		PtoVta: parts.PointOfSale,
		Nro:    parts.InvoiceNumber,
	}
	if company != nil {
		asoc.Cuit = company.CUIT
	}
	if ws != pkgafip.WSFEX {
		asoc.Fecha = pkgafip.FormatDate(ws, related.InvoiceDate)
	}
	return asoc, nil
}
