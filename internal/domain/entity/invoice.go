package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del comprobante.
const (
	InvoiceStateDraft  = "draft"
	InvoiceStatePosted = "posted"
)

// Invoice representa la cabecera de un comprobante electrónico argentino.
type Invoice struct {
	ID                 string
	CompanyID          string
	JournalID          string
	PartnerID          string
	DocumentTypeCode   int    // Código AFIP del tipo de comprobante (1, 6, 11, 201, ...)
	DocumentLetter     string // A, B, C, E, M
	DocumentNumber     string // PPPPP-NNNNNNNN
	Concept            int    // 1 productos, 2 servicios, 3 productos y servicios
	CurrencyCode       string // Código AFIP de la moneda (PES, DOL, ...)
	CurrencyRate       decimal.Decimal
	InvoiceDate        time.Time
	DueDate            *time.Time
	ServiceStart       *time.Time
	ServiceEnd         *time.Time
	AmountTotal        decimal.Decimal
	AmountUntaxed      decimal.Decimal
	PartnerBankAccount string // CBU informado en FCE MiPyME
	FCECancellation    bool   // Nota de FCE que anula la factura original
	RelatedInvoiceID   string // Comprobante asociado (notas de crédito/débito)
	State              string

	// Autorización AFIP
	AuthMode     string // CAE | CAEA
	AuthCode     string
	AuthCodeDue  *time.Time
	Result       string // A, R, P
	Message      string
	XMLRequest   string
	XMLResponse  string
	CAEAID       string
	CAEAPostedAt *time.Time // Fecha/hora en que se selló con el CAEA (CbteFchHsGen)
	CAEAReported bool       // Ya informado con FECAEARegInformativo

	Lines []*InvoiceLine

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasAuthCode indica si el comprobante ya tiene código de autorización.
func (i *Invoice) HasAuthCode() bool { return i.AuthCode != "" }

// ProductLines devuelve las líneas de producto (no impuestos).
func (i *Invoice) ProductLines() []*InvoiceLine {
	var out []*InvoiceLine
	for _, l := range i.Lines {
		if l.TaxLine == nil {
			out = append(out, l)
		}
	}
	return out
}

// TaxLines devuelve las líneas de impuesto.
func (i *Invoice) TaxLines() []*InvoiceLine {
	var out []*InvoiceLine
	for _, l := range i.Lines {
		if l.TaxLine != nil {
			out = append(out, l)
		}
	}
	return out
}
