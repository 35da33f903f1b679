package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/afipws-caea/internal/domain/entity"
)

// InvoiceIDsRequest body para POST /api/invoices/post y /api/invoices/caea/*.
type InvoiceIDsRequest struct {
	InvoiceIDs []string `json:"invoice_ids" validate:"required,min=1,max=200,dive,uuid"`
}

// ReportEnqueueRequest body para POST /api/caea/report/enqueue.
// CompanyID vacío = empresa del token.
type ReportEnqueueRequest struct {
	CompanyID string `json:"company_id,omitempty" validate:"omitempty,uuid"`
}

// PartnerIDsRequest body para POST /api/partners/mipyme.
type PartnerIDsRequest struct {
	PartnerIDs []string `json:"partner_ids" validate:"required,min=1,max=100,dive,uuid"`
}

// AfipStatusResponse estado de autorización AFIP de un comprobante.
type AfipStatusResponse struct {
	ID             string     `json:"id"`
	DocumentNumber string     `json:"document_number"`
	JournalID      string     `json:"journal_id"`
	State          string     `json:"state"`
	AuthMode       string     `json:"auth_mode,omitempty"`
	AuthCode       string     `json:"auth_code,omitempty"`
	AuthCodeDue    *time.Time `json:"auth_code_due,omitempty"`
	Result         string     `json:"result,omitempty"`
	Message        string     `json:"message,omitempty"`
	CAEAPostedAt   *time.Time `json:"caea_post_datetime,omitempty"`
	CAEAReported   bool       `json:"caea_reported"`
}

// AfipBatchResponse resultado de un lote (post, sellado o informe).
type AfipBatchResponse struct {
	Invoices []AfipStatusResponse `json:"invoices"`
}

// EnqueueResponse tarea encolada.
type EnqueueResponse struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
}

// PartnerMiPyMEResponse umbral FCE MiPyME de un receptor.
type PartnerMiPyMEResponse struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	VAT              string          `json:"vat"`
	MiPyMERequired   bool            `json:"mipyme_required"`
	MiPyMEFromAmount decimal.Decimal `json:"mipyme_from_amount"`
}

// ToAfipStatus mapea la entidad a la respuesta.
func ToAfipStatus(inv *entity.Invoice) AfipStatusResponse {
	return AfipStatusResponse{
		ID:             inv.ID,
		DocumentNumber: inv.DocumentNumber,
		JournalID:      inv.JournalID,
		State:          inv.State,
		AuthMode:       inv.AuthMode,
		AuthCode:       inv.AuthCode,
		AuthCodeDue:    inv.AuthCodeDue,
		Result:         inv.Result,
		Message:        inv.Message,
		CAEAPostedAt:   inv.CAEAPostedAt,
		CAEAReported:   inv.CAEAReported,
	}
}

// ToAfipBatch mapea un lote.
func ToAfipBatch(invoices []*entity.Invoice) AfipBatchResponse {
	out := AfipBatchResponse{Invoices: make([]AfipStatusResponse, 0, len(invoices))}
	for _, inv := range invoices {
		out.Invoices = append(out.Invoices, ToAfipStatus(inv))
	}
	return out
}

// ToPartnerMiPyME mapea el receptor.
func ToPartnerMiPyME(p *entity.Partner) PartnerMiPyMEResponse {
	return PartnerMiPyMEResponse{
		ID:               p.ID,
		Name:             p.Name,
		VAT:              p.VAT,
		MiPyMERequired:   p.MiPyMERequired,
		MiPyMEFromAmount: p.MiPyMEFromAmount,
	}
}
