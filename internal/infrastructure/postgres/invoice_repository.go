package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	"github.com/jhoicas/afipws-caea/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, company_id, journal_id, partner_id, document_type_code, document_letter, document_number,
	concept, currency_code, currency_rate, invoice_date, due_date, service_start, service_end,
	amount_total, amount_untaxed, partner_bank_account, fce_cancellation, related_invoice_id, state,
	auth_mode, auth_code, auth_code_due, result, message, xml_request, xml_response,
	caea_id, caea_post_datetime, caea_reported, created_at, updated_at`

// GetByID obtiene la cabecera con sus líneas e impuestos.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	var inv entity.Invoice
	var bankAccount, relatedID, authMode, authCode, result, message, xmlReq, xmlResp, caeaID *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.CompanyID, &inv.JournalID, &inv.PartnerID, &inv.DocumentTypeCode, &inv.DocumentLetter, &inv.DocumentNumber,
		&inv.Concept, &inv.CurrencyCode, &inv.CurrencyRate, &inv.InvoiceDate, &inv.DueDate, &inv.ServiceStart, &inv.ServiceEnd,
		&inv.AmountTotal, &inv.AmountUntaxed, &bankAccount, &inv.FCECancellation, &relatedID, &inv.State,
		&authMode, &authCode, &inv.AuthCodeDue, &result, &message, &xmlReq, &xmlResp,
		&caeaID, &inv.CAEAPostedAt, &inv.CAEAReported, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.PartnerBankAccount = derefStr(bankAccount)
	inv.RelatedInvoiceID = derefStr(relatedID)
	inv.AuthMode = derefStr(authMode)
	inv.AuthCode = derefStr(authCode)
	inv.Result = derefStr(result)
	inv.Message = derefStr(message)
	inv.XMLRequest = derefStr(xmlReq)
	inv.XMLResponse = derefStr(xmlResp)
	inv.CAEAID = derefStr(caeaID)

	lines, err := r.getLines(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return &inv, nil
}

// getLines carga las líneas; las de impuesto traen tax_line_id, las de producto sus impuestos aplicados.
func (r *InvoiceRepo) getLines(ctx context.Context, invoiceID string) ([]*entity.InvoiceLine, error) {
	const query = `
		SELECT l.id, l.invoice_id, l.name, l.price_subtotal,
		       t.id, t.name, g.id, g.name, g.kind, COALESCE(g.vat_afip_code, ''), COALESCE(g.tribute_afip_code, '')
		FROM invoice_lines l
		LEFT JOIN taxes t ON t.id = l.tax_line_id
		LEFT JOIN tax_groups g ON g.id = t.group_id
		WHERE l.invoice_id = $1
		ORDER BY l.sequence, l.id`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()

	var list []*entity.InvoiceLine
	byID := make(map[string]*entity.InvoiceLine)
	for rows.Next() {
		var l entity.InvoiceLine
		var taxID, taxName, groupID, groupName, groupKind *string
		var vatCode, tributeCode string
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Name, &l.PriceSubtotal,
			&taxID, &taxName, &groupID, &groupName, &groupKind, &vatCode, &tributeCode); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		if taxID != nil {
			l.TaxLine = &entity.Tax{
				ID:   *taxID,
				Name: derefStr(taxName),
				Group: entity.TaxGroup{
					ID: derefStr(groupID), Name: derefStr(groupName), Kind: derefStr(groupKind),
					VATAfipCode: vatCode, TributeAfipCode: tributeCode,
				},
			}
		}
		list = append(list, &l)
		byID[l.ID] = &l
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const taxQuery = `
		SELECT lt.line_id, t.id, t.name, g.id, g.name, g.kind,
		       COALESCE(g.vat_afip_code, ''), COALESCE(g.tribute_afip_code, '')
		FROM invoice_line_taxes lt
		JOIN invoice_lines l ON l.id = lt.line_id
		JOIN taxes t ON t.id = lt.tax_id
		JOIN tax_groups g ON g.id = t.group_id
		WHERE l.invoice_id = $1
		ORDER BY lt.line_id, t.sequence, t.id`
	taxRows, err := r.q.Query(ctx, taxQuery, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice line taxes: %w", err)
	}
	defer taxRows.Close()
	for taxRows.Next() {
		var lineID string
		var t entity.Tax
		if err := taxRows.Scan(&lineID, &t.ID, &t.Name, &t.Group.ID, &t.Group.Name, &t.Group.Kind,
			&t.Group.VATAfipCode, &t.Group.TributeAfipCode); err != nil {
			return nil, fmt.Errorf("scan invoice line tax: %w", err)
		}
		if l, ok := byID[lineID]; ok {
			l.Taxes = append(l.Taxes, t)
		}
	}
	return list, taxRows.Err()
}

// ListByIDs carga los comprobantes en el orden recibido; omite los inexistentes.
func (r *InvoiceRepo) ListByIDs(ctx context.Context, ids []string) ([]*entity.Invoice, error) {
	list := make([]*entity.Invoice, 0, len(ids))
	for _, id := range ids {
		inv, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			list = append(list, inv)
		}
	}
	return list, nil
}

// ListPendingCAEAReport comprobantes sellados con CAEA pendientes de FECAEARegInformativo.
func (r *InvoiceRepo) ListPendingCAEAReport(ctx context.Context, companyID string) ([]*entity.Invoice, error) {
	const query = `
		SELECT id FROM invoices
		WHERE company_id = $1 AND state = 'posted'
		  AND auth_mode = 'CAEA' AND COALESCE(auth_code, '') <> ''
		  AND caea_reported = FALSE
		ORDER BY invoice_date, document_number`
	rows, err := r.q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list pending caea invoices: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan invoice id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return r.ListByIDs(ctx, ids)
}

// UpdateAuthorization actualiza los campos de autorización AFIP.
func (r *InvoiceRepo) UpdateAuthorization(ctx context.Context, inv *entity.Invoice) error {
	inv.UpdatedAt = time.Now()
	const query = `
		UPDATE invoices
		SET auth_mode          = $2,
		    auth_code          = $3,
		    auth_code_due      = $4,
		    result             = $5,
		    message            = $6,
		    xml_request        = $7,
		    xml_response       = $8,
		    caea_id            = $9,
		    caea_post_datetime = $10,
		    caea_reported      = $11,
		    updated_at         = $12
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		inv.ID,
		nullIfEmpty(inv.AuthMode),
		nullIfEmpty(inv.AuthCode),
		inv.AuthCodeDue,
		nullIfEmpty(inv.Result),
		nullIfEmpty(inv.Message),
		nullIfEmpty(inv.XMLRequest),
		nullIfEmpty(inv.XMLResponse),
		nullIfEmpty(inv.CAEAID),
		inv.CAEAPostedAt,
		inv.CAEAReported,
		inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice authorization: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update invoice authorization: invoice %s not found", inv.ID)
	}
	return nil
}

// UpdatePosting persiste diario y estado.
func (r *InvoiceRepo) UpdatePosting(ctx context.Context, inv *entity.Invoice) error {
	inv.UpdatedAt = time.Now()
	const query = `UPDATE invoices SET journal_id = $2, state = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, inv.ID, inv.JournalID, inv.State, inv.UpdatedAt); err != nil {
		return fmt.Errorf("update invoice posting: %w", err)
	}
	return nil
}

// AddMessage registra una nota de auditoría.
func (r *InvoiceRepo) AddMessage(ctx context.Context, invoiceID, body string) error {
	const query = `INSERT INTO invoice_messages (id, invoice_id, body, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.q.Exec(ctx, query, uuid.New().String(), invoiceID, body, time.Now()); err != nil {
		return fmt.Errorf("insert invoice message: %w", err)
	}
	return nil
}
