package repository

import (
	"context"

	"github.com/jhoicas/afipws-caea/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para comprobantes y sus líneas.
type InvoiceRepository interface {
	// GetByID devuelve la cabecera con sus líneas; nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// ListByIDs conserva el orden de ids; omite los inexistentes.
	ListByIDs(ctx context.Context, ids []string) ([]*entity.Invoice, error)
	// ListPendingCAEAReport lista los comprobantes sellados con CAEA y aún no informados.
	ListPendingCAEAReport(ctx context.Context, companyID string) ([]*entity.Invoice, error)
	// UpdateAuthorization persiste los campos de autorización AFIP (auth_*, result,
	// message, xml_*, caea_*).
	UpdateAuthorization(ctx context.Context, inv *entity.Invoice) error
	// UpdatePosting persiste diario y estado al validar el comprobante.
	UpdatePosting(ctx context.Context, inv *entity.Invoice) error
	// AddMessage registra una nota de auditoría sobre el comprobante.
	AddMessage(ctx context.Context, invoiceID, body string) error
}
