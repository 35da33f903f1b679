package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/afipws-caea/internal/domain"
	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	pkgafip "github.com/jhoicas/afipws-caea/pkg/afip"
	"github.com/jhoicas/afipws-caea/pkg/logger"
)

// LegacyAuthorizer ruta de autorización por comprobante (CAE) usada con el modo CAEA inactivo.
type LegacyAuthorizer interface {
	Authorize(ctx context.Context, cfg CAEAConfig, repos Repos, invoices []*entity.Invoice) error
}

// CAEADispatcher decide, al validar comprobantes, entre CAE y CAEA y sella el CAEA vigente.
//
// Todo lo que hace queda dentro de la transacción del caller: el sellado no se
// informa a AFIP hasta que CAEASubmitter lo reporte.
type CAEADispatcher struct {
	legacy LegacyAuthorizer
	log    *logger.Logger
	now    func() time.Time
}

// NewCAEADispatcher construye el dispatcher. legacy puede ser nil si el modo CAEA está siempre activo.
func NewCAEADispatcher(legacy LegacyAuthorizer, log *logger.Logger) *CAEADispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &CAEADispatcher{legacy: legacy, log: log.WithComponent("caea-dispatcher"), now: time.Now}
}

// RouteForPost mueve al diario gemelo CAEA los comprobantes cuyo diario no está en modo CAEA.
// Solo modifica JournalID; el caller persiste con UpdatePosting.
func (d *CAEADispatcher) RouteForPost(ctx context.Context, cfg CAEAConfig, repos Repos, invoices []*entity.Invoice) error {
	if !cfg.CAEAEnabled {
		return nil
	}
	for _, inv := range invoices {
		journal, err := getJournal(ctx, repos, inv)
		if err != nil {
			return err
		}
		if journal.POSSystem == pkgafip.POSSystemCAEA || journal.CAEAJournalID == "" {
			continue
		}
		d.log.Debug().Str("invoice_id", inv.ID).Str("from", journal.ID).Str("to", journal.CAEAJournalID).
			Msg("comprobante movido al diario CAEA")
		inv.JournalID = journal.CAEAJournalID
	}
	return nil
}

// RequestAuthorization despacha a CAE (modo inactivo) o CAEA (modo activo).
func (d *CAEADispatcher) RequestAuthorization(ctx context.Context, cfg CAEAConfig, repos Repos, invoices []*entity.Invoice) error {
	if !cfg.CAEAEnabled {
		if d.legacy == nil {
			return fmt.Errorf("modo CAEA inactivo y sin autorizador CAE configurado")
		}
		return d.legacy.Authorize(ctx, cfg, repos, invoices)
	}
	return d.RequestCode(ctx, repos, invoices)
}

// RequestCode sella cada comprobante de un diario CAEA con el CAEA activo de la empresa.
// Es idempotente: los comprobantes con código se saltean.
func (d *CAEADispatcher) RequestCode(ctx context.Context, repos Repos, invoices []*entity.Invoice) error {
	for _, inv := range invoices {
		journal, err := getJournal(ctx, repos, inv)
		if err != nil {
			return err
		}
		if journal.POSSystem != pkgafip.POSSystemCAEA {
			continue
		}
		if inv.HasAuthCode() {
			continue
		}
		if journal.AfipWS == "" {
			return &domain.ConfigurationError{InvoiceID: inv.ID}
		}

		now := d.now()
		caea, err := repos.CAEAs.GetActive(ctx, inv.CompanyID, now)
		if err != nil {
			return fmt.Errorf("buscar CAEA activo: %w", err)
		}
		if caea == nil {
			return fmt.Errorf("comprobante %s: %w", inv.ID, domain.ErrNoActiveCAEA)
		}

		msg := fmt.Sprintf("Validación condicional AFIP (CAEA %s)", caea.Code)
		due := inv.InvoiceDate
		inv.AuthMode = pkgafip.AuthModeCAEA
		inv.AuthCode = caea.Code
		inv.AuthCodeDue = &due
		inv.Result = ""
		inv.Message = msg
		inv.CAEAPostedAt = &now
		inv.CAEAID = caea.ID

		if err := repos.Invoices.UpdateAuthorization(ctx, inv); err != nil {
			return err
		}
		if err := repos.Invoices.AddMessage(ctx, inv.ID, msg); err != nil {
			return err
		}
		d.log.Info().Str("invoice_id", inv.ID).Str("caea", caea.Code).Msg("comprobante sellado con CAEA")
	}
	return nil
}

func getJournal(ctx context.Context, repos Repos, inv *entity.Invoice) (*entity.Journal, error) {
	journal, err := repos.Journals.GetByID(ctx, inv.JournalID)
	if err != nil {
		return nil, fmt.Errorf("obtener diario %s: %w", inv.JournalID, err)
	}
	if journal == nil {
		return nil, fmt.Errorf("diario %s del comprobante %s: %w", inv.JournalID, inv.ID, domain.ErrNotFound)
	}
	return journal, nil
}
