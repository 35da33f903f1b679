package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/afipws-caea/internal/domain"
	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	"github.com/jhoicas/afipws-caea/internal/domain/repository"
	"github.com/jhoicas/afipws-caea/pkg/logger"
)

// PostInvoicesUseCase valida comprobantes y pide su autorización en una sola transacción.
type PostInvoicesUseCase struct {
	tx         BillingTxRunner
	params     repository.ConfigParameterRepository
	dispatcher *CAEADispatcher
	log        *logger.Logger
}

func NewPostInvoicesUseCase(tx BillingTxRunner, params repository.ConfigParameterRepository, dispatcher *CAEADispatcher, log *logger.Logger) *PostInvoicesUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &PostInvoicesUseCase{tx: tx, params: params, dispatcher: dispatcher, log: log.WithComponent("post-invoices")}
}

// PostInvoices enruta al diario CAEA, marca como validados y solicita autorización.
// Un error en cualquier comprobante revierte el lote completo.
func (uc *PostInvoicesUseCase) PostInvoices(ctx context.Context, companyID string, ids []string) ([]*entity.Invoice, error) {
	cfg, err := LoadCAEAConfig(ctx, uc.params)
	if err != nil {
		return nil, err
	}
	var invoices []*entity.Invoice
	err = uc.tx.RunBilling(ctx, func(repos Repos) error {
		var err error
		invoices, err = loadCompanyInvoices(ctx, repos, companyID, ids)
		if err != nil {
			return err
		}
		if err := uc.dispatcher.RouteForPost(ctx, cfg, repos, invoices); err != nil {
			return err
		}
		for _, inv := range invoices {
			inv.State = entity.InvoiceStatePosted
		}
		if err := uc.dispatcher.RequestAuthorization(ctx, cfg, repos, invoices); err != nil {
			return err
		}
		for _, inv := range invoices {
			if err := repos.Invoices.UpdatePosting(ctx, inv); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("company_id", companyID).Int("count", len(invoices)).Bool("caea", cfg.CAEAEnabled).
		Msg("comprobantes validados")
	return invoices, nil
}

// RequestCAEA sella con el CAEA activo comprobantes ya validados (p. ej. tras activar un CAEA nuevo).
func (uc *PostInvoicesUseCase) RequestCAEA(ctx context.Context, companyID string, ids []string) ([]*entity.Invoice, error) {
	var invoices []*entity.Invoice
	err := uc.tx.RunBilling(ctx, func(repos Repos) error {
		var err error
		invoices, err = loadCompanyInvoices(ctx, repos, companyID, ids)
		if err != nil {
			return err
		}
		return uc.dispatcher.RequestCode(ctx, repos, invoices)
	})
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// GetAfipStatus devuelve el comprobante si pertenece a la empresa.
func (uc *PostInvoicesUseCase) GetAfipStatus(ctx context.Context, companyID, id string) (*entity.Invoice, error) {
	var inv *entity.Invoice
	err := uc.tx.RunBilling(ctx, func(repos Repos) error {
		list, err := loadCompanyInvoices(ctx, repos, companyID, []string{id})
		if err != nil {
			return err
		}
		inv = list[0]
		return nil
	})
	return inv, err
}

// loadCompanyInvoices carga todos los ids y verifica que sean de la empresa.
func loadCompanyInvoices(ctx context.Context, repos Repos, companyID string, ids []string) ([]*entity.Invoice, error) {
	if len(ids) == 0 {
		return nil, domain.ErrInvalidInput
	}
	invoices, err := repos.Invoices.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(invoices) != len(ids) {
		return nil, fmt.Errorf("comprobantes solicitados %d, encontrados %d: %w", len(ids), len(invoices), domain.ErrNotFound)
	}
	for _, inv := range invoices {
		if inv.CompanyID != companyID {
			return nil, fmt.Errorf("comprobante %s: %w", inv.ID, domain.ErrForbidden)
		}
	}
	return invoices, nil
}
