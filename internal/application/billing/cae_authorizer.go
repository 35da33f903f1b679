package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	pkgafip "github.com/jhoicas/afipws-caea/pkg/afip"
	"github.com/jhoicas/afipws-caea/pkg/logger"
)

var _ LegacyAuthorizer = (*CAEAuthorizer)(nil)

// CAEAuthorizer solicita CAE comprobante por comprobante (FECAESolicitar).
//
// Cada CAE otorgado se confirma en su propia transacción (RunIsolated) junto con
// el diario y el estado del comprobante: si el lote del caller se revierte, el
// CAE ya emitido por AFIP no se pierde.
type CAEAuthorizer struct {
	sessions SessionFactory
	tx       BillingTxRunner
	log      *logger.Logger
}

func NewCAEAuthorizer(sessions SessionFactory, tx BillingTxRunner, log *logger.Logger) *CAEAuthorizer {
	if log == nil {
		log = logger.Nop()
	}
	return &CAEAuthorizer{sessions: sessions, tx: tx, log: log.WithComponent("cae-authorizer")}
}

// Authorize saltea diarios no electrónicos y comprobantes que ya tienen código.
func (a *CAEAuthorizer) Authorize(ctx context.Context, cfg CAEAConfig, repos Repos, invoices []*entity.Invoice) error {
	for _, inv := range invoices {
		if inv.HasAuthCode() {
			continue
		}
		journal, err := getJournal(ctx, repos, inv)
		if err != nil {
			return err
		}
		if journal.AfipWS == "" {
			continue
		}

		in, err := loadPayloadInput(ctx, repos, inv, journal, cfg)
		if err != nil {
			return err
		}
		payload, err := BuildCAEPayload(in)
		if err != nil {
			return err
		}
		sess, err := a.sessions.Connect(ctx, in.Company.CUIT, journal.AfipWS)
		if err != nil {
			return fmt.Errorf("conectar %s: %w", journal.AfipWS, err)
		}
		payload.Stage(sess)
		code, callErr := sess.RequestCAE(ctx)
		resp := sess.Response()

		if err := interpretOutcome(a.log, inv, resp, code, callErr); err != nil {
			return err
		}
		updated, err := authorizedCopy(inv, resp, code)
		if err != nil {
			return err
		}
		if updated.AuthMode == "" {
			updated.AuthMode = pkgafip.AuthModeCAE
		}
		err = a.tx.RunIsolated(ctx, func(r Repos) error {
			if err := r.Invoices.UpdatePosting(ctx, updated); err != nil {
				return err
			}
			if err := r.Invoices.UpdateAuthorization(ctx, updated); err != nil {
				return err
			}
			return r.Invoices.AddMessage(ctx, inv.ID, fmt.Sprintf("CAE %s otorgado por AFIP. Resultado %s", code, resp.Resultado))
		})
		if err != nil {
			a.log.Error().Err(err).Str("invoice_id", inv.ID).Str("cae", code).
				Msg("CAE otorgado por AFIP pero no se pudo persistir")
			return fmt.Errorf("persistir CAE del comprobante %s: %w", inv.ID, err)
		}
		*inv = *updated
		a.log.Info().Str("invoice_id", inv.ID).Str("cae", code).Msg("CAE obtenido")
	}
	return nil
}
