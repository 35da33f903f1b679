package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/afipws-caea/internal/domain"
	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	"github.com/jhoicas/afipws-caea/internal/domain/repository"
	"github.com/jhoicas/afipws-caea/internal/infrastructure/afipws"
	pkgafip "github.com/jhoicas/afipws-caea/pkg/afip"
	"github.com/jhoicas/afipws-caea/pkg/logger"
)

// CAEASubmitter informa a AFIP (FECAEARegInformativo) los comprobantes sellados con CAEA.
//
// Cada comprobante aprobado se confirma en su propia transacción (RunIsolated):
// el código informado es definitivo en AFIP y un error en el comprobante
// siguiente no debe deshacerlo.
type CAEASubmitter struct {
	repos    Repos
	params   repository.ConfigParameterRepository
	tx       BillingTxRunner
	sessions SessionFactory
	log      *logger.Logger
}

// NewCAEASubmitter construye el caso de uso. repos se usa solo para lecturas.
func NewCAEASubmitter(
	repos Repos,
	params repository.ConfigParameterRepository,
	tx BillingTxRunner,
	sessions SessionFactory,
	log *logger.Logger,
) *CAEASubmitter {
	if log == nil {
		log = logger.Nop()
	}
	return &CAEASubmitter{
		repos:    repos,
		params:   params,
		tx:       tx,
		sessions: sessions,
		log:      log.WithComponent("caea-submitter"),
	}
}

// Submit informa los comprobantes indicados de la empresa, en ese orden.
func (s *CAEASubmitter) Submit(ctx context.Context, companyID string, invoiceIDs []string) ([]*entity.Invoice, error) {
	cfg, err := LoadCAEAConfig(ctx, s.params)
	if err != nil {
		return nil, err
	}
	invoices, err := loadCompanyInvoices(ctx, s.repos, companyID, invoiceIDs)
	if err != nil {
		return nil, err
	}
	return s.SubmitInvoices(ctx, cfg, invoices)
}

// ReportPending informa todos los comprobantes CAEA pendientes de la empresa.
func (s *CAEASubmitter) ReportPending(ctx context.Context, companyID string) ([]*entity.Invoice, error) {
	cfg, err := LoadCAEAConfig(ctx, s.params)
	if err != nil {
		return nil, err
	}
	invoices, err := s.repos.Invoices.ListPendingCAEAReport(ctx, companyID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("company_id", companyID).Int("pendientes", len(invoices)).Msg("informando comprobantes CAEA")
	return s.SubmitInvoices(ctx, cfg, invoices)
}

// SubmitInvoices procesa secuencialmente y se detiene en el primer error.
// Devuelve los comprobantes informados y confirmados hasta ese punto.
func (s *CAEASubmitter) SubmitInvoices(ctx context.Context, cfg CAEAConfig, invoices []*entity.Invoice) ([]*entity.Invoice, error) {
	var reported []*entity.Invoice
	for _, inv := range invoices {
		done, err := s.submitOne(ctx, cfg, inv)
		if err != nil {
			return reported, err
		}
		if done {
			reported = append(reported, inv)
		}
	}
	return reported, nil
}

func (s *CAEASubmitter) submitOne(ctx context.Context, cfg CAEAConfig, inv *entity.Invoice) (bool, error) {
	if inv.HasAuthCode() && inv.AuthMode != pkgafip.AuthModeCAEA {
		return false, nil
	}
	if inv.CAEAReported {
		return false, nil
	}
	journal, err := getJournal(ctx, s.repos, inv)
	if err != nil {
		return false, err
	}
	if journal.AfipWS == "" {
		return false, &domain.ConfigurationError{InvoiceID: inv.ID}
	}

	in, err := loadPayloadInput(ctx, s.repos, inv, journal, cfg)
	if err != nil {
		return false, err
	}
	payload, err := BuildPayload(in)
	if err != nil {
		return false, err
	}

	sess, err := s.sessions.Connect(ctx, in.Company.CUIT, journal.AfipWS)
	if err != nil {
		return false, fmt.Errorf("conectar %s: %w", journal.AfipWS, err)
	}
	payload.Stage(sess)
	code, callErr := sess.RegisterCAEAInformative(ctx)
	resp := sess.Response()

	if err := interpretOutcome(s.log, inv, resp, code, callErr); err != nil {
		return false, err
	}
	updated, err := authorizedCopy(inv, resp, code)
	if err != nil {
		return false, err
	}
	updated.CAEAReported = true

	err = s.tx.RunIsolated(ctx, func(r Repos) error {
		if err := r.Invoices.UpdateAuthorization(ctx, updated); err != nil {
			return err
		}
		return r.Invoices.AddMessage(ctx, inv.ID, fmt.Sprintf("CAEA %s informado a AFIP. Resultado %s", code, resp.Resultado))
	})
	if err != nil {
		// AFIP ya registró el comprobante: queda para conciliación manual.
		s.log.Error().Err(err).Str("invoice_id", inv.ID).Str("caea", code).
			Msg("comprobante informado en AFIP pero no se pudo persistir")
		return false, fmt.Errorf("persistir comprobante %s informado: %w", inv.ID, err)
	}
	*inv = *updated
	s.log.Info().Str("invoice_id", inv.ID).Str("caea", code).Str("resultado", resp.Resultado).
		Msg("CAEA informado con éxito")
	return true, nil
}

// loadPayloadInput reúne empresa, receptor y comprobante asociado.
func loadPayloadInput(ctx context.Context, repos Repos, inv *entity.Invoice, journal *entity.Journal, cfg CAEAConfig) (PayloadInput, error) {
	in := PayloadInput{Invoice: inv, Journal: journal, FCETransmission: cfg.FCETransmission}

	company, err := repos.Companies.GetByID(ctx, inv.CompanyID)
	if err != nil {
		return in, fmt.Errorf("obtener empresa %s: %w", inv.CompanyID, err)
	}
	if company == nil {
		return in, fmt.Errorf("empresa %s: %w", inv.CompanyID, domain.ErrNotFound)
	}
	if err := pkgafip.ValidateCUIT(company.CUIT); err != nil {
		return in, fmt.Errorf("%w: CUIT de la empresa %s: %v", domain.ErrInvalidInput, company.ID, err)
	}
	in.Company = company

	if inv.PartnerID != "" {
		in.Partner, err = repos.Partners.GetByID(ctx, inv.PartnerID)
		if err != nil {
			return in, fmt.Errorf("obtener receptor %s: %w", inv.PartnerID, err)
		}
	}
	if inv.RelatedInvoiceID != "" {
		in.Related, err = repos.Invoices.GetByID(ctx, inv.RelatedInvoiceID)
		if err != nil {
			return in, fmt.Errorf("obtener comprobante asociado %s: %w", inv.RelatedInvoiceID, err)
		}
		if in.Related == nil {
			return in, fmt.Errorf("comprobante asociado %s: %w", inv.RelatedInvoiceID, domain.ErrNotFound)
		}
	}
	return in, nil
}

// interpretOutcome traduce el resultado de la llamada remota. Devuelve nil solo
// si AFIP aprobó y devolvió código; en cualquier otro caso el comprobante no se toca.
func interpretOutcome(log *logger.Logger, inv *entity.Invoice, resp afipws.Response, code string, callErr error) error {
	if callErr != nil {
		verr := &domain.AfipValidationError{Kind: domain.FailureUnknown, Message: callErr.Error()}
		var fault *afipws.SOAPFault
		switch {
		case errors.As(callErr, &fault):
			verr = &domain.AfipValidationError{
				Kind:    domain.FailureTransport,
				Message: fmt.Sprintf("Falla SOAP %s: %s", fault.Code, fault.String),
			}
		case resp.Excepcion != "":
			verr = &domain.AfipValidationError{Kind: domain.FailureRemote, Message: resp.Excepcion}
		}
		log.Error().Str("invoice_id", inv.ID).Str("kind", string(verr.Kind)).
			Str("xml_request", resp.XMLRequest).Str("xml_response", resp.XMLResponse).
			Msg(verr.Error())
		return verr
	}

	msg := resultMessage(resp)
	if code == "" || resp.Resultado != pkgafip.ResultApproved {
		log.Warn().Str("invoice_id", inv.ID).Str("resultado", resp.Resultado).Msg(msg)
		return &domain.AfipValidationError{Kind: domain.FailureRejected, Message: msg}
	}
	return nil
}

func resultMessage(resp afipws.Response) string {
	return resp.Obs + "\n" + resp.ErrMsg
}

// authorizedCopy devuelve una copia del comprobante con el resultado aprobado.
// El original no se toca hasta que la copia quede persistida.
func authorizedCopy(src *entity.Invoice, resp afipws.Response, code string) (*entity.Invoice, error) {
	due, err := pkgafip.ParseCompactDate(resp.Vencimiento)
	if err != nil {
		return nil, fmt.Errorf("vencimiento %q devuelto por AFIP: %w", resp.Vencimiento, err)
	}
	cp := *src
	inv := &cp
	inv.AuthMode = resp.EmisionTipo
	inv.AuthCode = code
	inv.AuthCodeDue = due
	inv.Result = resp.Resultado
	inv.Message = resultMessage(resp)
	inv.XMLRequest = resp.XMLRequest
	inv.XMLResponse = resp.XMLResponse
	return inv, nil
}
