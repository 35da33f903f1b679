package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/afipws-caea/internal/domain"
	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	"github.com/jhoicas/afipws-caea/internal/domain/repository"
	"github.com/jhoicas/afipws-caea/internal/infrastructure/afipws"
	"github.com/jhoicas/afipws-caea/pkg/logger"
)

// MiPyMEChecker consulta WSFECRED.
type MiPyMEChecker interface {
	ConsultarMontoObligadoRecepcion(ctx context.Context, representada, cuit string) (*afipws.MontoObligado, error)
}

// MiPyMEUseCase actualiza el umbral FCE MiPyME de los receptores.
type MiPyMEUseCase struct {
	partners  repository.PartnerRepository
	companies repository.CompanyRepository
	checker   MiPyMEChecker
	log       *logger.Logger
}

func NewMiPyMEUseCase(partners repository.PartnerRepository, companies repository.CompanyRepository, checker MiPyMEChecker, log *logger.Logger) *MiPyMEUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &MiPyMEUseCase{partners: partners, companies: companies, checker: checker, log: log.WithComponent("mipyme")}
}

// RefreshMiPyMEThreshold consulta a AFIP cada receptor con CUIT; los que no tienen se omiten.
func (uc *MiPyMEUseCase) RefreshMiPyMEThreshold(ctx context.Context, companyID string, partnerIDs []string) ([]*entity.Partner, error) {
	if len(partnerIDs) == 0 {
		return nil, domain.ErrInvalidInput
	}
	company, err := uc.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("empresa %s: %w", companyID, domain.ErrNotFound)
	}

	var updated []*entity.Partner
	for _, id := range partnerIDs {
		p, err := uc.partners.GetByID(ctx, id)
		if err != nil {
			return updated, err
		}
		if p == nil {
			return updated, fmt.Errorf("receptor %s: %w", id, domain.ErrNotFound)
		}
		if p.VAT == "" {
			continue
		}
		res, err := uc.checker.ConsultarMontoObligadoRecepcion(ctx, company.CUIT, p.VAT)
		if err != nil {
			return updated, fmt.Errorf("receptor %s: %w", p.ID, err)
		}
		p.MiPyMERequired = res.Obligado
		p.MiPyMEFromAmount = res.MontoDesde
		if err := uc.partners.UpdateMiPyME(ctx, p); err != nil {
			return updated, err
		}
		uc.log.Info().Str("partner_id", p.ID).Bool("obligado", p.MiPyMERequired).
			Str("desde", p.MiPyMEFromAmount.String()).Msg("umbral MiPyME actualizado")
		updated = append(updated, p)
	}
	return updated, nil
}
