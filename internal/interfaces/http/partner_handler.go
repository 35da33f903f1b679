package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/afipws-caea/internal/application/dto"
	"github.com/jhoicas/afipws-caea/internal/domain/entity"
)

// mipymeRefresher lo implementa *billing.MiPyMEUseCase.
type mipymeRefresher interface {
	RefreshMiPyMEThreshold(ctx context.Context, companyID string, partnerIDs []string) ([]*entity.Partner, error)
}

// PartnerHandler consultas AFIP sobre receptores.
type PartnerHandler struct {
	uc mipymeRefresher
}

func NewPartnerHandler(uc mipymeRefresher) *PartnerHandler {
	return &PartnerHandler{uc: uc}
}

// RefreshMiPyME consulta en WSFECRED el umbral FCE MiPyME de los receptores.
// POST /api/partners/mipyme
func (h *PartnerHandler) RefreshMiPyME(c *fiber.Ctx) error {
	var in dto.PartnerIDsRequest
	if ok, err := bindAndValidate(c, &in); !ok {
		return err
	}
	partners, err := h.uc.RefreshMiPyMEThreshold(c.UserContext(), GetCompanyID(c), in.PartnerIDs)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.PartnerMiPyMEResponse, 0, len(partners))
	for _, p := range partners {
		out = append(out, dto.ToPartnerMiPyME(p))
	}
	return c.JSON(out)
}
