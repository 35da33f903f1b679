package repository

import (
	"context"

	"github.com/jhoicas/afipws-caea/internal/domain/entity"
)

// PartnerRepository persistencia de receptores.
type PartnerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Partner, error)
	// UpdateMiPyME persiste solo los campos del umbral FCE MiPyME.
	UpdateMiPyME(ctx context.Context, p *entity.Partner) error
}
