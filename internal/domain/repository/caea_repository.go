package repository

import (
	"context"
	"time"

	"github.com/jhoicas/afipws-caea/internal/domain/entity"
)

// CAEARepository consulta de CAEA (solo lectura para este servicio).
type CAEARepository interface {
	// GetActive devuelve el CAEA activo de la empresa vigente en day; nil, nil si no hay.
	GetActive(ctx context.Context, companyID string, day time.Time) (*entity.CAEA, error)
}
