package repository

import (
	"context"

	"github.com/jhoicas/afipws-caea/internal/domain/entity"
)

// CompanyRepository lectura de empresas emisoras.
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)
}
