package repository

import (
	"context"

	"github.com/jhoicas/afipws-caea/internal/domain/entity"
)

// JournalRepository lectura de diarios de venta.
type JournalRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Journal, error)
}
