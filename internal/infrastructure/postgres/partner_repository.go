package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	"github.com/jhoicas/afipws-caea/internal/domain/repository"
)

var _ repository.PartnerRepository = (*PartnerRepo)(nil)

// PartnerRepo receptores de comprobantes (usable con pool o tx).
type PartnerRepo struct {
	q Querier
}

// NewPartnerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPartnerRepository(q Querier) *PartnerRepo {
	return &PartnerRepo{q: q}
}

// GetByID obtiene un receptor por ID.
func (r *PartnerRepo) GetByID(ctx context.Context, id string) (*entity.Partner, error) {
	const query = `
		SELECT id, name, COALESCE(vat, ''), COALESCE(identification_afip_code, ''),
		       mipyme_required, mipyme_from_amount, updated_at
		FROM partners WHERE id = $1`
	var p entity.Partner
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.VAT, &p.IdentificationAfipCode,
		&p.MiPyMERequired, &p.MiPyMEFromAmount, &p.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get partner: %w", err)
	}
	return &p, nil
}

// UpdateMiPyME actualiza el umbral FCE MiPyME informado por WSFECRED.
func (r *PartnerRepo) UpdateMiPyME(ctx context.Context, p *entity.Partner) error {
	p.UpdatedAt = time.Now()
	const query = `
		UPDATE partners
		SET mipyme_required = $2, mipyme_from_amount = $3, updated_at = $4
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query, p.ID, p.MiPyMERequired, p.MiPyMEFromAmount, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update partner mipyme: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update partner mipyme: partner %s not found", p.ID)
	}
	return nil
}
