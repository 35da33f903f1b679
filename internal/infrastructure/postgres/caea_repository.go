package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	"github.com/jhoicas/afipws-caea/internal/domain/repository"
)

var _ repository.CAEARepository = (*CAEARepo)(nil)

// CAEARepo implementa CAEARepository sobre PostgreSQL.
type CAEARepo struct {
	q Querier
}

// NewCAEARepository construye el repositorio. Acepta pool o tx.
func NewCAEARepository(q Querier) *CAEARepo {
	return &CAEARepo{q: q}
}

// GetActive es la consulta crítica del sellado CAEA.
// Devuelve nil, nil si la empresa no tiene un CAEA activo que cubra day.
func (r *CAEARepo) GetActive(ctx context.Context, companyID string, day time.Time) (*entity.CAEA, error) {
	const q = `
		SELECT id, company_id, code, period, order_number, date_from, date_to, process_date, state
		FROM caeas
		WHERE company_id = $1 AND state = 'active'
		  AND date_from <= $2::date AND date_to >= $2::date
		ORDER BY date_from DESC
		LIMIT 1`
	var c entity.CAEA
	err := r.q.QueryRow(ctx, q, companyID, day).Scan(
		&c.ID, &c.CompanyID, &c.Code, &c.Period, &c.Order,
		&c.DateFrom, &c.DateTo, &c.ProcessDate, &c.State,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active caea: %w", err)
	}
	return &c, nil
}
