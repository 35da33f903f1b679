package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	"github.com/jhoicas/afipws-caea/internal/domain/repository"
)

var _ repository.JournalRepository = (*JournalRepo)(nil)

// JournalRepo diarios de venta sobre PostgreSQL.
type JournalRepo struct {
	q Querier
}

func NewJournalRepository(q Querier) *JournalRepo {
	return &JournalRepo{q: q}
}

func (r *JournalRepo) GetByID(ctx context.Context, id string) (*entity.Journal, error) {
	const query = `
		SELECT id, company_id, name, pos_number, pos_system,
		       COALESCE(afip_ws, ''), COALESCE(caea_journal_id::text, '')
		FROM journals WHERE id = $1`
	var j entity.Journal
	err := r.q.QueryRow(ctx, query, id).Scan(
		&j.ID, &j.CompanyID, &j.Name, &j.POSNumber, &j.POSSystem, &j.AfipWS, &j.CAEAJournalID,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get journal: %w", err)
	}
	return &j, nil
}
