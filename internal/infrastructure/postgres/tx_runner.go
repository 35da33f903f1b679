package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/afipws-caea/internal/application/billing"
)

var _ billing.BillingTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// NewRepos devuelve los repos de facturación sobre q (pool para lecturas sueltas, tx dentro de Run*).
func NewRepos(q Querier) billing.Repos {
	return billing.Repos{
		Invoices:  NewInvoiceRepository(q),
		Journals:  NewJournalRepository(q),
		CAEAs:     NewCAEARepository(q),
		Companies: NewCompanyRepository(q),
		Partners:  NewPartnerRepository(q),
	}
}

// RunBilling inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(repos billing.Repos) error) error {
	return r.run(ctx, "billing", fn)
}

// RunIsolated toma su propia conexión del pool: la transacción no comparte estado
// con la del caller y queda confirmada al volver.
func (r *TxRunner) RunIsolated(ctx context.Context, fn func(repos billing.Repos) error) error {
	return r.run(ctx, "isolated", fn)
}

func (r *TxRunner) run(ctx context.Context, name string, fn func(repos billing.Repos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s transaction: %w", name, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s transaction: %w", name, err)
	}
	return nil
}
