package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/academiagest/registro-rrsif/internal/application/registro"
)

var _ registro.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con los repos del registro atados a
// la tx y hace Commit o Rollback. El bloqueo FOR UPDATE sobre secuencias y
// cadenas serializa a los escritores concurrentes de cada cadena.
func (r *TxRunner) Run(ctx context.Context, fn func(repos registro.RepositoriosTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := registro.RepositoriosTx{
		Facturas:    NewFacturaRepository(tx),
		Anulaciones: NewAnulacionRepository(tx),
		Eventos:     NewEventoRepository(tx),
		Secuencias:  NewSecuenciaRepository(tx),
		Cadenas:     NewCadenaRepository(tx),
	}

	if err := fn(repos); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
