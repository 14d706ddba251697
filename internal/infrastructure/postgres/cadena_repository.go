package postgres

import (
	"context"
	"fmt"

	"github.com/academiagest/registro-rrsif/internal/domain"
	"github.com/academiagest/registro-rrsif/internal/domain/repository"
)

var _ repository.CadenaRepository = (*CadenaRepo)(nil)

// CadenaRepo cabeza durable de las cadenas globales (anulaciones, eventos).
type CadenaRepo struct {
	q Querier
}

// NewCadenaRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCadenaRepository(q Querier) *CadenaRepo {
	return &CadenaRepo{q: q}
}

// CabezaConBloqueo bloquea la fila de la cadena (la crea si no existe) y
// devuelve la huella de cabeza actual.
func (r *CadenaRepo) CabezaConBloqueo(ctx context.Context, nombre string) (string, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO cadenas (nombre, ultima_huella, updated_at)
		VALUES ($1, '', now())
		ON CONFLICT (nombre) DO NOTHING`,
		nombre,
	)
	if err != nil {
		return "", fmt.Errorf("%w: asegurar cadena: %v", domain.ErrAlmacen, err)
	}
	var huella string
	err = r.q.QueryRow(ctx,
		`SELECT ultima_huella FROM cadenas WHERE nombre = $1 FOR UPDATE`,
		nombre,
	).Scan(&huella)
	if err != nil {
		return "", fmt.Errorf("%w: bloquear cadena: %v", domain.ErrAlmacen, err)
	}
	return huella, nil
}

// ActualizarCabeza consolida la nueva huella de cabeza dentro de la misma tx.
func (r *CadenaRepo) ActualizarCabeza(ctx context.Context, nombre, huella string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE cadenas SET ultima_huella = $2, updated_at = now() WHERE nombre = $1`,
		nombre, huella,
	)
	if err != nil {
		return fmt.Errorf("%w: actualizar cadena: %v", domain.ErrAlmacen, err)
	}
	return nil
}
