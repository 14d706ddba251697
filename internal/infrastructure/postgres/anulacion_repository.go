package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/academiagest/registro-rrsif/internal/domain"
	"github.com/academiagest/registro-rrsif/internal/domain/entity"
	"github.com/academiagest/registro-rrsif/internal/domain/repository"
)

var _ repository.AnulacionRepository = (*AnulacionRepo)(nil)

// AnulacionRepo implementación append-only de AnulacionRepository.
type AnulacionRepo struct {
	q Querier
}

// NewAnulacionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAnulacionRepository(q Querier) *AnulacionRepo {
	return &AnulacionRepo{q: q}
}

const anulacionColumnas = `
	id, factura_id, serie, ejercicio, numero, motivo, fecha_anulacion,
	id_sistema, huella, huella_anterior, firma, fecha_alta`

// Append inserta el registro de anulación. El constraint único sobre
// factura_id respalda en el almacén la regla "una anulación por factura".
func (r *AnulacionRepo) Append(ctx context.Context, a *entity.RegistroAnulacion) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	query := `
		INSERT INTO anulaciones (` + anulacionColumnas + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.q.Exec(ctx, query,
		a.ID, a.FacturaID, a.Serie, a.Ejercicio, a.Numero, a.Motivo, a.FechaAnulacion,
		a.IDSistema, a.Huella, nullIfEmpty(a.HuellaAnterior), a.Firma, a.FechaAlta,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: la factura %s ya está anulada", domain.ErrTransicionInvalida, a.FacturaID)
		}
		return fmt.Errorf("%w: insert anulación: %v", domain.ErrAlmacen, err)
	}
	return nil
}

// GetByFacturaID devuelve la anulación de una factura; nil si no existe.
func (r *AnulacionRepo) GetByFacturaID(ctx context.Context, facturaID string) (*entity.RegistroAnulacion, error) {
	query := `SELECT ` + anulacionColumnas + ` FROM anulaciones WHERE factura_id = $1`
	a, err := scanAnulacion(r.q.QueryRow(ctx, query, facturaID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get anulación: %w", err)
	}
	return a, nil
}

// ListarTodas cadena completa de anulaciones en orden de append: posicion se
// asigna en el INSERT, con el bloqueo de la cadena ya tomado.
func (r *AnulacionRepo) ListarTodas(ctx context.Context) ([]*entity.RegistroAnulacion, error) {
	query := `SELECT ` + anulacionColumnas + ` FROM anulaciones ORDER BY posicion`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listar anulaciones: %w", err)
	}
	defer rows.Close()
	var list []*entity.RegistroAnulacion
	for rows.Next() {
		a, err := scanAnulacion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan anulación: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func scanAnulacion(row pgxScanner) (*entity.RegistroAnulacion, error) {
	var a entity.RegistroAnulacion
	var huellaAnterior *string
	err := row.Scan(
		&a.ID, &a.FacturaID, &a.Serie, &a.Ejercicio, &a.Numero, &a.Motivo, &a.FechaAnulacion,
		&a.IDSistema, &a.Huella, &huellaAnterior, &a.Firma, &a.FechaAlta,
	)
	if err != nil {
		return nil, err
	}
	a.HuellaAnterior = derefStr(huellaAnterior)
	return &a, nil
}
