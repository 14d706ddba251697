package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/academiagest/registro-rrsif/internal/domain"
	"github.com/academiagest/registro-rrsif/internal/domain/entity"
	"github.com/academiagest/registro-rrsif/internal/domain/repository"
)

var _ repository.SecuenciaRepository = (*SecuenciaRepo)(nil)

// SecuenciaRepo contador durable por (serie, ejercicio) con bloqueo de fila.
// El FOR UPDATE serializa a los emisores concurrentes de una misma serie:
// ninguna pareja (asignación, append) se entrelaza con otra.
type SecuenciaRepo struct {
	q Querier
}

// NewSecuenciaRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSecuenciaRepository(q Querier) *SecuenciaRepo {
	return &SecuenciaRepo{q: q}
}

// CabezaConBloqueo bloquea la fila de (serie, ejercicio), creándola si no
// existe, y devuelve su estado actual.
func (r *SecuenciaRepo) CabezaConBloqueo(ctx context.Context, serie string, ejercicio int) (*entity.Secuencia, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO secuencias (serie, ejercicio, ultimo_numero, ultima_huella, updated_at)
		VALUES ($1, $2, 0, '', now())
		ON CONFLICT (serie, ejercicio) DO NOTHING`,
		serie, ejercicio,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: asegurar secuencia: %v", domain.ErrAlmacen, err)
	}
	sec := &entity.Secuencia{Serie: serie, Ejercicio: ejercicio}
	err = r.q.QueryRow(ctx, `
		SELECT ultimo_numero, ultima_huella, updated_at
		FROM secuencias WHERE serie = $1 AND ejercicio = $2
		FOR UPDATE`,
		serie, ejercicio,
	).Scan(&sec.UltimoNumero, &sec.UltimaHuella, &sec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: bloquear secuencia: %v", domain.ErrAlmacen, err)
	}
	return sec, nil
}

// SiguienteConBloqueo asigna el siguiente número bajo el bloqueo de fila.
func (r *SecuenciaRepo) SiguienteConBloqueo(ctx context.Context, serie string, ejercicio int) (int64, string, error) {
	sec, err := r.CabezaConBloqueo(ctx, serie, ejercicio)
	if err != nil {
		return 0, "", err
	}
	if sec.UltimoNumero == math.MaxInt64 {
		return 0, "", fmt.Errorf("%w: secuencia %s/%d agotada", domain.ErrAsignacion, serie, ejercicio)
	}
	return sec.UltimoNumero + 1, sec.UltimaHuella, nil
}

// ActualizarCabeza consolida número y huella de cabeza dentro de la misma tx.
func (r *SecuenciaRepo) ActualizarCabeza(ctx context.Context, serie string, ejercicio int, ultimoNumero int64, huella string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE secuencias SET ultimo_numero = $3, ultima_huella = $4, updated_at = now()
		WHERE serie = $1 AND ejercicio = $2`,
		serie, ejercicio, ultimoNumero, huella,
	)
	if err != nil {
		return fmt.Errorf("%w: actualizar cabeza: %v", domain.ErrAlmacen, err)
	}
	return nil
}

// Resincronizar realinea todos los contadores con lo persistido en facturas.
// El contador solo puede avanzar: GREATEST garantiza que un número asignado
// jamás vuelva a emitirse aunque la fila de secuencia quedara desfasada.
func (r *SecuenciaRepo) Resincronizar(ctx context.Context) error {
	_, err := r.q.Exec(ctx, `
		UPDATE secuencias s
		SET ultimo_numero = GREATEST(s.ultimo_numero, f.max_numero), updated_at = now()
		FROM (
			SELECT serie, ejercicio, MAX(numero) AS max_numero
			FROM facturas GROUP BY serie, ejercicio
		) f
		WHERE f.serie = s.serie AND f.ejercicio = s.ejercicio`)
	if err != nil {
		return fmt.Errorf("%w: resincronizar secuencias: %v", domain.ErrAlmacen, err)
	}
	return nil
}
