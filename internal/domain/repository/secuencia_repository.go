package repository

import (
	"context"

	"github.com/academiagest/registro-rrsif/internal/domain/entity"
)

// SecuenciaRepository contador gapless por (serie, ejercicio) y cabeza de la
// cadena de facturas de esa serie. La pareja asignación+append debe correr en
// la misma transacción: los métodos ConBloqueo toman el bloqueo de fila y
// ActualizarCabeza consolida antes del commit. El contador nunca retrocede:
// un número asignado no se reutiliza aunque la factura provisional se borre.
type SecuenciaRepository interface {
	// CabezaConBloqueo bloquea la fila de (serie, ejercicio), creándola si
	// no existe, y devuelve su estado actual (número 0 y huella "" si la
	// cadena está vacía).
	CabezaConBloqueo(ctx context.Context, serie string, ejercicio int) (*entity.Secuencia, error)
	// SiguienteConBloqueo como CabezaConBloqueo pero devuelve además el
	// siguiente número a emitir (empezando en 1).
	// Error domain.ErrAsignacion si el contador desbordaría.
	SiguienteConBloqueo(ctx context.Context, serie string, ejercicio int) (numero int64, huellaAnterior string, err error)
	// ActualizarCabeza consolida número y huella de cabeza. También la usa
	// el borrado provisional para rebobinar la huella al registro anterior
	// sin retroceder el número.
	ActualizarCabeza(ctx context.Context, serie string, ejercicio int, ultimoNumero int64, huella string) error
	// Resincronizar realinea todos los contadores con max(numero) persistido
	// en facturas. Se invoca al arrancar: un contador en memoria o una fila
	// desfasada jamás se fían tras un crash.
	Resincronizar(ctx context.Context) error
}
