package repository

import (
	"context"
	"time"

	"github.com/academiagest/registro-rrsif/internal/domain/entity"
)

// FacturaRepository almacén append-only de registros de facturación.
// No expone Update genérico: las únicas mutaciones sancionadas son las
// proyecciones de estado (finalizar, marcar anulada, estado de envío) y el
// borrado de provisionales; el payload hasheado jamás se altera.
type FacturaRepository interface {
	// Append inserta el registro. La fila nunca se actualiza después.
	Append(ctx context.Context, f *entity.RegistroFactura) error
	GetByID(ctx context.Context, id string) (*entity.RegistroFactura, error)
	// LeerCadena devuelve la cadena completa de (serie, ejercicio) en orden
	// de append (numero ascendente).
	LeerCadena(ctx context.Context, serie string, ejercicio int) ([]*entity.RegistroFactura, error)
	// ListarTodas devuelve todos los registros ordenados por serie,
	// ejercicio y número (export).
	ListarTodas(ctx context.Context) ([]*entity.RegistroFactura, error)
	// MaxNumero mayor número persistido en (serie, ejercicio); 0 si no hay.
	MaxNumero(ctx context.Context, serie string, ejercicio int) (int64, error)
	// Finalizar pasa provisional → definitiva. Devuelve false si la fila no
	// estaba en provisional (sin mutación).
	Finalizar(ctx context.Context, id string, fecha time.Time) (bool, error)
	// MarcarAnulada proyección de estado tras crear el RegistroAnulacion.
	MarcarAnulada(ctx context.Context, id string) (bool, error)
	// BorrarProvisional único borrado físico sancionado. Devuelve false si
	// la fila no estaba en provisional.
	BorrarProvisional(ctx context.Context, id string) (bool, error)
	// MarcarEnvio actualiza el estado de remisión (pendiente/enviado/error).
	MarcarEnvio(ctx context.Context, ids []string, estado string) error
}
