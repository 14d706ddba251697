package repository

import (
	"context"
	"time"

	"github.com/academiagest/registro-rrsif/internal/domain/entity"
)

// Nombre del marcador durable del último resumen periódico.
const MarcadorUltimoResumen = "ultimo_resumen"

// EventoRepository almacén append-only del registro de eventos más el
// marcador durable del scheduler de resúmenes.
type EventoRepository interface {
	Append(ctx context.Context, e *entity.EventoSistema) error
	// LeerDesde eventos con timestamp >= desde, en orden de append.
	LeerDesde(ctx context.Context, desde time.Time) ([]*entity.EventoSistema, error)
	// LeerEntre eventos con desde <= timestamp < hasta, en orden de append.
	LeerEntre(ctx context.Context, desde, hasta time.Time) ([]*entity.EventoSistema, error)
	// ListarTodos cadena completa de eventos en orden de append (export).
	ListarTodos(ctx context.Context) ([]*entity.EventoSistema, error)
	// ObtenerMarcador devuelve el instante guardado bajo nombre, nil si no hay.
	ObtenerMarcador(ctx context.Context, nombre string) (*time.Time, error)
	// GuardarMarcador upsert del marcador durable.
	GuardarMarcador(ctx context.Context, nombre string, t time.Time) error
}
