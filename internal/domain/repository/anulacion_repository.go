package repository

import (
	"context"

	"github.com/academiagest/registro-rrsif/internal/domain/entity"
)

// AnulacionRepository almacén append-only de registros de anulación.
type AnulacionRepository interface {
	Append(ctx context.Context, a *entity.RegistroAnulacion) error
	// GetByFacturaID devuelve la anulación de una factura, nil si no existe.
	GetByFacturaID(ctx context.Context, facturaID string) (*entity.RegistroAnulacion, error)
	// ListarTodas cadena completa de anulaciones en orden de append.
	ListarTodas(ctx context.Context) ([]*entity.RegistroAnulacion, error)
}
