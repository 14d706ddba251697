package repository

import (
	"context"

	"github.com/academiagest/registro-rrsif/internal/domain/entity"
)

// OperadorRepository acceso a operadores del back office.
type OperadorRepository interface {
	Create(ctx context.Context, o *entity.Operador) error
	// FindByEmail devuelve nil, nil si no existe.
	FindByEmail(ctx context.Context, email string) (*entity.Operador, error)
	GetByID(ctx context.Context, id string) (*entity.Operador, error)
}
