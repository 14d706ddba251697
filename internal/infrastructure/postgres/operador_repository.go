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

var _ repository.OperadorRepository = (*OperadorRepo)(nil)

// OperadorRepo implementa OperadorRepository sobre PostgreSQL.
type OperadorRepo struct {
	q Querier
}

// NewOperadorRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOperadorRepository(q Querier) *OperadorRepo {
	return &OperadorRepo{q: q}
}

const operadorColumnas = `id, email, password_hash, nombre, rol, estado, created_at, updated_at`

// Create persiste un operador.
func (r *OperadorRepo) Create(ctx context.Context, o *entity.Operador) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	query := `
		INSERT INTO operadores (` + operadorColumnas + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.q.Exec(ctx, query,
		o.ID, o.Email, o.PasswordHash, o.Nombre, o.Rol, o.Estado, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailYaRegistrado
		}
		return fmt.Errorf("insert operador: %w", err)
	}
	return nil
}

// FindByEmail devuelve nil, nil si no existe.
func (r *OperadorRepo) FindByEmail(ctx context.Context, email string) (*entity.Operador, error) {
	query := `SELECT ` + operadorColumnas + ` FROM operadores WHERE email = $1`
	return r.get(ctx, query, email)
}

// GetByID obtiene un operador por ID; nil si no existe.
func (r *OperadorRepo) GetByID(ctx context.Context, id string) (*entity.Operador, error) {
	query := `SELECT ` + operadorColumnas + ` FROM operadores WHERE id = $1`
	return r.get(ctx, query, id)
}

func (r *OperadorRepo) get(ctx context.Context, query string, arg any) (*entity.Operador, error) {
	var o entity.Operador
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&o.ID, &o.Email, &o.PasswordHash, &o.Nombre, &o.Rol, &o.Estado, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get operador: %w", err)
	}
	return &o, nil
}
