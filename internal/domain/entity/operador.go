package entity

import "time"

// Roles válidos para Operador.
const (
	RolAdmin    = "admin"
	RolOperador = "operador"
)

// Operador usuario del back office autorizado a emitir, finalizar y anular
// facturas. Su nombre es el actor que queda en el registro de eventos.
type Operador struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt, nunca en claro tras persistir
	Nombre       string
	Rol          string // admin, operador
	Estado       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
