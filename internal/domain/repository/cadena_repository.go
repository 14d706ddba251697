package repository

import "context"

// CadenaRepository cabeza durable de las cadenas globales (anulaciones,
// eventos). La cabeza solo avanza en la misma transacción que el append del
// registro que la produce.
type CadenaRepository interface {
	// CabezaConBloqueo bloquea la fila de la cadena (la crea si no existe) y
	// devuelve la huella de cabeza actual ("" si la cadena está vacía).
	CabezaConBloqueo(ctx context.Context, nombre string) (string, error)
	// ActualizarCabeza consolida la nueva huella de cabeza.
	ActualizarCabeza(ctx context.Context, nombre, huella string) error
}
