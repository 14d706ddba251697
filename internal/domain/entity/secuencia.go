package entity

import "time"

// Secuencia contador durable por (serie, ejercicio). Guarda además la cabeza
// de la cadena de facturas de esa serie/ejercicio: número y huella avanzan
// juntos en la misma transacción que el append.
type Secuencia struct {
	Serie        string
	Ejercicio    int
	UltimoNumero int64
	UltimaHuella string
	UpdatedAt    time.Time
}

// Nombres de las cadenas con cabeza propia en la tabla cadenas.
const (
	CadenaAnulaciones = "anulaciones"
	CadenaEventos     = "eventos"
)

// Cadena cabeza durable de una cadena global (anulaciones, eventos).
type Cadena struct {
	Nombre       string
	UltimaHuella string
	UpdatedAt    time.Time
}
