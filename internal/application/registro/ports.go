// Package registro contiene los casos de uso del núcleo RRSIF: alta de
// facturas, ciclo de vida, registro de eventos, verificación y export.
package registro

import (
	"context"
	"time"

	"github.com/academiagest/registro-rrsif/internal/domain/repository"
	"github.com/academiagest/registro-rrsif/internal/infrastructure/reloj"
)

// RepositoriosTx repos atados a una misma transacción del almacén.
type RepositoriosTx struct {
	Facturas    repository.FacturaRepository
	Anulaciones repository.AnulacionRepository
	Eventos     repository.EventoRepository
	Secuencias  repository.SecuenciaRepository
	Cadenas     repository.CadenaRepository
}

// TxRunner ejecuta fn dentro de una transacción: commit si fn retorna nil,
// rollback si no. Toda mutación de cadena pasa por aquí; jamás se deja un
// registro a medias.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos RepositoriosTx) error) error
}

// Firmador produce la firma que ata (huella, timestamp, id del sistema) a
// esta instalación. Sin clave disponible la emisión es fatal.
type Firmador interface {
	Firmar(huella string, ts time.Time, idSistema string) (string, error)
	Verificar(firma, huella string, ts time.Time, idSistema string) bool
}

// VerificadorReloj comprueba la deriva del reloj local contra la fuente
// fiable. Fail-closed: si la fuente no responde, Sincronizado=false.
type VerificadorReloj interface {
	ComprobarDeriva(ctx context.Context) reloj.EstadoReloj
}

// Config parámetros RRSIF que viajan en cada registro más la política de
// deriva de reloj.
type Config struct {
	IDSistema        string
	VersionSoftware  string
	BloquearSiDeriva bool // si true, ErrDerivaReloj bloquea la emisión
}
