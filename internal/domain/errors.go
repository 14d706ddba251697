package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrValidacion         = errors.New("payload de factura inválido")
	ErrCodificacion       = errors.New("tipo no soportado en la codificación canónica")
	ErrAsignacion         = errors.New("no se pudo asignar el número de secuencia")
	ErrFirma              = errors.New("clave de firma no disponible")
	ErrTransicionInvalida = errors.New("transición de estado no permitida")
	ErrDerivaReloj        = errors.New("deriva de reloj por encima del umbral")
	ErrAlmacen            = errors.New("fallo en el almacén durable")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrOperadorNoExiste   = errors.New("operador no encontrado")
	ErrEmailYaRegistrado  = errors.New("el email ya está registrado")
)
