package entity

import "time"

// Tipos de evento del registro de eventos (conjunto cerrado, RD 1007/2023).
const (
	EventoInicioOperacion   = "inicio_operacion"
	EventoFinOperacion      = "fin_operacion"
	EventoGeneracionFactura = "generacion_factura"
	EventoAnulacionFactura  = "anulacion_factura"
	EventoIncidencia        = "incidencia"
	EventoExportacion       = "exportacion"
	EventoRestauracion      = "restauracion"
	EventoResumenPeriodico  = "resumen_periodico"
	EventoApagadoReinicio   = "apagado_reinicio"
)

// ActorSistema actor de los eventos emitidos por el propio sistema
// (scheduler, arranque, apagado), frente a un operador con nombre.
const ActorSistema = "sistema"

var tiposEvento = map[string]struct{}{
	EventoInicioOperacion:   {},
	EventoFinOperacion:      {},
	EventoGeneracionFactura: {},
	EventoAnulacionFactura:  {},
	EventoIncidencia:        {},
	EventoExportacion:       {},
	EventoRestauracion:      {},
	EventoResumenPeriodico:  {},
	EventoApagadoReinicio:   {},
}

// TipoEventoValido indica si el tipo pertenece al conjunto cerrado.
func TipoEventoValido(tipo string) bool {
	_, ok := tiposEvento[tipo]
	return ok
}

// EventoSistema registro inmutable del log de eventos. Encadenado por huella
// en su propia cadena ("eventos"), independiente de facturas y anulaciones.
// Referencia facturas/anulaciones solo por identificador en Detalle/Metadata.
type EventoSistema struct {
	ID             string
	Tipo           string
	Timestamp      time.Time
	Actor          string // "sistema" o nombre de operador
	Detalle        string
	Huella         string
	HuellaAnterior string
	Metadata       map[string]string

	// Solo para resumen_periodico: recuentos por tipo y ventana cubierta.
	Recuentos    map[string]int
	VentanaDesde *time.Time
	VentanaHasta *time.Time
}

// PayloadCanonico campos del evento que entran en la huella.
func (e *EventoSistema) PayloadCanonico() map[string]any {
	p := map[string]any{
		"id":        e.ID,
		"tipo":      e.Tipo,
		"timestamp": e.Timestamp,
		"actor":     e.Actor,
		"detalle":   e.Detalle,
	}
	if len(e.Metadata) > 0 {
		p["metadata"] = e.Metadata
	}
	if e.Tipo == EventoResumenPeriodico {
		p["recuentos"] = e.Recuentos
		if e.VentanaDesde != nil {
			p["ventana_desde"] = *e.VentanaDesde
		}
		if e.VentanaHasta != nil {
			p["ventana_hasta"] = *e.VentanaHasta
		}
	}
	return p
}
