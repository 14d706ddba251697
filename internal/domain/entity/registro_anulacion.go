package entity

import "time"

// RegistroAnulacion anula una factura definitiva sin tocar la fila original.
// Solo referencia la factura por su identificador; jamás transporta el payload
// de la factura anulada. Forma su propia cadena ("anulaciones"), verificable
// de manera independiente.
type RegistroAnulacion struct {
	ID             string
	FacturaID      string // identificador del RegistroFactura anulado
	Serie          string
	Ejercicio      int
	Numero         int64
	Motivo         string
	FechaAnulacion time.Time
	IDSistema      string
	Huella         string
	HuellaAnterior string
	Firma          string
	FechaAlta      time.Time
}

// PayloadCanonico campos del registro de anulación que entran en la huella.
func (a *RegistroAnulacion) PayloadCanonico() map[string]any {
	return map[string]any{
		"id":              a.ID,
		"factura_id":      a.FacturaID,
		"serie":           a.Serie,
		"ejercicio":       a.Ejercicio,
		"numero":          a.Numero,
		"motivo":          a.Motivo,
		"fecha_anulacion": a.FechaAnulacion,
		"id_sistema":      a.IDSistema,
	}
}
