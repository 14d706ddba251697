package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/academiagest/registro-rrsif/internal/domain/entity"
)

// LineaIVARequest línea del desglose fiscal, ya computada por facturación.
type LineaIVARequest struct {
	Tipo  decimal.Decimal `json:"tipo"`
	Base  decimal.Decimal `json:"base"`
	Cuota decimal.Decimal `json:"cuota"`
}

// AltaFacturaRequest payload lógico de la factura que entrega el colaborador
// de facturación, validado y con totales ya calculados.
type AltaFacturaRequest struct {
	NIFEmisor         string            `json:"nif_emisor"`
	NombreEmisor      string            `json:"nombre_emisor"`
	DireccionEmisor   string            `json:"direccion_emisor"`
	NIFReceptor       string            `json:"nif_receptor"`
	NombreReceptor    string            `json:"nombre_receptor"`
	DireccionReceptor string            `json:"direccion_receptor"`
	Serie             string            `json:"serie"`
	FechaOperacion    string            `json:"fecha_operacion"` // YYYY-MM-DD
	Descripcion       string            `json:"descripcion"`
	BaseImponible     decimal.Decimal   `json:"base_imponible"`
	Desglose          []LineaIVARequest `json:"desglose"`
	ImporteTotal      decimal.Decimal   `json:"importe_total"`
	Metadata          map[string]string `json:"metadata,omitempty"` // ip, user_agent, dispositivo
}

// FacturaResponse proyección del registro para los consumidores HTTP/PDF.
type FacturaResponse struct {
	ID              string            `json:"id"`
	Serie           string            `json:"serie"`
	Ejercicio       int               `json:"ejercicio"`
	Numero          int64             `json:"numero"`
	NIFEmisor       string            `json:"nif_emisor"`
	NombreEmisor    string            `json:"nombre_emisor"`
	NIFReceptor     string            `json:"nif_receptor"`
	NombreReceptor  string            `json:"nombre_receptor"`
	FechaExpedicion string            `json:"fecha_expedicion"`
	FechaOperacion  string            `json:"fecha_operacion"`
	Descripcion     string            `json:"descripcion"`
	BaseImponible   decimal.Decimal   `json:"base_imponible"`
	Desglose        []LineaIVARequest `json:"desglose"`
	ImporteTotal    decimal.Decimal   `json:"importe_total"`
	Huella          string            `json:"huella"`
	HuellaAnterior  string            `json:"huella_anterior,omitempty"`
	URLQR           string            `json:"url_qr"`
	Firma           string            `json:"firma"`
	Estado          string            `json:"estado"`
	EstadoEnvio     string            `json:"estado_envio"`
}

// NewFacturaResponse construye la proyección desde la entidad.
func NewFacturaResponse(f *entity.RegistroFactura) *FacturaResponse {
	desglose := make([]LineaIVARequest, 0, len(f.Desglose))
	for _, l := range f.Desglose {
		desglose = append(desglose, LineaIVARequest{Tipo: l.Tipo, Base: l.Base, Cuota: l.Cuota})
	}
	return &FacturaResponse{
		ID:              f.ID,
		Serie:           f.Serie,
		Ejercicio:       f.Ejercicio,
		Numero:          f.Numero,
		NIFEmisor:       f.NIFEmisor,
		NombreEmisor:    f.NombreEmisor,
		NIFReceptor:     f.NIFReceptor,
		NombreReceptor:  f.NombreReceptor,
		FechaExpedicion: f.FechaExpedicion.Format(time.RFC3339),
		FechaOperacion:  f.FechaOperacion.Format("2006-01-02"),
		Descripcion:     f.Descripcion,
		BaseImponible:   f.BaseImponible,
		Desglose:        desglose,
		ImporteTotal:    f.ImporteTotal,
		Huella:          f.Huella,
		HuellaAnterior:  f.HuellaAnterior,
		URLQR:           f.URLQR,
		Firma:           f.Firma,
		Estado:          f.Estado,
		EstadoEnvio:     f.EstadoEnvio,
	}
}

// AnulacionRequest motivo de la anulación.
type AnulacionRequest struct {
	Motivo string `json:"motivo"`
}

// AnulacionResponse proyección del registro de anulación.
type AnulacionResponse struct {
	ID             string `json:"id"`
	FacturaID      string `json:"factura_id"`
	Serie          string `json:"serie"`
	Ejercicio      int    `json:"ejercicio"`
	Numero         int64  `json:"numero"`
	Motivo         string `json:"motivo"`
	FechaAnulacion string `json:"fecha_anulacion"`
	Huella         string `json:"huella"`
	HuellaAnterior string `json:"huella_anterior,omitempty"`
	Firma          string `json:"firma"`
}

// NewAnulacionResponse construye la proyección desde la entidad.
func NewAnulacionResponse(a *entity.RegistroAnulacion) *AnulacionResponse {
	return &AnulacionResponse{
		ID:             a.ID,
		FacturaID:      a.FacturaID,
		Serie:          a.Serie,
		Ejercicio:      a.Ejercicio,
		Numero:         a.Numero,
		Motivo:         a.Motivo,
		FechaAnulacion: a.FechaAnulacion.Format(time.RFC3339),
		Huella:         a.Huella,
		HuellaAnterior: a.HuellaAnterior,
		Firma:          a.Firma,
	}
}

// EventoResponse proyección de un evento del sistema.
type EventoResponse struct {
	ID             string            `json:"id"`
	Tipo           string            `json:"tipo"`
	Timestamp      string            `json:"timestamp"`
	Actor          string            `json:"actor"`
	Detalle        string            `json:"detalle"`
	Huella         string            `json:"huella"`
	HuellaAnterior string            `json:"huella_anterior,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Recuentos      map[string]int    `json:"recuentos,omitempty"`
	VentanaDesde   string            `json:"ventana_desde,omitempty"`
	VentanaHasta   string            `json:"ventana_hasta,omitempty"`
}

// NewEventoResponse construye la proyección desde la entidad.
func NewEventoResponse(e *entity.EventoSistema) *EventoResponse {
	resp := &EventoResponse{
		ID:             e.ID,
		Tipo:           e.Tipo,
		Timestamp:      e.Timestamp.Format(time.RFC3339),
		Actor:          e.Actor,
		Detalle:        e.Detalle,
		Huella:         e.Huella,
		HuellaAnterior: e.HuellaAnterior,
		Metadata:       e.Metadata,
		Recuentos:      e.Recuentos,
	}
	if e.VentanaDesde != nil {
		resp.VentanaDesde = e.VentanaDesde.Format(time.RFC3339)
	}
	if e.VentanaHasta != nil {
		resp.VentanaHasta = e.VentanaHasta.Format(time.RFC3339)
	}
	return resp
}

// VerificacionResponse resultado de verificar una cadena completa.
type VerificacionResponse struct {
	Cadena     string `json:"cadena"` // facturas | anulaciones | eventos
	Valida     bool   `json:"valida"`
	IndiceRoto int    `json:"indice_roto"` // -1 si la cadena es consistente
	Registros  int    `json:"registros"`
}
