package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de ciclo de vida de un registro de facturación (RRSIF).
// "provisional" es visible para el operador y todavía borrable; "definitiva"
// entra en la garantía pública de la cadena; "anulada" solo se alcanza vía
// RegistroAnulacion, nunca tocando la fila original.
const (
	EstadoProvisional = "provisional"
	EstadoDefinitiva  = "definitiva"
	EstadoAnulada     = "anulada"
)

// Estados de remisión del registro a la AEAT.
const (
	EnvioPendiente = "pendiente"
	EnvioEnviado   = "enviado"
	EnvioError     = "error"
)

// LineaIVA línea del desglose fiscal (tipo/base/cuota).
// El núcleo no recalcula nada: el colaborador de facturación entrega el
// desglose ya computado y aquí se registra tal cual.
type LineaIVA struct {
	Tipo  decimal.Decimal `json:"tipo"`
	Base  decimal.Decimal `json:"base"`
	Cuota decimal.Decimal `json:"cuota"`
}

// RegistroFactura representa un registro de facturación del libro RRSIF.
// El payload que entra en la huella es inmutable desde el alta; Estado,
// EstadoEnvio y FinalizadaEn son las únicas proyecciones mutables y nunca
// participan en el hash ni en la firma.
type RegistroFactura struct {
	ID                string
	NIFEmisor         string
	NombreEmisor      string
	DireccionEmisor   string
	NIFReceptor       string
	NombreReceptor    string
	DireccionReceptor string
	Serie             string
	Ejercicio         int
	Numero            int64
	FechaExpedicion   time.Time
	FechaOperacion    time.Time
	Descripcion       string
	BaseImponible     decimal.Decimal
	Desglose          []LineaIVA
	ImporteTotal      decimal.Decimal
	IDSistema         string
	VersionSoftware   string
	Huella            string // SHA-256 hex del payload canónico ‖ huella anterior
	HuellaAnterior    string // vacía solo en el primer registro de la serie/ejercicio
	CreadoEn          int64  // reloj monotónico (epoch ns) en el momento del alta
	URLQR             string
	Firma             string
	Estado            string // provisional | definitiva | anulada
	EstadoEnvio       string // pendiente | enviado | error
	FinalizadaEn      *time.Time
	Metadata          map[string]string // ip, user_agent, dispositivo...
	FechaAlta         time.Time
}

// PayloadCanonico devuelve el conjunto lógico de campos que entran en la
// huella. No incluye Huella, HuellaAnterior, Firma ni proyecciones mutables:
// la huella anterior se concatena aparte y el resto no forma parte del
// contenido garantizado.
func (r *RegistroFactura) PayloadCanonico() map[string]any {
	desglose := make([]map[string]any, 0, len(r.Desglose))
	for _, l := range r.Desglose {
		desglose = append(desglose, map[string]any{
			"tipo":  l.Tipo,
			"base":  l.Base,
			"cuota": l.Cuota,
		})
	}
	return map[string]any{
		"id":                 r.ID,
		"nif_emisor":         r.NIFEmisor,
		"nombre_emisor":      r.NombreEmisor,
		"direccion_emisor":   r.DireccionEmisor,
		"nif_receptor":       r.NIFReceptor,
		"nombre_receptor":    r.NombreReceptor,
		"direccion_receptor": r.DireccionReceptor,
		"serie":              r.Serie,
		"ejercicio":          r.Ejercicio,
		"numero":             r.Numero,
		"fecha_expedicion":   r.FechaExpedicion,
		"fecha_operacion":    r.FechaOperacion,
		"descripcion":        r.Descripcion,
		"base_imponible":     r.BaseImponible,
		"desglose":           desglose,
		"importe_total":      r.ImporteTotal,
		"id_sistema":         r.IDSistema,
		"version_software":   r.VersionSoftware,
		"creado_en":          r.CreadoEn,
	}
}
