package registro

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/academiagest/registro-rrsif/internal/domain"
	"github.com/academiagest/registro-rrsif/internal/domain/entity"
	"github.com/academiagest/registro-rrsif/pkg/logger"
)

// Alcances y formatos de exportación.
const (
	AlcanceFacturas = "facturas"
	AlcanceEventos  = "eventos"
	AlcanceTodo     = "todo"

	FormatoJSON = "json"
	FormatoCSV  = "csv"
	FormatoXML  = "xml"

	versionExport = "1.0"
)

// Export vuelca los libros a un documento autodescriptivo apto para
// inspección o remisión: JSON y CSV para el inspector, XML para la remisión
// a la administración. El volcado incluye huellas y firmas para que la cadena
// pueda verificarse fuera del sistema.
type Export struct {
	tx      TxRunner
	eventos *RegistroEventos
	cfg     Config
	log     *logger.Logger

	// ahora inyectable en tests
	ahora func() time.Time
}

// NewExport construye el caso de uso.
func NewExport(tx TxRunner, eventos *RegistroEventos, cfg Config, log *logger.Logger) *Export {
	return &Export{tx: tx, eventos: eventos, cfg: cfg, log: log, ahora: time.Now}
}

// ResultadoExport documento serializado más su tipo MIME y el total de
// registros volcados.
type ResultadoExport struct {
	Datos       []byte
	ContentType string
	Registros   int
}

// Exportar genera el volcado del alcance pedido en el formato pedido y
// registra el evento de exportación tras el commit.
func (uc *Export) Exportar(ctx context.Context, actor, alcance, formato string) (*ResultadoExport, error) {
	switch alcance {
	case AlcanceFacturas, AlcanceEventos, AlcanceTodo:
	default:
		return nil, fmt.Errorf("%w: alcance desconocido %q", domain.ErrValidacion, alcance)
	}

	var (
		facturas    []*entity.RegistroFactura
		anulaciones []*entity.RegistroAnulacion
		eventos     []*entity.EventoSistema
	)
	err := uc.tx.Run(ctx, func(repos RepositoriosTx) error {
		var err error
		if alcance == AlcanceFacturas || alcance == AlcanceTodo {
			if facturas, err = repos.Facturas.ListarTodas(ctx); err != nil {
				return err
			}
			if anulaciones, err = repos.Anulaciones.ListarTodas(ctx); err != nil {
				return err
			}
		}
		if alcance == AlcanceEventos || alcance == AlcanceTodo {
			if eventos, err = repos.Eventos.ListarTodos(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := len(facturas) + len(anulaciones) + len(eventos)
	var resultado *ResultadoExport
	switch formato {
	case FormatoJSON:
		resultado, err = uc.exportarJSON(facturas, anulaciones, eventos, total)
	case FormatoCSV:
		resultado, err = uc.exportarCSV(facturas, anulaciones, eventos, total)
	case FormatoXML:
		resultado, err = uc.exportarXML(ctx, facturas, anulaciones, total)
	default:
		return nil, fmt.Errorf("%w: formato desconocido %q", domain.ErrValidacion, formato)
	}
	if err != nil {
		return nil, err
	}

	detalle := fmt.Sprintf("export %s en %s: %d registros", alcance, formato, resultado.Registros)
	if _, errEv := uc.eventos.Registrar(ctx, entity.EventoExportacion, detalle, actor, map[string]string{
		"alcance": alcance,
		"formato": formato,
	}); errEv != nil {
		uc.log.Error().Err(errEv).Msg("registrar evento de exportación")
	}
	return resultado, nil
}

// exportarJSON volcado autodescriptivo: cabecera del sistema, los payloads
// canónicos y las huellas/firmas tal cual se persistieron.
func (uc *Export) exportarJSON(facturas []*entity.RegistroFactura, anulaciones []*entity.RegistroAnulacion, eventos []*entity.EventoSistema, total int) (*ResultadoExport, error) {
	doc := map[string]any{
		"version":          versionExport,
		"id_sistema":       uc.cfg.IDSistema,
		"version_software": uc.cfg.VersionSoftware,
		"fecha_export":     uc.ahora().UTC().Format(time.RFC3339),
		"totales": map[string]int{
			"facturas":    len(facturas),
			"anulaciones": len(anulaciones),
			"eventos":     len(eventos),
		},
	}

	volcadoFacturas := make([]map[string]any, 0, len(facturas))
	for _, f := range facturas {
		p := f.PayloadCanonico()
		p["huella"] = f.Huella
		p["huella_anterior"] = f.HuellaAnterior
		p["firma"] = f.Firma
		p["url_qr"] = f.URLQR
		p["estado"] = f.Estado
		p["estado_envio"] = f.EstadoEnvio
		volcadoFacturas = append(volcadoFacturas, p)
	}
	doc["facturas"] = volcadoFacturas

	volcadoAnulaciones := make([]map[string]any, 0, len(anulaciones))
	for _, a := range anulaciones {
		p := a.PayloadCanonico()
		p["huella"] = a.Huella
		p["huella_anterior"] = a.HuellaAnterior
		p["firma"] = a.Firma
		volcadoAnulaciones = append(volcadoAnulaciones, p)
	}
	doc["anulaciones"] = volcadoAnulaciones

	volcadoEventos := make([]map[string]any, 0, len(eventos))
	for _, e := range eventos {
		p := e.PayloadCanonico()
		p["huella"] = e.Huella
		p["huella_anterior"] = e.HuellaAnterior
		volcadoEventos = append(volcadoEventos, p)
	}
	doc["eventos"] = volcadoEventos

	datos, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: serializar export JSON: %v", domain.ErrCodificacion, err)
	}
	return &ResultadoExport{Datos: datos, ContentType: "application/json", Registros: total}, nil
}

// Columnas del CSV: superconjunto de facturas, anulaciones y eventos, con
// la columna tipo_registro como discriminador.
var columnasCSV = []string{
	"tipo_registro", "id", "serie", "ejercicio", "numero", "fecha",
	"nif_emisor", "nif_receptor", "descripcion", "importe_total",
	"estado", "actor", "huella", "huella_anterior", "firma",
}

func (uc *Export) exportarCSV(facturas []*entity.RegistroFactura, anulaciones []*entity.RegistroAnulacion, eventos []*entity.EventoSistema, total int) (*ResultadoExport, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columnasCSV); err != nil {
		return nil, fmt.Errorf("%w: escribir cabecera CSV: %v", domain.ErrCodificacion, err)
	}
	for _, f := range facturas {
		fila := []string{
			"factura", f.ID, f.Serie, strconv.Itoa(f.Ejercicio), strconv.FormatInt(f.Numero, 10),
			f.FechaExpedicion.UTC().Format(time.RFC3339),
			f.NIFEmisor, f.NIFReceptor, f.Descripcion, f.ImporteTotal.StringFixed(2),
			f.Estado, "", f.Huella, f.HuellaAnterior, f.Firma,
		}
		if err := w.Write(fila); err != nil {
			return nil, fmt.Errorf("%w: escribir fila CSV: %v", domain.ErrCodificacion, err)
		}
	}
	for _, a := range anulaciones {
		fila := []string{
			"anulacion", a.ID, a.Serie, strconv.Itoa(a.Ejercicio), strconv.FormatInt(a.Numero, 10),
			a.FechaAnulacion.UTC().Format(time.RFC3339),
			"", "", a.Motivo, "",
			"", "", a.Huella, a.HuellaAnterior, a.Firma,
		}
		if err := w.Write(fila); err != nil {
			return nil, fmt.Errorf("%w: escribir fila CSV: %v", domain.ErrCodificacion, err)
		}
	}
	for _, e := range eventos {
		fila := []string{
			"evento", e.ID, "", "", "",
			e.Timestamp.UTC().Format(time.RFC3339),
			"", "", e.Detalle, "",
			e.Tipo, e.Actor, e.Huella, e.HuellaAnterior, "",
		}
		if err := w.Write(fila); err != nil {
			return nil, fmt.Errorf("%w: escribir fila CSV: %v", domain.ErrCodificacion, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("%w: volcar CSV: %v", domain.ErrCodificacion, err)
	}
	return &ResultadoExport{Datos: buf.Bytes(), ContentType: "text/csv", Registros: total}, nil
}

// exportarXML construye el documento de remisión y marca las facturas
// incluidas como enviadas. El XML es el único formato con efecto secundario:
// representa una remisión real a la administración, no una consulta.
func (uc *Export) exportarXML(ctx context.Context, facturas []*entity.RegistroFactura, anulaciones []*entity.RegistroAnulacion, total int) (*ResultadoExport, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	raiz := doc.CreateElement("RegistroFacturacion")
	raiz.CreateAttr("Version", versionExport)

	cabecera := raiz.CreateElement("Cabecera")
	cabecera.CreateElement("IDSistemaInformatico").SetText(uc.cfg.IDSistema)
	cabecera.CreateElement("VersionSoftware").SetText(uc.cfg.VersionSoftware)
	cabecera.CreateElement("FechaGeneracion").SetText(uc.ahora().UTC().Format(time.RFC3339))

	ids := make([]string, 0, len(facturas))
	for _, f := range facturas {
		// Las provisionales viajan en el documento con su estado, pero la
		// remisión solo consolida registros ya definitivos o anulados.
		if f.Estado != entity.EstadoProvisional {
			ids = append(ids, f.ID)
		}

		alta := raiz.CreateElement("RegistroAlta")
		idFactura := alta.CreateElement("IDFactura")
		idFactura.CreateElement("IDEmisorFactura").SetText(f.NIFEmisor)
		idFactura.CreateElement("NumSerieFactura").SetText(fmt.Sprintf("%s-%d", f.Serie, f.Numero))
		idFactura.CreateElement("FechaExpedicionFactura").SetText(f.FechaExpedicion.UTC().Format("02-01-2006"))
		alta.CreateElement("NombreRazonEmisor").SetText(f.NombreEmisor)
		destinatario := alta.CreateElement("Destinatario")
		destinatario.CreateElement("NIF").SetText(f.NIFReceptor)
		destinatario.CreateElement("NombreRazon").SetText(f.NombreReceptor)
		alta.CreateElement("DescripcionOperacion").SetText(f.Descripcion)

		desglose := alta.CreateElement("Desglose")
		for _, l := range f.Desglose {
			detalle := desglose.CreateElement("DetalleDesglose")
			detalle.CreateElement("TipoImpositivo").SetText(l.Tipo.StringFixed(2))
			detalle.CreateElement("BaseImponible").SetText(l.Base.StringFixed(2))
			detalle.CreateElement("CuotaRepercutida").SetText(l.Cuota.StringFixed(2))
		}
		alta.CreateElement("ImporteTotal").SetText(f.ImporteTotal.StringFixed(2))

		encadenamiento := alta.CreateElement("Encadenamiento")
		if f.HuellaAnterior == "" {
			encadenamiento.CreateElement("PrimerRegistro").SetText("S")
		} else {
			encadenamiento.CreateElement("HuellaAnterior").SetText(f.HuellaAnterior)
		}
		alta.CreateElement("Huella").SetText(f.Huella)
		alta.CreateElement("Firma").SetText(f.Firma)
		alta.CreateElement("Estado").SetText(f.Estado)
	}

	for _, a := range anulaciones {
		anul := raiz.CreateElement("RegistroAnulacion")
		anul.CreateElement("IDFacturaAnulada").SetText(a.FacturaID)
		anul.CreateElement("NumSerieFactura").SetText(fmt.Sprintf("%s-%d", a.Serie, a.Numero))
		anul.CreateElement("Motivo").SetText(a.Motivo)
		anul.CreateElement("FechaAnulacion").SetText(a.FechaAnulacion.UTC().Format(time.RFC3339))
		anul.CreateElement("Huella").SetText(a.Huella)
		anul.CreateElement("Firma").SetText(a.Firma)
	}

	doc.Indent(2)
	datos, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: serializar export XML: %v", domain.ErrCodificacion, err)
	}

	if len(ids) > 0 {
		err = uc.tx.Run(ctx, func(repos RepositoriosTx) error {
			return repos.Facturas.MarcarEnvio(ctx, ids, entity.EnvioEnviado)
		})
		if err != nil {
			return nil, err
		}
	}
	return &ResultadoExport{Datos: datos, ContentType: "application/xml", Registros: total}, nil
}
