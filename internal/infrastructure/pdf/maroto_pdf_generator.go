// Package pdf implementa la representación gráfica del registro de
// facturación RRSIF (RD 1007/2023), con el código QR tributario "VERI*FACTU".
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Emisor + NIF  │  Serie-Número + Fecha expedición    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  EMISOR: Dirección                                           │
//	│  RECEPTOR: Nombre + NIF + dirección                          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  Descripción de la operación                                 │
//	│  TABLA: Tipo IVA | Base imponible | Cuota                    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Base / Cuotas / IMPORTE TOTAL                      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: Huella + QR cotejo AEAT + Leyenda legal             │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/academiagest/registro-rrsif/internal/domain/entity"
	"github.com/academiagest/registro-rrsif/internal/domain/rrsif"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator genera la representación gráfica de un RegistroFactura
// usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerarFacturaPDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerarFacturaPDF(_ context.Context, factura *entity.RegistroFactura) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Factura "+numeroCompleto(factura), true).
		WithAuthor(factura.NombreEmisor, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(factura))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(emisorRow(factura))
	m.AddRows(receptorRow(factura))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(descripcionRow(factura))
	m.AddRows(tableHeaderRow())
	for _, r := range tableDesgloseRows(factura.Desglose) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(factura))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range verifactuFooterRows(factura) {
		m.AddRows(r)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: emisor + NIF (izq) y Serie-Número + Fecha (der).
func headerRow(factura *entity.RegistroFactura) core.Row {
	fecha := factura.FechaExpedicion.Format("02/01/2006")
	titulo := "FACTURA"
	if factura.Estado == entity.EstadoProvisional {
		titulo = "FACTURA PROVISIONAL"
	}

	return row.New(18).Add(
		col.New(7).Add(
			text.New(factura.NombreEmisor, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("NIF: "+factura.NIFEmisor, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(titulo, props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(numeroCompleto(factura), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// emisorRow: datos del emisor.
func emisorRow(factura *entity.RegistroFactura) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("DATOS DEL EMISOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New("Dirección: "+nonEmpty(factura.DireccionEmisor, "—"),
				props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

// receptorRow: datos del destinatario.
func receptorRow(factura *entity.RegistroFactura) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("DESTINATARIO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(factura.NombreReceptor, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("NIF: %s   |   Dirección: %s",
				factura.NIFReceptor,
				nonEmpty(factura.DireccionReceptor, "—"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// descripcionRow: descripción de la operación.
func descripcionRow(factura *entity.RegistroFactura) core.Row {
	return row.New(10).Add(
		col.New(12).Add(
			text.New("DESCRIPCIÓN DE LA OPERACIÓN", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(factura.Descripcion, props.Text{Size: 8, Top: 6}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de desglose de IVA.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Tipo IVA", 4, align.Center),
		h("Base imponible", 4, align.Right),
		h("Cuota repercutida", 4, align.Right),
	)
}

// tableDesgloseRows: una fila por línea de desglose.
func tableDesgloseRows(desglose []entity.LineaIVA) []core.Row {
	result := make([]core.Row, 0, len(desglose))
	for _, l := range desglose {
		result = append(result, row.New(7).Add(
			col.New(4).Add(text.New(
				l.Tipo.StringFixed(2)+" %",
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(4).Add(text.New(
				l.Base.StringFixed(2)+" €",
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(4).Add(text.New(
				l.Cuota.StringFixed(2)+" €",
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRow: bloque de totales alineado a la derecha.
func totalsRow(factura *entity.RegistroFactura) core.Row {
	cuotas := decimal.Zero
	for _, l := range factura.Desglose {
		cuotas = cuotas.Add(l.Cuota)
	}

	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1,
		})
	}

	return row.New(26).Add(
		col.New(3),
		col.New(3).Add(
			label("Base imponible:"),
			label("Cuota IVA:"),
			grandLabel("IMPORTE TOTAL:"),
		),
		col.New(3).Add(
			value(factura.BaseImponible.StringFixed(2)+" €"),
			value(cuotas.StringFixed(2)+" €"),
			grandValue(factura.ImporteTotal.StringFixed(2)+" €"),
		),
		col.New(3),
	)
}

// verifactuFooterRows: huella partida + código QR de cotejo + leyenda legal.
func verifactuFooterRows(factura *entity.RegistroFactura) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("INFORMACIÓN DEL REGISTRO DE FACTURACIÓN", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}

	if factura.Huella != "" {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New("Huella del registro:", props.Text{
				Style: fontstyle.Bold, Size: 7, Top: 1,
			}),
		)))
		for _, chunk := range splitEvery(factura.Huella, 80) {
			rows = append(rows, row.New(4).Add(col.New(12).Add(
				text.New(chunk, props.Text{Size: 6.5, Color: colorGray, Top: 0.5, Left: 2}),
			)))
		}
	}

	rows = append(rows, row.New(3))

	if factura.Huella != "" {
		rows = append(rows, row.New(50).Add(
			col.New(4).Add(code.NewQr(contenidoQR(factura), props.Rect{
				Percent: 95,
				Center:  true,
			})),
			col.New(8).Add(
				text.New("QR tributario: escanéalo para cotejar\nesta factura en la Sede de la AEAT.", props.Text{
					Size: 8, Top: 4, Left: 3, Color: colorGray,
				}),
				text.New("Factura verificable en la sede\nelectrónica de la AEAT\nVERI*FACTU", props.Text{
					Style: fontstyle.Bold, Size: 10, Top: 22,
					Left: 3, Color: colorPrimary,
				}),
			),
		))
	} else {
		rows = append(rows, row.New(10).Add(col.New(12).Add(
			text.New("Factura verificable en la sede electrónica de la AEAT", props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Center,
				Color: colorPrimary, Top: 2,
			}),
		)))
	}

	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Registro de facturación generado conforme al Real Decreto 1007/2023 "+
				"(Reglamento RRSIF). Conserve este documento como soporte fiscal.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))

	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func numeroCompleto(f *entity.RegistroFactura) string {
	return fmt.Sprintf("%s-%d", f.Serie, f.Numero)
}

// contenidoQR contenido del QR tributario: huella del registro,
// identificación de la factura y URL de cotejo.
func contenidoQR(f *entity.RegistroFactura) string {
	return rrsif.CadenaQR(f.Huella, f.NIFEmisor, f.Serie, f.Numero, f.FechaExpedicion, f.ImporteTotal)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// splitEvery divide s en trozos de max n caracteres.
func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
