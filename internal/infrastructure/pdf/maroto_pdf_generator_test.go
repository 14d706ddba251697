package pdf

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academiagest/registro-rrsif/internal/domain/entity"
	"github.com/academiagest/registro-rrsif/internal/domain/rrsif"
)

func facturaDePrueba() *entity.RegistroFactura {
	f := &entity.RegistroFactura{
		ID:              "f-001",
		NIFEmisor:       "B12345678",
		NombreEmisor:    "Academia Gest SL",
		NIFReceptor:     "12345678Z",
		NombreReceptor:  "Ana Pérez",
		Serie:           "A",
		Ejercicio:       2026,
		Numero:          7,
		FechaExpedicion: time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC),
		Descripcion:     "Matrícula curso intensivo",
		BaseImponible:   decimal.RequireFromString("100.00"),
		Desglose: []entity.LineaIVA{{
			Tipo:  decimal.RequireFromString("21.00"),
			Base:  decimal.RequireFromString("100.00"),
			Cuota: decimal.RequireFromString("21.00"),
		}},
		ImporteTotal: decimal.RequireFromString("121.00"),
		Huella:       strings.Repeat("ab", 32),
		Estado:       entity.EstadoDefinitiva,
	}
	f.URLQR = rrsif.URLVerificacion(f.NIFEmisor, f.Serie, f.Numero, f.FechaExpedicion, f.ImporteTotal)
	return f
}

// TestContenidoQR el QR tributario transporta la huella del registro además
// de la identificación de la factura y la URL de cotejo.
func TestContenidoQR(t *testing.T) {
	f := facturaDePrueba()

	contenido := contenidoQR(f)
	assert.True(t, strings.HasPrefix(contenido, f.Huella+"|B12345678|A-7|2026-02-10|121.00|"))
	assert.Contains(t, contenido, rrsif.URLCotejoAEAT)
}

func TestGenerarFacturaPDF(t *testing.T) {
	datos, err := NewMarotoPDFGenerator().GenerarFacturaPDF(context.Background(), facturaDePrueba())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(datos, []byte("%PDF")))
}
