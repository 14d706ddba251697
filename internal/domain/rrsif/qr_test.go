package rrsif_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/academiagest/registro-rrsif/internal/domain/rrsif"
)

func TestURLVerificacion(t *testing.T) {
	fecha := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

	got := rrsif.URLVerificacion("B12345678", "A", 7, fecha, decimal.RequireFromString("1815.00"))

	assert.Equal(t,
		"https://www2.agenciatributaria.gob.es/wlpl/TIKE-CONT/ValidarQR?fecha=15-01-2026&importe=1815.00&nif=B12345678&numserie=A-7",
		got, "la URL de cotejo debe llevar nif, serie-numero, fecha e importe")
}

func TestCadenaQR(t *testing.T) {
	fecha := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	huella := "792682b585dacf90d2fab8047cca15b798fb3b90a56c66a1a3f17ca4a5861b9e"

	got := rrsif.CadenaQR(huella, "B12345678", "A", 7, fecha, decimal.NewFromInt(1815))

	assert.Equal(t,
		huella+"|B12345678|A-7|2026-01-15|1815.00|"+
			rrsif.URLVerificacion("B12345678", "A", 7, fecha, decimal.NewFromInt(1815)),
		got)
}
