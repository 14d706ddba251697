package rrsif

import (
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// URLCotejoAEAT base del servicio de cotejo de la AEAT (VeriFactu).
const URLCotejoAEAT = "https://www2.agenciatributaria.gob.es/wlpl/TIKE-CONT/ValidarQR"

// URLVerificacion construye la URL de cotejo que viaja en el QR y en el
// propio registro: NIF del emisor, serie+número, fecha de expedición e
// importe total.
func URLVerificacion(nifEmisor, serie string, numero int64, fecha time.Time, total decimal.Decimal) string {
	q := url.Values{}
	q.Set("nif", nifEmisor)
	q.Set("numserie", fmt.Sprintf("%s-%d", serie, numero))
	q.Set("fecha", fecha.Format("02-01-2006"))
	q.Set("importe", total.Round(2).StringFixed(2))
	return URLCotejoAEAT + "?" + q.Encode()
}

// CadenaQR genera el contenido del código QR de la representación gráfica:
// huella|nif|serie-numero|fecha|importe|url de cotejo.
func CadenaQR(huella, nifEmisor, serie string, numero int64, fecha time.Time, total decimal.Decimal) string {
	return huella + "|" +
		nifEmisor + "|" +
		fmt.Sprintf("%s-%d", serie, numero) + "|" +
		fecha.Format("2006-01-02") + "|" +
		total.Round(2).StringFixed(2) + "|" +
		URLVerificacion(nifEmisor, serie, numero, fecha, total)
}
