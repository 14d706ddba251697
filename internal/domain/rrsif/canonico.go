// Package rrsif implementa las primitivas de integridad del registro de
// facturación: codificación canónica determinista, huella SHA-256 encadenada
// y cadena QR de cotejo. Un verificador independiente debe poder reproducir
// las huellas con solo el payload exportado y el algoritmo declarado.
package rrsif

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/academiagest/registro-rrsif/internal/domain"
)

// Canonicalizar serializa un conjunto lógico de campos a una secuencia de
// bytes determinista: mismo input lógico ⇒ bytes idénticos, siempre,
// independiente del orden de inserción de los mapas.
//
// Reglas: objetos con claves ordenadas lexicográficamente, strings
// normalizados a NFC, montos decimal con dos decimales y punto ("1500.00"),
// tiempos en UTC RFC3339. Sin espacios ni saltos de línea.
func Canonicalizar(campos map[string]any) ([]byte, error) {
	var b bytes.Buffer
	if err := escribirValor(&b, campos); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func escribirValor(b *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case string:
		escribirString(b, x)
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case int:
		b.WriteString(strconv.Itoa(x))
	case int64:
		b.WriteString(strconv.FormatInt(x, 10))
	case decimal.Decimal:
		// Mismo formato que los montos de la cadena de huella: sin separador
		// de miles, punto decimal, dos decimales.
		escribirString(b, x.Round(2).StringFixed(2))
	case time.Time:
		escribirString(b, x.UTC().Format(time.RFC3339))
	case map[string]any:
		return escribirObjeto(b, x)
	case map[string]string:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[k] = val
		}
		return escribirObjeto(b, m)
	case map[string]int:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[k] = val
		}
		return escribirObjeto(b, m)
	case []map[string]any:
		b.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := escribirObjeto(b, e); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case []any:
		b.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := escribirValor(b, e); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	default:
		// No debería ocurrir con el esquema cerrado de los registros.
		return fmt.Errorf("%w: %T", domain.ErrCodificacion, v)
	}
	return nil
}

func escribirObjeto(b *bytes.Buffer, m map[string]any) error {
	claves := make([]string, 0, len(m))
	for k := range m {
		claves = append(claves, k)
	}
	sort.Strings(claves)
	b.WriteByte('{')
	for i, k := range claves {
		if i > 0 {
			b.WriteByte(',')
		}
		escribirString(b, k)
		b.WriteByte(':')
		if err := escribirValor(b, m[k]); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}

// escribirString normaliza a NFC y escapa según JSON (json.Marshal de un
// string nunca falla).
func escribirString(b *bytes.Buffer, s string) {
	esc, _ := json.Marshal(norm.NFC.String(s))
	b.Write(esc)
}
