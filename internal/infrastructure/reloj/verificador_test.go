package reloj

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// servidorConFecha levanta un servidor que responde con la cabecera Date
// indicada y cuenta las peticiones recibidas.
func servidorConFecha(t *testing.T, fecha time.Time, hits *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.Header().Set("Date", fecha.UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestComprobarDeriva_Sincronizado(t *testing.T) {
	local := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	var hits int
	srv := servidorConFecha(t, local.Add(5*time.Second), &hits)

	v := NewVerificadorHTTP(Config{URL: srv.URL, UmbralSegundos: 60})
	v.ahora = func() time.Time { return local }

	estado := v.ComprobarDeriva(context.Background())
	assert.True(t, estado.Sincronizado, "5 s de deriva con umbral de 60 s debe estar sincronizado")
	assert.Equal(t, int64(5), estado.DerivaSegundos)
	assert.Empty(t, estado.Detalle)
}

func TestComprobarDeriva_FueraDeUmbral(t *testing.T) {
	local := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	var hits int
	srv := servidorConFecha(t, local.Add(-120*time.Second), &hits)

	v := NewVerificadorHTTP(Config{URL: srv.URL, UmbralSegundos: 60})
	v.ahora = func() time.Time { return local }

	estado := v.ComprobarDeriva(context.Background())
	assert.False(t, estado.Sincronizado, "120 s de deriva con umbral de 60 s no puede estar sincronizado")
	assert.Equal(t, int64(120), estado.DerivaSegundos, "la deriva se reporta en valor absoluto")
}

// TestComprobarDeriva_FuenteInalcanzable la comprobación falla cerrada: sin
// respuesta de la fuente el estado es no sincronizado, con el motivo.
func TestComprobarDeriva_FuenteInalcanzable(t *testing.T) {
	v := NewVerificadorHTTP(Config{URL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})

	estado := v.ComprobarDeriva(context.Background())
	assert.False(t, estado.Sincronizado)
	assert.NotEmpty(t, estado.Detalle, "el fallo debe llevar motivo, nunca ser silencioso")
}

func TestComprobarDeriva_SinCabeceraDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Los ResponseWriter de net/http añaden Date por defecto; se suprime.
		w.Header()["Date"] = nil
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	v := NewVerificadorHTTP(Config{URL: srv.URL})
	estado := v.ComprobarDeriva(context.Background())
	assert.False(t, estado.Sincronizado)
	assert.Contains(t, estado.Detalle, "Date")
}

// TestComprobarDeriva_Cache dentro de la ventana de caché no se vuelve a
// consultar la fuente; pasada la ventana, sí.
func TestComprobarDeriva_Cache(t *testing.T) {
	local := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	var hits int
	srv := servidorConFecha(t, local, &hits)

	v := NewVerificadorHTTP(Config{URL: srv.URL, CacheTTL: 5 * time.Minute})
	v.ahora = func() time.Time { return local }

	v.ComprobarDeriva(context.Background())
	v.ComprobarDeriva(context.Background())
	assert.Equal(t, 1, hits, "la segunda comprobación debe servirse de la caché")

	// Avanza el reloj más allá del TTL.
	v.ahora = func() time.Time { return local.Add(6 * time.Minute) }
	v.ComprobarDeriva(context.Background())
	assert.Equal(t, 2, hits, "pasada la ventana de caché se consulta de nuevo")
}
