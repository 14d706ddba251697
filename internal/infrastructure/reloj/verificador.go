// Package reloj comprueba la deriva del reloj local contra una fuente de
// hora fiable antes de emitir registros con sello temporal. La consulta usa
// la cabecera Date de una petición HEAD: barata, con timeout acotado y
// cacheada para no martillear la fuente.
package reloj

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// EstadoReloj resultado de una comprobación de deriva.
type EstadoReloj struct {
	Sincronizado   bool      `json:"sincronizado"`
	DerivaSegundos int64     `json:"deriva_segundos"`
	ComprobadoEn   time.Time `json:"comprobado_en"`
	HoraLocal      time.Time `json:"hora_local"`
	HoraReferencia time.Time `json:"hora_referencia"`
	Detalle        string    `json:"detalle,omitempty"` // motivo cuando la fuente falla
}

// Config opciones del verificador.
type Config struct {
	URL            string
	UmbralSegundos int           // deriva máxima tolerada (por defecto 60)
	Timeout        time.Duration // por defecto 3s
	CacheTTL       time.Duration // por defecto 5min
}

// VerificadorHTTP implementa la comprobación de deriva con caché corta.
// Si la fuente no responde, falla cerrado: Sincronizado=false.
type VerificadorHTTP struct {
	cfg    Config
	client *http.Client

	mu     sync.Mutex
	ultimo *EstadoReloj

	// ahora inyectable en tests
	ahora func() time.Time
}

// NewVerificadorHTTP construye el verificador aplicando valores por defecto.
func NewVerificadorHTTP(cfg Config) *VerificadorHTTP {
	if cfg.UmbralSegundos <= 0 {
		cfg.UmbralSegundos = 60
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &VerificadorHTTP{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		ahora:  time.Now,
	}
}

// ComprobarDeriva devuelve el estado de sincronización. Reutiliza el último
// resultado dentro de la ventana de caché.
func (v *VerificadorHTTP) ComprobarDeriva(ctx context.Context) EstadoReloj {
	v.mu.Lock()
	if v.ultimo != nil && v.ahora().Sub(v.ultimo.ComprobadoEn) < v.cfg.CacheTTL {
		estado := *v.ultimo
		v.mu.Unlock()
		return estado
	}
	v.mu.Unlock()

	estado := v.consultar(ctx)

	v.mu.Lock()
	v.ultimo = &estado
	v.mu.Unlock()
	return estado
}

func (v *VerificadorHTTP) consultar(ctx context.Context) EstadoReloj {
	local := v.ahora()
	estado := EstadoReloj{
		ComprobadoEn: local,
		HoraLocal:    local,
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, v.cfg.URL, nil)
	if err != nil {
		estado.Detalle = "petición inválida: " + err.Error()
		return estado
	}
	resp, err := v.client.Do(req)
	if err != nil {
		// Fuente inalcanzable: fail-closed, el caller decide la política.
		estado.Detalle = "fuente de hora inalcanzable: " + err.Error()
		return estado
	}
	defer resp.Body.Close()

	fecha := resp.Header.Get("Date")
	if fecha == "" {
		estado.Detalle = "la fuente no devolvió cabecera Date"
		return estado
	}
	referencia, err := http.ParseTime(fecha)
	if err != nil {
		estado.Detalle = "cabecera Date ilegible: " + err.Error()
		return estado
	}

	deriva := local.Sub(referencia)
	if deriva < 0 {
		deriva = -deriva
	}
	estado.HoraReferencia = referencia
	estado.DerivaSegundos = int64(deriva.Round(time.Second) / time.Second)
	estado.Sincronizado = estado.DerivaSegundos <= int64(v.cfg.UmbralSegundos)
	return estado
}
