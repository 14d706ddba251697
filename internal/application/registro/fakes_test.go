package registro_test

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/academiagest/registro-rrsif/internal/application/registro"
	"github.com/academiagest/registro-rrsif/internal/domain"
	"github.com/academiagest/registro-rrsif/internal/domain/entity"
	"github.com/academiagest/registro-rrsif/internal/infrastructure/reloj"
	"github.com/academiagest/registro-rrsif/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Almacén en memoria para los casos de uso. El mutex del TxRunner serializa
// las transacciones completas, igual que el FOR UPDATE de la fila de
// secuencia serializa a los emisores concurrentes en PostgreSQL.
// ──────────────────────────────────────────────────────────────────────────────

type almacenMem struct {
	facturas    []*entity.RegistroFactura
	anulaciones []*entity.RegistroAnulacion
	eventos     []*entity.EventoSistema
	secuencias  map[string]*entity.Secuencia
	cadenas     map[string]string
	marcadores  map[string]time.Time
}

func nuevoAlmacenMem() *almacenMem {
	return &almacenMem{
		secuencias: make(map[string]*entity.Secuencia),
		cadenas:    make(map[string]string),
		marcadores: make(map[string]time.Time),
	}
}

func claveSec(serie string, ejercicio int) string {
	return fmt.Sprintf("%s/%d", serie, ejercicio)
}

type txRunnerMem struct {
	mu sync.Mutex
	st *almacenMem
}

func nuevoTxRunnerMem(st *almacenMem) *txRunnerMem {
	return &txRunnerMem{st: st}
}

func (tx *txRunnerMem) Run(_ context.Context, fn func(repos registro.RepositoriosTx) error) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return fn(registro.RepositoriosTx{
		Facturas:    &facturaRepoMem{st: tx.st},
		Anulaciones: &anulacionRepoMem{st: tx.st},
		Eventos:     &eventoRepoMem{st: tx.st},
		Secuencias:  &secuenciaRepoMem{st: tx.st},
		Cadenas:     &cadenaRepoMem{st: tx.st},
	})
}

// ── FacturaRepository ─────────────────────────────────────────────────────────

type facturaRepoMem struct{ st *almacenMem }

func (r *facturaRepoMem) Append(_ context.Context, f *entity.RegistroFactura) error {
	for _, e := range r.st.facturas {
		if e.Serie == f.Serie && e.Ejercicio == f.Ejercicio && e.Numero == f.Numero {
			return fmt.Errorf("%w: numero duplicado", domain.ErrAsignacion)
		}
	}
	copia := *f
	r.st.facturas = append(r.st.facturas, &copia)
	return nil
}

func (r *facturaRepoMem) GetByID(_ context.Context, id string) (*entity.RegistroFactura, error) {
	for _, f := range r.st.facturas {
		if f.ID == id {
			copia := *f
			return &copia, nil
		}
	}
	return nil, nil
}

func (r *facturaRepoMem) LeerCadena(_ context.Context, serie string, ejercicio int) ([]*entity.RegistroFactura, error) {
	var out []*entity.RegistroFactura
	for _, f := range r.st.facturas {
		if f.Serie == serie && f.Ejercicio == ejercicio {
			out = append(out, f)
		}
	}
	ordenarPorNumero(out)
	return out, nil
}

func ordenarPorNumero(fs []*entity.RegistroFactura) {
	for i := 1; i < len(fs); i++ {
		for j := i; j > 0 && fs[j-1].Numero > fs[j].Numero; j-- {
			fs[j-1], fs[j] = fs[j], fs[j-1]
		}
	}
}

func (r *facturaRepoMem) ListarTodas(_ context.Context) ([]*entity.RegistroFactura, error) {
	return append([]*entity.RegistroFactura(nil), r.st.facturas...), nil
}

func (r *facturaRepoMem) MaxNumero(_ context.Context, serie string, ejercicio int) (int64, error) {
	var max int64
	for _, f := range r.st.facturas {
		if f.Serie == serie && f.Ejercicio == ejercicio && f.Numero > max {
			max = f.Numero
		}
	}
	return max, nil
}

func (r *facturaRepoMem) Finalizar(_ context.Context, id string, fecha time.Time) (bool, error) {
	for _, f := range r.st.facturas {
		if f.ID == id {
			if f.Estado != entity.EstadoProvisional {
				return false, nil
			}
			f.Estado = entity.EstadoDefinitiva
			f.FinalizadaEn = &fecha
			return true, nil
		}
	}
	return false, nil
}

func (r *facturaRepoMem) MarcarAnulada(_ context.Context, id string) (bool, error) {
	for _, f := range r.st.facturas {
		if f.ID == id {
			if f.Estado != entity.EstadoDefinitiva {
				return false, nil
			}
			f.Estado = entity.EstadoAnulada
			return true, nil
		}
	}
	return false, nil
}

func (r *facturaRepoMem) BorrarProvisional(_ context.Context, id string) (bool, error) {
	for i, f := range r.st.facturas {
		if f.ID == id {
			if f.Estado != entity.EstadoProvisional {
				return false, nil
			}
			r.st.facturas = append(r.st.facturas[:i], r.st.facturas[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *facturaRepoMem) MarcarEnvio(_ context.Context, ids []string, estado string) error {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for _, f := range r.st.facturas {
		if _, ok := set[f.ID]; ok {
			f.EstadoEnvio = estado
		}
	}
	return nil
}

// ── AnulacionRepository ───────────────────────────────────────────────────────

type anulacionRepoMem struct{ st *almacenMem }

func (r *anulacionRepoMem) Append(_ context.Context, a *entity.RegistroAnulacion) error {
	for _, e := range r.st.anulaciones {
		if e.FacturaID == a.FacturaID {
			return fmt.Errorf("%w: la factura ya está anulada", domain.ErrTransicionInvalida)
		}
	}
	copia := *a
	r.st.anulaciones = append(r.st.anulaciones, &copia)
	return nil
}

func (r *anulacionRepoMem) GetByFacturaID(_ context.Context, facturaID string) (*entity.RegistroAnulacion, error) {
	for _, a := range r.st.anulaciones {
		if a.FacturaID == facturaID {
			copia := *a
			return &copia, nil
		}
	}
	return nil, nil
}

func (r *anulacionRepoMem) ListarTodas(_ context.Context) ([]*entity.RegistroAnulacion, error) {
	return append([]*entity.RegistroAnulacion(nil), r.st.anulaciones...), nil
}

// ── EventoRepository ──────────────────────────────────────────────────────────

type eventoRepoMem struct{ st *almacenMem }

func (r *eventoRepoMem) Append(_ context.Context, e *entity.EventoSistema) error {
	copia := *e
	r.st.eventos = append(r.st.eventos, &copia)
	return nil
}

func (r *eventoRepoMem) LeerDesde(_ context.Context, desde time.Time) ([]*entity.EventoSistema, error) {
	var out []*entity.EventoSistema
	for _, e := range r.st.eventos {
		if !e.Timestamp.Before(desde) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *eventoRepoMem) LeerEntre(_ context.Context, desde, hasta time.Time) ([]*entity.EventoSistema, error) {
	var out []*entity.EventoSistema
	for _, e := range r.st.eventos {
		if !e.Timestamp.Before(desde) && e.Timestamp.Before(hasta) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *eventoRepoMem) ListarTodos(_ context.Context) ([]*entity.EventoSistema, error) {
	return append([]*entity.EventoSistema(nil), r.st.eventos...), nil
}

func (r *eventoRepoMem) ObtenerMarcador(_ context.Context, nombre string) (*time.Time, error) {
	if t, ok := r.st.marcadores[nombre]; ok {
		copia := t
		return &copia, nil
	}
	return nil, nil
}

func (r *eventoRepoMem) GuardarMarcador(_ context.Context, nombre string, t time.Time) error {
	r.st.marcadores[nombre] = t
	return nil
}

// ── SecuenciaRepository ───────────────────────────────────────────────────────

type secuenciaRepoMem struct{ st *almacenMem }

func (r *secuenciaRepoMem) CabezaConBloqueo(_ context.Context, serie string, ejercicio int) (*entity.Secuencia, error) {
	k := claveSec(serie, ejercicio)
	sec, ok := r.st.secuencias[k]
	if !ok {
		sec = &entity.Secuencia{Serie: serie, Ejercicio: ejercicio}
		r.st.secuencias[k] = sec
	}
	copia := *sec
	return &copia, nil
}

func (r *secuenciaRepoMem) SiguienteConBloqueo(ctx context.Context, serie string, ejercicio int) (int64, string, error) {
	sec, err := r.CabezaConBloqueo(ctx, serie, ejercicio)
	if err != nil {
		return 0, "", err
	}
	if sec.UltimoNumero == math.MaxInt64 {
		return 0, "", fmt.Errorf("%w: secuencia agotada", domain.ErrAsignacion)
	}
	return sec.UltimoNumero + 1, sec.UltimaHuella, nil
}

func (r *secuenciaRepoMem) ActualizarCabeza(_ context.Context, serie string, ejercicio int, ultimoNumero int64, huella string) error {
	k := claveSec(serie, ejercicio)
	sec, ok := r.st.secuencias[k]
	if !ok {
		return fmt.Errorf("%w: secuencia %s", domain.ErrAlmacen, k)
	}
	sec.UltimoNumero = ultimoNumero
	sec.UltimaHuella = huella
	return nil
}

func (r *secuenciaRepoMem) Resincronizar(ctx context.Context) error {
	for _, sec := range r.st.secuencias {
		max, _ := (&facturaRepoMem{st: r.st}).MaxNumero(ctx, sec.Serie, sec.Ejercicio)
		if max > sec.UltimoNumero {
			sec.UltimoNumero = max
		}
	}
	return nil
}

// ── CadenaRepository ──────────────────────────────────────────────────────────

type cadenaRepoMem struct{ st *almacenMem }

func (r *cadenaRepoMem) CabezaConBloqueo(_ context.Context, nombre string) (string, error) {
	return r.st.cadenas[nombre], nil
}

func (r *cadenaRepoMem) ActualizarCabeza(_ context.Context, nombre, huella string) error {
	r.st.cadenas[nombre] = huella
	return nil
}

// ── Firmador y reloj falsos ───────────────────────────────────────────────────

type firmadorMem struct {
	fallar bool
}

func (f *firmadorMem) Firmar(huella string, ts time.Time, idSistema string) (string, error) {
	if f.fallar {
		return "", domain.ErrFirma
	}
	return "firma(" + huella + "|" + ts.UTC().Format(time.RFC3339) + "|" + idSistema + ")", nil
}

func (f *firmadorMem) Verificar(firma, huella string, ts time.Time, idSistema string) bool {
	esperada, err := f.Firmar(huella, ts, idSistema)
	return err == nil && esperada == firma
}

type relojMem struct {
	mu     sync.Mutex
	estado reloj.EstadoReloj
}

func (r *relojMem) ComprobarDeriva(context.Context) reloj.EstadoReloj {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.estado
}

func relojSincronizado() *relojMem {
	return &relojMem{estado: reloj.EstadoReloj{Sincronizado: true}}
}

func relojConDeriva(segundos int64) *relojMem {
	return &relojMem{estado: reloj.EstadoReloj{Sincronizado: false, DerivaSegundos: segundos}}
}

// ── Arnés común ───────────────────────────────────────────────────────────────

type arnes struct {
	st       *almacenMem
	tx       *txRunnerMem
	firmador *firmadorMem
	reloj    *relojMem
	cfg      registro.Config
	log      *logger.Logger

	eventos *registro.RegistroEventos
	alta    *registro.AltaFactura
	ciclo   *registro.CicloVida
}

func nuevoArnes() *arnes {
	st := nuevoAlmacenMem()
	tx := nuevoTxRunnerMem(st)
	firmador := &firmadorMem{}
	rel := relojSincronizado()
	cfg := registro.Config{IDSistema: "SIF-TEST", VersionSoftware: "1.0.0"}
	log := logger.New(logger.Config{Env: "development", Level: "error"})

	eventos := registro.NewRegistroEventos(tx, cfg, log, 6*time.Hour)
	return &arnes{
		st:       st,
		tx:       tx,
		firmador: firmador,
		reloj:    rel,
		cfg:      cfg,
		log:      log,
		eventos:  eventos,
		alta:     registro.NewAltaFactura(tx, firmador, rel, eventos, cfg, log),
		ciclo:    registro.NewCicloVida(tx, firmador, eventos, cfg, log),
	}
}

// eventosDeTipo devuelve los eventos persistidos de un tipo.
func (a *arnes) eventosDeTipo(tipo string) []*entity.EventoSistema {
	var out []*entity.EventoSistema
	for _, e := range a.st.eventos {
		if e.Tipo == tipo {
			out = append(out, e)
		}
	}
	return out
}
