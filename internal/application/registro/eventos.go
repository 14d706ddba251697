package registro

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/academiagest/registro-rrsif/internal/domain"
	"github.com/academiagest/registro-rrsif/internal/domain/entity"
	"github.com/academiagest/registro-rrsif/internal/domain/repository"
	"github.com/academiagest/registro-rrsif/internal/domain/rrsif"
	"github.com/academiagest/registro-rrsif/pkg/logger"
)

// RegistroEventos registra eventos discretos del sistema en su propia cadena
// de huellas y emite el resumen periódico. El marcador del último resumen es
// durable: un reinicio del proceso no duplica ni pierde ventanas más allá de
// un intervalo corto de más.
type RegistroEventos struct {
	tx        TxRunner
	cfg       Config
	log       *logger.Logger
	intervalo time.Duration

	// ahora inyectable en tests
	ahora func() time.Time
}

// NewRegistroEventos construye el logger de eventos. Intervalo por defecto: 6h.
func NewRegistroEventos(tx TxRunner, cfg Config, log *logger.Logger, intervalo time.Duration) *RegistroEventos {
	if intervalo <= 0 {
		intervalo = 6 * time.Hour
	}
	return &RegistroEventos{
		tx:        tx,
		cfg:       cfg,
		log:       log,
		intervalo: intervalo,
		ahora:     time.Now,
	}
}

// Registrar añade un evento a la cadena de eventos. El tipo debe pertenecer
// al conjunto cerrado; actor vacío se atribuye al sistema.
func (s *RegistroEventos) Registrar(ctx context.Context, tipo, detalle, actor string, metadata map[string]string) (*entity.EventoSistema, error) {
	if !entity.TipoEventoValido(tipo) {
		return nil, fmt.Errorf("%w: tipo de evento desconocido %q", domain.ErrValidacion, tipo)
	}
	if actor == "" {
		actor = entity.ActorSistema
	}
	evento := &entity.EventoSistema{
		ID:        uuid.New().String(),
		Tipo:      tipo,
		Timestamp: s.ahora().UTC(),
		Actor:     actor,
		Detalle:   detalle,
		Metadata:  metadata,
	}
	if err := s.encadenar(ctx, evento); err != nil {
		return nil, err
	}
	s.log.Info().Str("tipo", tipo).Str("actor", actor).Str("evento_id", evento.ID).Msg("evento registrado")
	return evento, nil
}

// EmitirResumen agrega los eventos desde el último marcador y registra un
// resumen_periodico con recuentos por tipo y la ventana cubierta. Todo ocurre
// en una sola transacción: lectura de marcador, append y avance del marcador.
func (s *RegistroEventos) EmitirResumen(ctx context.Context) (*entity.EventoSistema, error) {
	var evento *entity.EventoSistema
	err := s.tx.Run(ctx, func(repos RepositoriosTx) error {
		hasta := s.ahora().UTC()
		marcador, err := repos.Eventos.ObtenerMarcador(ctx, repository.MarcadorUltimoResumen)
		if err != nil {
			return err
		}
		desde := hasta.Add(-s.intervalo)
		if marcador != nil {
			desde = marcador.UTC()
		}

		lote, err := repos.Eventos.LeerEntre(ctx, desde, hasta)
		if err != nil {
			return err
		}
		recuentos := make(map[string]int)
		for _, e := range lote {
			recuentos[e.Tipo]++
		}

		cabeza, err := repos.Cadenas.CabezaConBloqueo(ctx, entity.CadenaEventos)
		if err != nil {
			return err
		}
		evento = &entity.EventoSistema{
			ID:           uuid.New().String(),
			Tipo:         entity.EventoResumenPeriodico,
			Timestamp:    hasta,
			Actor:        entity.ActorSistema,
			Detalle:      fmt.Sprintf("resumen de %d eventos", len(lote)),
			Recuentos:    recuentos,
			VentanaDesde: &desde,
			VentanaHasta: &hasta,
		}
		huella, err := rrsif.HuellaDeCampos(evento.PayloadCanonico(), cabeza)
		if err != nil {
			return err
		}
		evento.Huella = huella
		evento.HuellaAnterior = cabeza
		if err := repos.Eventos.Append(ctx, evento); err != nil {
			return err
		}
		if err := repos.Cadenas.ActualizarCabeza(ctx, entity.CadenaEventos, huella); err != nil {
			return err
		}
		return repos.Eventos.GuardarMarcador(ctx, repository.MarcadorUltimoResumen, hasta)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("eventos", len(evento.Recuentos)).Time("hasta", *evento.VentanaHasta).Msg("resumen periódico emitido")
	return evento, nil
}

// Listar devuelve los eventos en orden de append; si desde no es nil, solo
// los de timestamp >= desde.
func (s *RegistroEventos) Listar(ctx context.Context, desde *time.Time) ([]*entity.EventoSistema, error) {
	var eventos []*entity.EventoSistema
	err := s.tx.Run(ctx, func(repos RepositoriosTx) error {
		var err error
		if desde != nil {
			eventos, err = repos.Eventos.LeerDesde(ctx, desde.UTC())
		} else {
			eventos, err = repos.Eventos.ListarTodos(ctx)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return eventos, nil
}

// IniciarResumenPeriodico arranca el scheduler en una goroutine propia.
// No toma el bloqueo de las cadenas de facturas: solo lee eventos ya
// confirmados y añade a la cadena de eventos.
func (s *RegistroEventos) IniciarResumenPeriodico(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.intervalo)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.EmitirResumen(ctx); err != nil {
					s.log.Error().Err(err).Msg("emitir resumen periódico")
				}
			}
		}
	}()
}

// encadenar calcula huella contra la cabeza de la cadena de eventos y
// persiste evento + cabeza en una transacción.
func (s *RegistroEventos) encadenar(ctx context.Context, evento *entity.EventoSistema) error {
	return s.tx.Run(ctx, func(repos RepositoriosTx) error {
		cabeza, err := repos.Cadenas.CabezaConBloqueo(ctx, entity.CadenaEventos)
		if err != nil {
			return err
		}
		huella, err := rrsif.HuellaDeCampos(evento.PayloadCanonico(), cabeza)
		if err != nil {
			return err
		}
		evento.Huella = huella
		evento.HuellaAnterior = cabeza
		if err := repos.Eventos.Append(ctx, evento); err != nil {
			return err
		}
		return repos.Cadenas.ActualizarCabeza(ctx, entity.CadenaEventos, huella)
	})
}
