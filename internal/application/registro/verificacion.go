package registro

import (
	"context"
	"fmt"

	"github.com/academiagest/registro-rrsif/internal/application/dto"
	"github.com/academiagest/registro-rrsif/internal/domain/entity"
	"github.com/academiagest/registro-rrsif/internal/domain/rrsif"
	"github.com/academiagest/registro-rrsif/pkg/logger"
)

// Verificacion recorre una cadena completa y recomputa cada huella. Una
// rotura se anuncia en voz alta: log de error más un evento de incidencia,
// nunca un fallo silencioso.
type Verificacion struct {
	tx      TxRunner
	eventos *RegistroEventos
	log     *logger.Logger
}

// NewVerificacion construye el caso de uso.
func NewVerificacion(tx TxRunner, eventos *RegistroEventos, log *logger.Logger) *Verificacion {
	return &Verificacion{tx: tx, eventos: eventos, log: log}
}

// VerificarFacturas verifica la cadena de una (serie, ejercicio).
func (uc *Verificacion) VerificarFacturas(ctx context.Context, serie string, ejercicio int) (*dto.VerificacionResponse, error) {
	var eslabones []rrsif.Eslabon
	err := uc.tx.Run(ctx, func(repos RepositoriosTx) error {
		facturas, err := repos.Facturas.LeerCadena(ctx, serie, ejercicio)
		if err != nil {
			return err
		}
		eslabones = make([]rrsif.Eslabon, 0, len(facturas))
		for _, f := range facturas {
			eslabones = append(eslabones, rrsif.Eslabon{
				Payload:        f.PayloadCanonico(),
				Huella:         f.Huella,
				HuellaAnterior: f.HuellaAnterior,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return uc.evaluar(ctx, fmt.Sprintf("facturas %s/%d", serie, ejercicio), eslabones)
}

// VerificarAnulaciones verifica la cadena global de anulaciones.
func (uc *Verificacion) VerificarAnulaciones(ctx context.Context) (*dto.VerificacionResponse, error) {
	var eslabones []rrsif.Eslabon
	err := uc.tx.Run(ctx, func(repos RepositoriosTx) error {
		anulaciones, err := repos.Anulaciones.ListarTodas(ctx)
		if err != nil {
			return err
		}
		eslabones = make([]rrsif.Eslabon, 0, len(anulaciones))
		for _, a := range anulaciones {
			eslabones = append(eslabones, rrsif.Eslabon{
				Payload:        a.PayloadCanonico(),
				Huella:         a.Huella,
				HuellaAnterior: a.HuellaAnterior,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return uc.evaluar(ctx, "anulaciones", eslabones)
}

// VerificarEventos verifica la cadena global del registro de eventos.
func (uc *Verificacion) VerificarEventos(ctx context.Context) (*dto.VerificacionResponse, error) {
	var eslabones []rrsif.Eslabon
	err := uc.tx.Run(ctx, func(repos RepositoriosTx) error {
		eventos, err := repos.Eventos.ListarTodos(ctx)
		if err != nil {
			return err
		}
		eslabones = make([]rrsif.Eslabon, 0, len(eventos))
		for _, e := range eventos {
			eslabones = append(eslabones, rrsif.Eslabon{
				Payload:        e.PayloadCanonico(),
				Huella:         e.Huella,
				HuellaAnterior: e.HuellaAnterior,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return uc.evaluar(ctx, "eventos", eslabones)
}

// evaluar recomputa la cadena y registra la incidencia si está rota.
func (uc *Verificacion) evaluar(ctx context.Context, cadena string, eslabones []rrsif.Eslabon) (*dto.VerificacionResponse, error) {
	valida, indiceRoto, err := rrsif.VerificarCadena(eslabones)
	if err != nil {
		return nil, err
	}
	if !valida {
		uc.log.Error().Str("cadena", cadena).Int("indice_roto", indiceRoto).Msg("cadena de huellas rota")
		detalle := fmt.Sprintf("cadena %s rota en el índice %d", cadena, indiceRoto)
		if _, errEv := uc.eventos.Registrar(ctx, entity.EventoIncidencia, detalle, entity.ActorSistema, map[string]string{
			"cadena": cadena,
		}); errEv != nil {
			uc.log.Error().Err(errEv).Msg("registrar incidencia de cadena rota")
		}
	}
	return &dto.VerificacionResponse{
		Cadena:     cadena,
		Valida:     valida,
		IndiceRoto: indiceRoto,
		Registros:  len(eslabones),
	}, nil
}
