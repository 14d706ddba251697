package registro

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/academiagest/registro-rrsif/internal/application/dto"
	"github.com/academiagest/registro-rrsif/internal/domain"
	"github.com/academiagest/registro-rrsif/internal/domain/entity"
	"github.com/academiagest/registro-rrsif/internal/domain/rrsif"
	"github.com/academiagest/registro-rrsif/pkg/logger"
)

// CicloVida gobierna las transiciones de estado del registro de facturación:
// provisional → definitiva, provisional → borrada y definitiva → anulada.
// Cualquier otra transición es ErrTransicionInvalida.
type CicloVida struct {
	tx       TxRunner
	firmador Firmador
	eventos  *RegistroEventos
	cfg      Config
	log      *logger.Logger

	// ahora inyectable en tests
	ahora func() time.Time
}

// NewCicloVida construye el caso de uso.
func NewCicloVida(tx TxRunner, firmador Firmador, eventos *RegistroEventos, cfg Config, log *logger.Logger) *CicloVida {
	return &CicloVida{
		tx:       tx,
		firmador: firmador,
		eventos:  eventos,
		cfg:      cfg,
		log:      log,
		ahora:    time.Now,
	}
}

// Finalizar consolida una factura provisional como definitiva. Huella, firma
// y payload no cambian: solo la proyección de estado.
func (uc *CicloVida) Finalizar(ctx context.Context, actor, id string) (*dto.FacturaResponse, error) {
	now := uc.ahora().UTC()
	var factura *entity.RegistroFactura
	err := uc.tx.Run(ctx, func(repos RepositoriosTx) error {
		f, err := repos.Facturas.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if f == nil {
			return domain.ErrNotFound
		}
		ok, err := repos.Facturas.Finalizar(ctx, id, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: la factura %s está en estado %s, no provisional", domain.ErrTransicionInvalida, id, f.Estado)
		}
		f.Estado = entity.EstadoDefinitiva
		f.FinalizadaEn = &now
		factura = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	detalle := fmt.Sprintf("factura %s-%d/%d finalizada", factura.Serie, factura.Numero, factura.Ejercicio)
	if _, errEv := uc.eventos.Registrar(ctx, entity.EventoFinOperacion, detalle, actor, map[string]string{
		"factura_id": factura.ID,
	}); errEv != nil {
		uc.log.Error().Err(errEv).Str("factura_id", factura.ID).Msg("registrar evento de finalización")
	}
	return dto.NewFacturaResponse(factura), nil
}

// BorrarProvisional elimina una factura aún provisional. Solo se admite si el
// registro es la cabeza de su cadena: la cabeza se rebobina a su huella
// anterior y el contador no retrocede, así el número queda quemado y la
// cadena restante sigue verificando.
func (uc *CicloVida) BorrarProvisional(ctx context.Context, actor, id string) error {
	var factura *entity.RegistroFactura
	err := uc.tx.Run(ctx, func(repos RepositoriosTx) error {
		f, err := repos.Facturas.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if f == nil {
			return domain.ErrNotFound
		}
		sec, err := repos.Secuencias.CabezaConBloqueo(ctx, f.Serie, f.Ejercicio)
		if err != nil {
			return err
		}
		if sec.UltimaHuella != f.Huella {
			return fmt.Errorf("%w: la factura %s ya no es la cabeza de %s/%d, no puede borrarse", domain.ErrTransicionInvalida, id, f.Serie, f.Ejercicio)
		}
		ok, err := repos.Facturas.BorrarProvisional(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: la factura %s está en estado %s, no provisional", domain.ErrTransicionInvalida, id, f.Estado)
		}
		factura = f
		return repos.Secuencias.ActualizarCabeza(ctx, f.Serie, f.Ejercicio, sec.UltimoNumero, f.HuellaAnterior)
	})
	if err != nil {
		return err
	}

	detalle := fmt.Sprintf("borrado provisional de %s-%d/%d; el número queda sin reutilizar", factura.Serie, factura.Numero, factura.Ejercicio)
	if _, errEv := uc.eventos.Registrar(ctx, entity.EventoIncidencia, detalle, actor, map[string]string{
		"factura_id": factura.ID,
	}); errEv != nil {
		uc.log.Error().Err(errEv).Str("factura_id", factura.ID).Msg("registrar incidencia de borrado provisional")
	}
	return nil
}

// Anular crea un registro de anulación encadenado y firmado para una factura
// definitiva. El registro de facturación original no se toca byte a byte:
// solo cambia su proyección de estado.
func (uc *CicloVida) Anular(ctx context.Context, actor, id string, in dto.AnulacionRequest) (*dto.AnulacionResponse, error) {
	if in.Motivo == "" {
		return nil, fmt.Errorf("%w: motivo de anulación requerido", domain.ErrValidacion)
	}

	now := uc.ahora().UTC()
	var anulacion *entity.RegistroAnulacion
	err := uc.tx.Run(ctx, func(repos RepositoriosTx) error {
		f, err := repos.Facturas.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if f == nil {
			return domain.ErrNotFound
		}
		switch f.Estado {
		case entity.EstadoDefinitiva:
		case entity.EstadoAnulada:
			return fmt.Errorf("%w: la factura %s ya está anulada", domain.ErrTransicionInvalida, id)
		default:
			return fmt.Errorf("%w: solo se anulan facturas definitivas, la %s está en %s", domain.ErrTransicionInvalida, id, f.Estado)
		}
		if previa, err := repos.Anulaciones.GetByFacturaID(ctx, id); err != nil {
			return err
		} else if previa != nil {
			return fmt.Errorf("%w: la factura %s ya está anulada", domain.ErrTransicionInvalida, id)
		}

		cabeza, err := repos.Cadenas.CabezaConBloqueo(ctx, entity.CadenaAnulaciones)
		if err != nil {
			return err
		}
		anulacion = &entity.RegistroAnulacion{
			ID:             uuid.New().String(),
			FacturaID:      f.ID,
			Serie:          f.Serie,
			Ejercicio:      f.Ejercicio,
			Numero:         f.Numero,
			Motivo:         in.Motivo,
			FechaAnulacion: now,
			IDSistema:      uc.cfg.IDSistema,
			HuellaAnterior: cabeza,
			FechaAlta:      now,
		}
		huella, err := rrsif.HuellaDeCampos(anulacion.PayloadCanonico(), cabeza)
		if err != nil {
			return err
		}
		anulacion.Huella = huella

		firma, err := uc.firmador.Firmar(huella, now, uc.cfg.IDSistema)
		if err != nil {
			return err
		}
		anulacion.Firma = firma

		if err := repos.Anulaciones.Append(ctx, anulacion); err != nil {
			return err
		}
		if err := repos.Cadenas.ActualizarCabeza(ctx, entity.CadenaAnulaciones, huella); err != nil {
			return err
		}
		ok, err := repos.Facturas.MarcarAnulada(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: la factura %s cambió de estado durante la anulación", domain.ErrTransicionInvalida, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	detalle := fmt.Sprintf("factura %s-%d/%d anulada: %s", anulacion.Serie, anulacion.Numero, anulacion.Ejercicio, anulacion.Motivo)
	if _, errEv := uc.eventos.Registrar(ctx, entity.EventoAnulacionFactura, detalle, actor, map[string]string{
		"factura_id":   anulacion.FacturaID,
		"anulacion_id": anulacion.ID,
	}); errEv != nil {
		uc.log.Error().Err(errEv).Str("anulacion_id", anulacion.ID).Msg("registrar evento de anulación")
	}
	return dto.NewAnulacionResponse(anulacion), nil
}
