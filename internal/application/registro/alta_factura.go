package registro

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/academiagest/registro-rrsif/internal/application/dto"
	"github.com/academiagest/registro-rrsif/internal/domain"
	"github.com/academiagest/registro-rrsif/internal/domain/entity"
	"github.com/academiagest/registro-rrsif/internal/domain/rrsif"
	"github.com/academiagest/registro-rrsif/pkg/logger"
)

// AltaFactura emite un registro de facturación: comprobación de deriva,
// asignación de número, huella encadenada, firma y append durable, todo en
// una transacción. El evento generacion_factura se registra tras el commit.
type AltaFactura struct {
	tx       TxRunner
	firmador Firmador
	reloj    VerificadorReloj
	eventos  *RegistroEventos
	cfg      Config
	log      *logger.Logger

	// ahora inyectable en tests
	ahora func() time.Time
}

// NewAltaFactura construye el caso de uso.
func NewAltaFactura(tx TxRunner, firmador Firmador, verificadorReloj VerificadorReloj, eventos *RegistroEventos, cfg Config, log *logger.Logger) *AltaFactura {
	return &AltaFactura{
		tx:       tx,
		firmador: firmador,
		reloj:    verificadorReloj,
		eventos:  eventos,
		cfg:      cfg,
		log:      log,
		ahora:    time.Now,
	}
}

// Crear emite la factura en estado provisional. actor es el operador
// autenticado que pide la emisión.
func (uc *AltaFactura) Crear(ctx context.Context, actor string, in dto.AltaFacturaRequest) (*dto.FacturaResponse, error) {
	// Validación previa: se rechaza antes de tocar secuencia o cadena,
	// sin efectos secundarios.
	fechaOperacion, err := validarAlta(in)
	if err != nil {
		return nil, err
	}

	// Deriva de reloj: se registra como dato (incidencia); solo bloquea si
	// la política lo exige.
	estadoReloj := uc.reloj.ComprobarDeriva(ctx)
	if !estadoReloj.Sincronizado {
		detalle := fmt.Sprintf("deriva de reloj de %d s al emitir factura", estadoReloj.DerivaSegundos)
		if estadoReloj.Detalle != "" {
			detalle = "comprobación de reloj fallida: " + estadoReloj.Detalle
		}
		if _, errEv := uc.eventos.Registrar(ctx, entity.EventoIncidencia, detalle, actor, map[string]string{
			"deriva_segundos": strconv.FormatInt(estadoReloj.DerivaSegundos, 10),
		}); errEv != nil {
			uc.log.Error().Err(errEv).Msg("registrar incidencia de deriva")
		}
		if uc.cfg.BloquearSiDeriva {
			return nil, fmt.Errorf("%w: %d s", domain.ErrDerivaReloj, estadoReloj.DerivaSegundos)
		}
	}

	now := uc.ahora()
	expedicion := now.UTC()
	ejercicio := expedicion.Year()

	var factura *entity.RegistroFactura
	err = uc.tx.Run(ctx, func(repos RepositoriosTx) error {
		numero, huellaAnterior, err := repos.Secuencias.SiguienteConBloqueo(ctx, in.Serie, ejercicio)
		if err != nil {
			return err
		}

		desglose := make([]entity.LineaIVA, 0, len(in.Desglose))
		for _, l := range in.Desglose {
			desglose = append(desglose, entity.LineaIVA{Tipo: l.Tipo, Base: l.Base, Cuota: l.Cuota})
		}
		factura = &entity.RegistroFactura{
			ID:                uuid.New().String(),
			NIFEmisor:         in.NIFEmisor,
			NombreEmisor:      in.NombreEmisor,
			DireccionEmisor:   in.DireccionEmisor,
			NIFReceptor:       in.NIFReceptor,
			NombreReceptor:    in.NombreReceptor,
			DireccionReceptor: in.DireccionReceptor,
			Serie:             in.Serie,
			Ejercicio:         ejercicio,
			Numero:            numero,
			FechaExpedicion:   expedicion,
			FechaOperacion:    fechaOperacion,
			Descripcion:       in.Descripcion,
			BaseImponible:     in.BaseImponible,
			Desglose:          desglose,
			ImporteTotal:      in.ImporteTotal,
			IDSistema:         uc.cfg.IDSistema,
			VersionSoftware:   uc.cfg.VersionSoftware,
			HuellaAnterior:    huellaAnterior,
			CreadoEn:          now.UnixNano(),
			Estado:            entity.EstadoProvisional,
			EstadoEnvio:       entity.EnvioPendiente,
			Metadata:          in.Metadata,
			FechaAlta:         expedicion,
		}

		huella, err := rrsif.HuellaDeCampos(factura.PayloadCanonico(), huellaAnterior)
		if err != nil {
			return err
		}
		factura.Huella = huella
		factura.URLQR = rrsif.URLVerificacion(in.NIFEmisor, in.Serie, numero, expedicion, in.ImporteTotal)

		// Sin firma no hay registro: el error aborta la tx entera.
		firma, err := uc.firmador.Firmar(huella, expedicion, uc.cfg.IDSistema)
		if err != nil {
			return err
		}
		factura.Firma = firma

		if err := repos.Facturas.Append(ctx, factura); err != nil {
			return err
		}
		return repos.Secuencias.ActualizarCabeza(ctx, in.Serie, ejercicio, numero, huella)
	})
	if err != nil {
		return nil, err
	}

	detalle := fmt.Sprintf("factura %s-%d/%d emitida (id %s)", factura.Serie, factura.Numero, factura.Ejercicio, factura.ID)
	if _, errEv := uc.eventos.Registrar(ctx, entity.EventoGeneracionFactura, detalle, actor, map[string]string{
		"factura_id": factura.ID,
	}); errEv != nil {
		uc.log.Error().Err(errEv).Str("factura_id", factura.ID).Msg("registrar evento de generación")
	}
	return dto.NewFacturaResponse(factura), nil
}

// Obtener devuelve la proyección de un registro por ID.
func (uc *AltaFactura) Obtener(ctx context.Context, id string) (*dto.FacturaResponse, error) {
	f, err := uc.ObtenerEntidad(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewFacturaResponse(f), nil
}

// ObtenerEntidad devuelve la entidad completa; la usa la representación PDF.
func (uc *AltaFactura) ObtenerEntidad(ctx context.Context, id string) (*entity.RegistroFactura, error) {
	var factura *entity.RegistroFactura
	err := uc.tx.Run(ctx, func(repos RepositoriosTx) error {
		f, err := repos.Facturas.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if f == nil {
			return domain.ErrNotFound
		}
		factura = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return factura, nil
}

// validarAlta comprueba el payload lógico y devuelve la fecha de operación.
// El núcleo no recalcula el desglose; solo exige coherencia estructural.
func validarAlta(in dto.AltaFacturaRequest) (time.Time, error) {
	switch {
	case in.NIFEmisor == "", in.NombreEmisor == "":
		return time.Time{}, fmt.Errorf("%w: emisor incompleto", domain.ErrValidacion)
	case in.NIFReceptor == "", in.NombreReceptor == "":
		return time.Time{}, fmt.Errorf("%w: receptor incompleto", domain.ErrValidacion)
	case in.Serie == "":
		return time.Time{}, fmt.Errorf("%w: serie requerida", domain.ErrValidacion)
	case in.Descripcion == "":
		return time.Time{}, fmt.Errorf("%w: descripción requerida", domain.ErrValidacion)
	case in.BaseImponible.IsNegative(), in.ImporteTotal.IsNegative():
		return time.Time{}, fmt.Errorf("%w: importes negativos", domain.ErrValidacion)
	}
	for _, l := range in.Desglose {
		if l.Tipo.IsNegative() || l.Base.IsNegative() || l.Cuota.IsNegative() {
			return time.Time{}, fmt.Errorf("%w: desglose con valores negativos", domain.ErrValidacion)
		}
	}
	fecha, err := time.Parse("2006-01-02", in.FechaOperacion)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: fecha_operacion debe ser YYYY-MM-DD", domain.ErrValidacion)
	}
	return fecha, nil
}
