package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/academiagest/registro-rrsif/internal/domain"
	"github.com/academiagest/registro-rrsif/internal/domain/entity"
	"github.com/academiagest/registro-rrsif/internal/domain/repository"
)

var _ repository.EventoRepository = (*EventoRepo)(nil)

// EventoRepo implementación append-only de EventoRepository más el marcador
// durable del scheduler de resúmenes. Las lecturas ordenan por posicion, la
// identidad asignada en el INSERT con el bloqueo de la cadena ya tomado:
// fecha_alta (now()) es el inicio de la transacción y con escritores
// concurrentes puede desordenarse frente al encadenado real.
type EventoRepo struct {
	q Querier
}

// NewEventoRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEventoRepository(q Querier) *EventoRepo {
	return &EventoRepo{q: q}
}

const eventoColumnas = `
	id, tipo, ts, actor, detalle, huella, huella_anterior,
	metadata, recuentos, ventana_desde, ventana_hasta, fecha_alta`

// Append inserta el evento; la fila no se toca jamás después.
func (r *EventoRepo) Append(ctx context.Context, e *entity.EventoSistema) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("serializar metadata: %w", err)
	}
	var recuentos []byte
	if e.Recuentos != nil {
		recuentos, err = json.Marshal(e.Recuentos)
		if err != nil {
			return fmt.Errorf("serializar recuentos: %w", err)
		}
	}
	query := `
		INSERT INTO eventos (` + eventoColumnas + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())`
	_, err = r.q.Exec(ctx, query,
		e.ID, e.Tipo, e.Timestamp, e.Actor, e.Detalle, e.Huella, nullIfEmpty(e.HuellaAnterior),
		metadata, recuentos, e.VentanaDesde, e.VentanaHasta,
	)
	if err != nil {
		return fmt.Errorf("%w: insert evento: %v", domain.ErrAlmacen, err)
	}
	return nil
}

// LeerDesde eventos con ts >= desde, en orden de append.
func (r *EventoRepo) LeerDesde(ctx context.Context, desde time.Time) ([]*entity.EventoSistema, error) {
	query := `SELECT ` + eventoColumnas + ` FROM eventos WHERE ts >= $1 ORDER BY posicion`
	return r.leerLista(ctx, query, desde)
}

// LeerEntre eventos con desde <= ts < hasta, en orden de append.
func (r *EventoRepo) LeerEntre(ctx context.Context, desde, hasta time.Time) ([]*entity.EventoSistema, error) {
	query := `SELECT ` + eventoColumnas + ` FROM eventos WHERE ts >= $1 AND ts < $2 ORDER BY posicion`
	return r.leerLista(ctx, query, desde, hasta)
}

// ListarTodos cadena completa de eventos en orden de append.
func (r *EventoRepo) ListarTodos(ctx context.Context) ([]*entity.EventoSistema, error) {
	query := `SELECT ` + eventoColumnas + ` FROM eventos ORDER BY posicion`
	return r.leerLista(ctx, query)
}

// ObtenerMarcador devuelve el instante guardado bajo nombre; nil si no hay.
func (r *EventoRepo) ObtenerMarcador(ctx context.Context, nombre string) (*time.Time, error) {
	var t time.Time
	err := r.q.QueryRow(ctx, `SELECT instante FROM marcadores WHERE nombre = $1`, nombre).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get marcador: %w", err)
	}
	return &t, nil
}

// GuardarMarcador upsert del marcador durable del scheduler.
func (r *EventoRepo) GuardarMarcador(ctx context.Context, nombre string, t time.Time) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO marcadores (nombre, instante, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (nombre) DO UPDATE SET instante = EXCLUDED.instante, updated_at = now()`,
		nombre, t,
	)
	if err != nil {
		return fmt.Errorf("guardar marcador: %w", err)
	}
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (r *EventoRepo) leerLista(ctx context.Context, query string, args ...any) ([]*entity.EventoSistema, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listar eventos: %w", err)
	}
	defer rows.Close()
	var list []*entity.EventoSistema
	for rows.Next() {
		e, err := scanEvento(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evento: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func scanEvento(row pgxScanner) (*entity.EventoSistema, error) {
	var e entity.EventoSistema
	var huellaAnterior *string
	var metadata, recuentos []byte
	var fechaAlta time.Time
	err := row.Scan(
		&e.ID, &e.Tipo, &e.Timestamp, &e.Actor, &e.Detalle, &e.Huella, &huellaAnterior,
		&metadata, &recuentos, &e.VentanaDesde, &e.VentanaHasta, &fechaAlta,
	)
	if err != nil {
		return nil, err
	}
	e.HuellaAnterior = derefStr(huellaAnterior)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("metadata ilegible: %w", err)
		}
	}
	if len(recuentos) > 0 {
		if err := json.Unmarshal(recuentos, &e.Recuentos); err != nil {
			return nil, fmt.Errorf("recuentos ilegibles: %w", err)
		}
	}
	return &e, nil
}
