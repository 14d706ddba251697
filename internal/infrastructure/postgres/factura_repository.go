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

var _ repository.FacturaRepository = (*FacturaRepo)(nil)

// FacturaRepo implementación append-only de FacturaRepository (usable con pool o tx).
type FacturaRepo struct {
	q Querier
}

// NewFacturaRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFacturaRepository(q Querier) *FacturaRepo {
	return &FacturaRepo{q: q}
}

const facturaColumnas = `
	id, nif_emisor, nombre_emisor, direccion_emisor,
	nif_receptor, nombre_receptor, direccion_receptor,
	serie, ejercicio, numero, fecha_expedicion, fecha_operacion, descripcion,
	base_imponible, desglose, importe_total, id_sistema, version_software,
	huella, huella_anterior, creado_en, url_qr, firma,
	estado, estado_envio, finalizada_en, metadata, fecha_alta`

// Append inserta el registro de facturación. La fila no se actualiza jamás
// después: el payload hasheado quedó fijado aquí.
func (r *FacturaRepo) Append(ctx context.Context, f *entity.RegistroFactura) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	desglose, err := json.Marshal(f.Desglose)
	if err != nil {
		return fmt.Errorf("serializar desglose: %w", err)
	}
	metadata, err := json.Marshal(f.Metadata)
	if err != nil {
		return fmt.Errorf("serializar metadata: %w", err)
	}
	query := `
		INSERT INTO facturas (` + facturaColumnas + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)`
	_, err = r.q.Exec(ctx, query,
		f.ID, f.NIFEmisor, f.NombreEmisor, f.DireccionEmisor,
		f.NIFReceptor, f.NombreReceptor, f.DireccionReceptor,
		f.Serie, f.Ejercicio, f.Numero, f.FechaExpedicion, f.FechaOperacion, f.Descripcion,
		f.BaseImponible, desglose, f.ImporteTotal, f.IDSistema, f.VersionSoftware,
		f.Huella, nullIfEmpty(f.HuellaAnterior), f.CreadoEn, f.URLQR, f.Firma,
		f.Estado, f.EstadoEnvio, f.FinalizadaEn, metadata, f.FechaAlta,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: número %s-%d ya emitido en %d", domain.ErrAsignacion, f.Serie, f.Numero, f.Ejercicio)
		}
		return fmt.Errorf("%w: insert factura: %v", domain.ErrAlmacen, err)
	}
	return nil
}

// GetByID obtiene un registro por ID; nil si no existe.
func (r *FacturaRepo) GetByID(ctx context.Context, id string) (*entity.RegistroFactura, error) {
	query := `SELECT ` + facturaColumnas + ` FROM facturas WHERE id = $1`
	f, err := scanFactura(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get factura: %w", err)
	}
	return f, nil
}

// LeerCadena devuelve la cadena completa de (serie, ejercicio) en orden de append.
func (r *FacturaRepo) LeerCadena(ctx context.Context, serie string, ejercicio int) ([]*entity.RegistroFactura, error) {
	query := `SELECT ` + facturaColumnas + ` FROM facturas
		WHERE serie = $1 AND ejercicio = $2 ORDER BY numero`
	return r.leerLista(ctx, query, serie, ejercicio)
}

// ListarTodas devuelve todos los registros ordenados por serie, ejercicio y número.
func (r *FacturaRepo) ListarTodas(ctx context.Context) ([]*entity.RegistroFactura, error) {
	query := `SELECT ` + facturaColumnas + ` FROM facturas ORDER BY serie, ejercicio, numero`
	return r.leerLista(ctx, query)
}

// MaxNumero mayor número persistido en (serie, ejercicio); 0 si no hay filas.
func (r *FacturaRepo) MaxNumero(ctx context.Context, serie string, ejercicio int) (int64, error) {
	var max int64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(MAX(numero), 0) FROM facturas WHERE serie = $1 AND ejercicio = $2`,
		serie, ejercicio,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max numero: %w", err)
	}
	return max, nil
}

// Finalizar pasa provisional → definitiva sin tocar huella, firma ni payload.
func (r *FacturaRepo) Finalizar(ctx context.Context, id string, fecha time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE facturas SET estado = $2, finalizada_en = $3 WHERE id = $1 AND estado = $4`,
		id, entity.EstadoDefinitiva, fecha, entity.EstadoProvisional,
	)
	if err != nil {
		return false, fmt.Errorf("%w: finalizar factura: %v", domain.ErrAlmacen, err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarcarAnulada proyección de estado tras el append del registro de anulación.
func (r *FacturaRepo) MarcarAnulada(ctx context.Context, id string) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE facturas SET estado = $2 WHERE id = $1 AND estado = $3`,
		id, entity.EstadoAnulada, entity.EstadoDefinitiva,
	)
	if err != nil {
		return false, fmt.Errorf("%w: marcar anulada: %v", domain.ErrAlmacen, err)
	}
	return tag.RowsAffected() == 1, nil
}

// BorrarProvisional único DELETE sancionado en todo el subsistema.
func (r *FacturaRepo) BorrarProvisional(ctx context.Context, id string) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`DELETE FROM facturas WHERE id = $1 AND estado = $2`,
		id, entity.EstadoProvisional,
	)
	if err != nil {
		return false, fmt.Errorf("%w: borrar provisional: %v", domain.ErrAlmacen, err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarcarEnvio actualiza el estado de remisión de un lote de registros.
func (r *FacturaRepo) MarcarEnvio(ctx context.Context, ids []string, estado string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx,
		`UPDATE facturas SET estado_envio = $2 WHERE id = ANY($1)`,
		ids, estado,
	)
	if err != nil {
		return fmt.Errorf("marcar envío: %w", err)
	}
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (r *FacturaRepo) leerLista(ctx context.Context, query string, args ...any) ([]*entity.RegistroFactura, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listar facturas: %w", err)
	}
	defer rows.Close()
	var list []*entity.RegistroFactura
	for rows.Next() {
		f, err := scanFactura(rows)
		if err != nil {
			return nil, fmt.Errorf("scan factura: %w", err)
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

func scanFactura(row pgxScanner) (*entity.RegistroFactura, error) {
	var f entity.RegistroFactura
	var huellaAnterior *string
	var desglose, metadata []byte
	err := row.Scan(
		&f.ID, &f.NIFEmisor, &f.NombreEmisor, &f.DireccionEmisor,
		&f.NIFReceptor, &f.NombreReceptor, &f.DireccionReceptor,
		&f.Serie, &f.Ejercicio, &f.Numero, &f.FechaExpedicion, &f.FechaOperacion, &f.Descripcion,
		&f.BaseImponible, &desglose, &f.ImporteTotal, &f.IDSistema, &f.VersionSoftware,
		&f.Huella, &huellaAnterior, &f.CreadoEn, &f.URLQR, &f.Firma,
		&f.Estado, &f.EstadoEnvio, &f.FinalizadaEn, &metadata, &f.FechaAlta,
	)
	if err != nil {
		return nil, err
	}
	f.HuellaAnterior = derefStr(huellaAnterior)
	if len(desglose) > 0 {
		if err := json.Unmarshal(desglose, &f.Desglose); err != nil {
			return nil, fmt.Errorf("desglose ilegible: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &f.Metadata); err != nil {
			return nil, fmt.Errorf("metadata ilegible: %w", err)
		}
	}
	return &f, nil
}

// pgxScanner abstrae pgx.Row y pgx.Rows para reutilizar los scan.
type pgxScanner interface {
	Scan(dest ...any) error
}
