package registro_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academiagest/registro-rrsif/internal/application/registro"
	"github.com/academiagest/registro-rrsif/internal/domain"
	"github.com/academiagest/registro-rrsif/internal/domain/entity"
	"github.com/academiagest/registro-rrsif/internal/domain/repository"
	"github.com/academiagest/registro-rrsif/internal/domain/rrsif"
)

// TestRegistrar_EncadenaEventos cada evento encadena con el anterior en la
// cadena global de eventos y la secuencia completa verifica.
func TestRegistrar_EncadenaEventos(t *testing.T) {
	a := nuevoArnes()
	ctx := context.Background()

	e1, err := a.eventos.Registrar(ctx, entity.EventoInicioOperacion, "arranque", "", nil)
	require.NoError(t, err)
	e2, err := a.eventos.Registrar(ctx, entity.EventoIncidencia, "algo pasó", "ana", nil)
	require.NoError(t, err)

	assert.Empty(t, e1.HuellaAnterior)
	assert.Equal(t, e1.Huella, e2.HuellaAnterior)
	assert.Equal(t, entity.ActorSistema, e1.Actor, "actor vacío se atribuye al sistema")
	assert.Equal(t, "ana", e2.Actor)

	eslabones := make([]rrsif.Eslabon, 0, len(a.st.eventos))
	for _, e := range a.st.eventos {
		eslabones = append(eslabones, rrsif.Eslabon{
			Payload:        e.PayloadCanonico(),
			Huella:         e.Huella,
			HuellaAnterior: e.HuellaAnterior,
		})
	}
	ok, indice, err := rrsif.VerificarCadena(eslabones)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -1, indice)
}

func TestRegistrar_TipoDesconocido(t *testing.T) {
	a := nuevoArnes()

	_, err := a.eventos.Registrar(context.Background(), "tipo_inventado", "x", "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidacion)
	assert.Empty(t, a.st.eventos)
}

// TestEmitirResumen el resumen agrega recuentos por tipo sobre la ventana,
// se encadena como un evento más y avanza el marcador durable.
func TestEmitirResumen(t *testing.T) {
	a := nuevoArnes()
	ctx := context.Background()

	_, err := a.eventos.Registrar(ctx, entity.EventoInicioOperacion, "arranque", "", nil)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = a.eventos.Registrar(ctx, entity.EventoGeneracionFactura, "alta", "ana", nil)
		require.NoError(t, err)
	}

	resumen, err := a.eventos.EmitirResumen(ctx)
	require.NoError(t, err)

	assert.Equal(t, entity.EventoResumenPeriodico, resumen.Tipo)
	assert.Equal(t, 1, resumen.Recuentos[entity.EventoInicioOperacion])
	assert.Equal(t, 3, resumen.Recuentos[entity.EventoGeneracionFactura])
	require.NotNil(t, resumen.VentanaDesde)
	require.NotNil(t, resumen.VentanaHasta)

	// El resumen encadena con el último evento ordinario.
	ultimo := a.st.eventos[len(a.st.eventos)-2]
	assert.Equal(t, ultimo.Huella, resumen.HuellaAnterior)

	// Marcador durable avanzado hasta el cierre de la ventana.
	marcador, ok := a.st.marcadores[repository.MarcadorUltimoResumen]
	require.True(t, ok)
	assert.Equal(t, resumen.VentanaHasta.UTC(), marcador.UTC())
}

// TestEmitirResumen_VentanasConsecutivas la segunda ventana arranca donde
// cerró la primera: un evento solo se cuenta en un resumen.
func TestEmitirResumen_VentanasConsecutivas(t *testing.T) {
	a := nuevoArnes()
	ctx := context.Background()

	_, err := a.eventos.Registrar(ctx, entity.EventoGeneracionFactura, "alta", "ana", nil)
	require.NoError(t, err)
	primero, err := a.eventos.EmitirResumen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, primero.Recuentos[entity.EventoGeneracionFactura])

	_, err = a.eventos.Registrar(ctx, entity.EventoIncidencia, "algo", "ana", nil)
	require.NoError(t, err)
	segundo, err := a.eventos.EmitirResumen(ctx)
	require.NoError(t, err)

	assert.Equal(t, primero.VentanaHasta.UTC(), segundo.VentanaDesde.UTC(),
		"la ventana nueva arranca en el marcador de la anterior")
	assert.Zero(t, segundo.Recuentos[entity.EventoGeneracionFactura],
		"el alta ya contada no reaparece")
	assert.Equal(t, 1, segundo.Recuentos[entity.EventoIncidencia])
	// El propio resumen anterior sí cae dentro de la segunda ventana.
	assert.Equal(t, 1, segundo.Recuentos[entity.EventoResumenPeriodico])
}

// TestEmitirResumen_SobreviveReinicio el marcador es durable: un scheduler
// nuevo sobre el mismo almacén continúa desde la ventana pendiente, sin
// duplicar recuentos.
func TestEmitirResumen_SobreviveReinicio(t *testing.T) {
	a := nuevoArnes()
	ctx := context.Background()

	_, err := a.eventos.Registrar(ctx, entity.EventoGeneracionFactura, "alta", "ana", nil)
	require.NoError(t, err)
	primero, err := a.eventos.EmitirResumen(ctx)
	require.NoError(t, err)

	// "Reinicio": instancia nueva del logger sobre el mismo almacén.
	reiniciado := registro.NewRegistroEventos(a.tx, a.cfg, a.log, 6*time.Hour)
	_, err = reiniciado.Registrar(ctx, entity.EventoApagadoReinicio, "reinicio", "", nil)
	require.NoError(t, err)
	segundo, err := reiniciado.EmitirResumen(ctx)
	require.NoError(t, err)

	assert.Equal(t, primero.VentanaHasta.UTC(), segundo.VentanaDesde.UTC(),
		"tras el reinicio se retoma desde el marcador persistido")
	assert.Zero(t, segundo.Recuentos[entity.EventoGeneracionFactura])
	assert.Equal(t, 1, segundo.Recuentos[entity.EventoApagadoReinicio])
}

// TestListar filtra por timestamp cuando se pide desde.
func TestListar(t *testing.T) {
	a := nuevoArnes()
	ctx := context.Background()

	_, err := a.eventos.Registrar(ctx, entity.EventoInicioOperacion, "arranque", "", nil)
	require.NoError(t, err)

	todos, err := a.eventos.Listar(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, todos, 1)

	futuro := time.Now().UTC().Add(time.Hour)
	vacio, err := a.eventos.Listar(ctx, &futuro)
	require.NoError(t, err)
	assert.Empty(t, vacio)
}

// TestListar_OrdenDeAppend el orden de lectura es el del encadenado, no el de
// los timestamps: dos escritores concurrentes pueden encadenar en orden
// inverso al de sus relojes y la cadena tiene que seguir verificando.
func TestListar_OrdenDeAppend(t *testing.T) {
	a := nuevoArnes()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// El primer eslabón lleva el timestamp más tardío.
	instantes := []time.Time{base.Add(2 * time.Second), base}
	ids := make([]string, 0, len(instantes))
	err := a.tx.Run(ctx, func(repos registro.RepositoriosTx) error {
		for i, ts := range instantes {
			cabeza, err := repos.Cadenas.CabezaConBloqueo(ctx, entity.CadenaEventos)
			if err != nil {
				return err
			}
			evento := &entity.EventoSistema{
				ID:        fmt.Sprintf("ev-%d", i),
				Tipo:      entity.EventoIncidencia,
				Timestamp: ts,
				Actor:     entity.ActorSistema,
				Detalle:   "escritores concurrentes",
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
			ids = append(ids, evento.ID)
		}
		return nil
	})
	require.NoError(t, err)

	todos, err := a.eventos.Listar(ctx, nil)
	require.NoError(t, err)
	require.Len(t, todos, 2)
	assert.Equal(t, ids[0], todos[0].ID,
		"primero el primer eslabón aunque su timestamp sea posterior")
	assert.True(t, todos[0].Timestamp.After(todos[1].Timestamp))

	out, err := nuevaVerificacion(a).VerificarEventos(ctx)
	require.NoError(t, err)
	assert.True(t, out.Valida)
	assert.Equal(t, -1, out.IndiceRoto)
}
