package registro_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academiagest/registro-rrsif/internal/application/dto"
	"github.com/academiagest/registro-rrsif/internal/domain"
	"github.com/academiagest/registro-rrsif/internal/domain/entity"
	"github.com/academiagest/registro-rrsif/internal/domain/rrsif"
)

// TestFinalizar la transición provisional → definitiva no altera huella,
// firma ni payload: solo la proyección de estado.
func TestFinalizar(t *testing.T) {
	a := nuevoArnes()
	ctx := context.Background()

	creada, err := a.alta.Crear(ctx, "ana", altaValida())
	require.NoError(t, err)

	final, err := a.ciclo.Finalizar(ctx, "ana", creada.ID)
	require.NoError(t, err)

	assert.Equal(t, entity.EstadoDefinitiva, final.Estado)
	assert.Equal(t, creada.Huella, final.Huella, "finalizar no puede tocar la huella")
	assert.Equal(t, creada.Firma, final.Firma, "finalizar no puede tocar la firma")
	assert.Equal(t, creada.Numero, final.Numero)

	require.Len(t, a.eventosDeTipo(entity.EventoFinOperacion), 1)
}

func TestFinalizar_DosVeces(t *testing.T) {
	a := nuevoArnes()
	ctx := context.Background()

	creada, err := a.alta.Crear(ctx, "ana", altaValida())
	require.NoError(t, err)
	_, err = a.ciclo.Finalizar(ctx, "ana", creada.ID)
	require.NoError(t, err)

	_, err = a.ciclo.Finalizar(ctx, "ana", creada.ID)
	assert.ErrorIs(t, err, domain.ErrTransicionInvalida)
}

func TestFinalizar_NoExiste(t *testing.T) {
	a := nuevoArnes()
	_, err := a.ciclo.Finalizar(context.Background(), "ana", "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestBorrarProvisional el borrado de la cabeza rebobina la huella de la
// cadena pero no el contador: el siguiente alta toma un número nuevo y
// encadena con el registro anterior al borrado.
func TestBorrarProvisional(t *testing.T) {
	a := nuevoArnes()
	ctx := context.Background()

	primera, err := a.alta.Crear(ctx, "ana", altaValida())
	require.NoError(t, err)
	segunda, err := a.alta.Crear(ctx, "ana", altaValida())
	require.NoError(t, err)

	err = a.ciclo.BorrarProvisional(ctx, "ana", segunda.ID)
	require.NoError(t, err)

	_, err = a.alta.Obtener(ctx, segunda.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "la provisional borrada desaparece del almacén")

	// El número 2 queda quemado: la siguiente factura es la 3 y encadena
	// con la huella de la primera.
	tercera, err := a.alta.Crear(ctx, "ana", altaValida())
	require.NoError(t, err)
	assert.Equal(t, int64(3), tercera.Numero, "un número asignado jamás se reutiliza")
	assert.Equal(t, primera.Huella, tercera.HuellaAnterior)

	// La cadena restante sigue verificando pese al hueco de numeración.
	ok, indice, err := rrsif.VerificarCadena(eslabonesDeFacturas(t, a, "A"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -1, indice)

	// El borrado queda anotado como incidencia.
	require.Len(t, a.eventosDeTipo(entity.EventoIncidencia), 1)
}

// TestBorrarProvisional_SoloLaCabeza una provisional que ya no es cabeza de
// cadena no puede borrarse: hay registros posteriores encadenados a ella.
func TestBorrarProvisional_SoloLaCabeza(t *testing.T) {
	a := nuevoArnes()
	ctx := context.Background()

	primera, err := a.alta.Crear(ctx, "ana", altaValida())
	require.NoError(t, err)
	_, err = a.alta.Crear(ctx, "ana", altaValida())
	require.NoError(t, err)

	err = a.ciclo.BorrarProvisional(ctx, "ana", primera.ID)
	assert.ErrorIs(t, err, domain.ErrTransicionInvalida)
	require.Len(t, a.st.facturas, 2, "nada se borra")
}

func TestBorrarProvisional_DefinitivaNoSeBorra(t *testing.T) {
	a := nuevoArnes()
	ctx := context.Background()

	creada, err := a.alta.Crear(ctx, "ana", altaValida())
	require.NoError(t, err)
	_, err = a.ciclo.Finalizar(ctx, "ana", creada.ID)
	require.NoError(t, err)

	err = a.ciclo.BorrarProvisional(ctx, "ana", creada.ID)
	assert.ErrorIs(t, err, domain.ErrTransicionInvalida)
	require.Len(t, a.st.facturas, 1)
}

// TestAnular la anulación crea un registro encadenado y firmado; la factura
// original conserva huella, firma y payload intactos y solo cambia su
// proyección de estado.
func TestAnular(t *testing.T) {
	a := nuevoArnes()
	ctx := context.Background()

	creada, err := a.alta.Crear(ctx, "ana", altaValida())
	require.NoError(t, err)
	_, err = a.ciclo.Finalizar(ctx, "ana", creada.ID)
	require.NoError(t, err)

	anulacion, err := a.ciclo.Anular(ctx, "ana", creada.ID, dto.AnulacionRequest{Motivo: "duplicada"})
	require.NoError(t, err)

	assert.Equal(t, creada.ID, anulacion.FacturaID)
	assert.Equal(t, "duplicada", anulacion.Motivo)
	assert.Empty(t, anulacion.HuellaAnterior, "primera anulación de la cadena global")
	assert.NotEmpty(t, anulacion.Huella)
	assert.NotEmpty(t, anulacion.Firma)

	// La factura original no se toca byte a byte.
	tras, err := a.alta.ObtenerEntidad(ctx, creada.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoAnulada, tras.Estado)
	assert.Equal(t, creada.Huella, tras.Huella)
	assert.Equal(t, creada.Firma, tras.Firma)

	// Su cadena sigue verificando: la anulación no la altera.
	ok, indice, err := rrsif.VerificarCadena(eslabonesDeFacturas(t, a, "A"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -1, indice)

	require.Len(t, a.eventosDeTipo(entity.EventoAnulacionFactura), 1)
}

// TestAnular_CadenaPropia dos anulaciones consecutivas se encadenan entre sí.
func TestAnular_CadenaPropia(t *testing.T) {
	a := nuevoArnes()
	ctx := context.Background()

	var anulaciones []*dto.AnulacionResponse
	for i := 0; i < 2; i++ {
		creada, err := a.alta.Crear(ctx, "ana", altaValida())
		require.NoError(t, err)
		_, err = a.ciclo.Finalizar(ctx, "ana", creada.ID)
		require.NoError(t, err)
		an, err := a.ciclo.Anular(ctx, "ana", creada.ID, dto.AnulacionRequest{Motivo: "error de cliente"})
		require.NoError(t, err)
		anulaciones = append(anulaciones, an)
	}

	assert.Empty(t, anulaciones[0].HuellaAnterior)
	assert.Equal(t, anulaciones[0].Huella, anulaciones[1].HuellaAnterior)
}

func TestAnular_TransicionesInvalidas(t *testing.T) {
	a := nuevoArnes()
	ctx := context.Background()

	provisional, err := a.alta.Crear(ctx, "ana", altaValida())
	require.NoError(t, err)

	// Provisional: no se anula, se borra.
	_, err = a.ciclo.Anular(ctx, "ana", provisional.ID, dto.AnulacionRequest{Motivo: "x"})
	assert.ErrorIs(t, err, domain.ErrTransicionInvalida)

	// Definitiva anulada dos veces.
	_, err = a.ciclo.Finalizar(ctx, "ana", provisional.ID)
	require.NoError(t, err)
	_, err = a.ciclo.Anular(ctx, "ana", provisional.ID, dto.AnulacionRequest{Motivo: "x"})
	require.NoError(t, err)
	_, err = a.ciclo.Anular(ctx, "ana", provisional.ID, dto.AnulacionRequest{Motivo: "x"})
	assert.ErrorIs(t, err, domain.ErrTransicionInvalida)

	// Sin motivo.
	_, err = a.ciclo.Anular(ctx, "ana", provisional.ID, dto.AnulacionRequest{})
	assert.ErrorIs(t, err, domain.ErrValidacion)

	// Inexistente.
	_, err = a.ciclo.Anular(ctx, "ana", "no-existe", dto.AnulacionRequest{Motivo: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
