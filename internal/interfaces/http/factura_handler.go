package http

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/academiagest/registro-rrsif/internal/application/dto"
	"github.com/academiagest/registro-rrsif/internal/application/registro"
	"github.com/academiagest/registro-rrsif/internal/domain"
	"github.com/academiagest/registro-rrsif/internal/domain/entity"
)

// FacturaPDFGenerator genera la representación gráfica de un registro.
type FacturaPDFGenerator interface {
	GenerarFacturaPDF(ctx context.Context, factura *entity.RegistroFactura) ([]byte, error)
}

// FacturaHandler maneja alta, consulta y ciclo de vida de los registros de
// facturación (protegido).
type FacturaHandler struct {
	alta  *registro.AltaFactura
	ciclo *registro.CicloVida
	pdf   FacturaPDFGenerator
}

// NewFacturaHandler construye el handler.
func NewFacturaHandler(alta *registro.AltaFactura, ciclo *registro.CicloVida, pdf FacturaPDFGenerator) *FacturaHandler {
	return &FacturaHandler{alta: alta, ciclo: ciclo, pdf: pdf}
}

// Create emite una factura en estado provisional.
// POST /api/facturas
func (h *FacturaHandler) Create(c *fiber.Ctx) error {
	actor := GetNombre(c)
	if GetOperadorID(c) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.AltaFacturaRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	factura, err := h.alta.Crear(c.Context(), actor, in)
	if err != nil {
		return facturaError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(factura)
}

// GetByID obtiene un registro de facturación.
// GET /api/facturas/:id
func (h *FacturaHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	factura, err := h.alta.Obtener(c.Context(), id)
	if err != nil {
		return facturaError(c, err)
	}
	return c.JSON(factura)
}

// Finalizar consolida una factura provisional como definitiva.
// POST /api/facturas/:id/finalizar
func (h *FacturaHandler) Finalizar(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	factura, err := h.ciclo.Finalizar(c.Context(), GetNombre(c), id)
	if err != nil {
		return facturaError(c, err)
	}
	return c.JSON(factura)
}

// Delete borra una factura aún provisional (el número asignado no se reutiliza).
// DELETE /api/facturas/:id
func (h *FacturaHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	if err := h.ciclo.BorrarProvisional(c.Context(), GetNombre(c), id); err != nil {
		return facturaError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Anular crea el registro de anulación de una factura definitiva.
// POST /api/facturas/:id/anular
func (h *FacturaHandler) Anular(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	var in dto.AnulacionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	anulacion, err := h.ciclo.Anular(c.Context(), GetNombre(c), id, in)
	if err != nil {
		return facturaError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(anulacion)
}

// PDF devuelve la representación gráfica con el QR tributario.
// GET /api/facturas/:id/pdf
func (h *FacturaHandler) PDF(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	factura, err := h.alta.ObtenerEntidad(c.Context(), id)
	if err != nil {
		return facturaError(c, err)
	}
	datos, err := h.pdf.GenerarFacturaPDF(c.Context(), factura)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", fmt.Sprintf("inline; filename=%s-%d.pdf", factura.Serie, factura.Numero))
	return c.Send(datos)
}

// facturaError mapea los errores de dominio a códigos HTTP.
func facturaError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidacion):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "factura no encontrada"})
	case errors.Is(err, domain.ErrTransicionInvalida):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_TRANSITION", Message: err.Error()})
	case errors.Is(err, domain.ErrDerivaReloj):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "CLOCK_DRIFT", Message: err.Error()})
	case errors.Is(err, domain.ErrAsignacion):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "SEQUENCE", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
