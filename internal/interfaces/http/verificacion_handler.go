package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/academiagest/registro-rrsif/internal/application/dto"
	"github.com/academiagest/registro-rrsif/internal/application/registro"
)

// VerificacionHandler recorre las cadenas de huellas y reporta su estado
// (protegido).
type VerificacionHandler struct {
	uc *registro.Verificacion
}

// NewVerificacionHandler construye el handler.
func NewVerificacionHandler(uc *registro.Verificacion) *VerificacionHandler {
	return &VerificacionHandler{uc: uc}
}

// Facturas verifica la cadena de una serie y ejercicio.
// GET /api/verificacion/facturas?serie=A&ejercicio=2026
func (h *VerificacionHandler) Facturas(c *fiber.Ctx) error {
	serie := c.Query("serie")
	if serie == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "serie requerida"})
	}
	ejercicio, err := strconv.Atoi(c.Query("ejercicio"))
	if err != nil || ejercicio <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "ejercicio inválido"})
	}
	out, err := h.uc.VerificarFacturas(c.Context(), serie, ejercicio)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(out)
}

// Anulaciones verifica la cadena global de anulaciones.
// GET /api/verificacion/anulaciones
func (h *VerificacionHandler) Anulaciones(c *fiber.Ctx) error {
	out, err := h.uc.VerificarAnulaciones(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(out)
}

// Eventos verifica la cadena del registro de eventos.
// GET /api/verificacion/eventos
func (h *VerificacionHandler) Eventos(c *fiber.Ctx) error {
	out, err := h.uc.VerificarEventos(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(out)
}
