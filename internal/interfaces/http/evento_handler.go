package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/academiagest/registro-rrsif/internal/application/dto"
	"github.com/academiagest/registro-rrsif/internal/application/registro"
)

// EventoHandler expone el registro de eventos (protegido, solo lectura salvo
// el resumen bajo demanda).
type EventoHandler struct {
	eventos *registro.RegistroEventos
}

// NewEventoHandler construye el handler.
func NewEventoHandler(eventos *registro.RegistroEventos) *EventoHandler {
	return &EventoHandler{eventos: eventos}
}

// List devuelve los eventos en orden de append.
// GET /api/eventos?desde=RFC3339
func (h *EventoHandler) List(c *fiber.Ctx) error {
	var desde *time.Time
	if raw := c.Query("desde"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "desde debe ser RFC3339"})
		}
		desde = &t
	}
	eventos, err := h.eventos.Listar(c.Context(), desde)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]*dto.EventoResponse, 0, len(eventos))
	for _, e := range eventos {
		out = append(out, dto.NewEventoResponse(e))
	}
	return c.JSON(out)
}

// Resumen fuerza la emisión del resumen periódico sin esperar al scheduler.
// POST /api/eventos/resumen
func (h *EventoHandler) Resumen(c *fiber.Ctx) error {
	evento, err := h.eventos.EmitirResumen(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewEventoResponse(evento))
}
