package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/academiagest/registro-rrsif/internal/application/registro"
)

// RelojHandler expone el estado de sincronización del reloj local (protegido).
type RelojHandler struct {
	verificador registro.VerificadorReloj
}

// NewRelojHandler construye el handler.
func NewRelojHandler(verificador registro.VerificadorReloj) *RelojHandler {
	return &RelojHandler{verificador: verificador}
}

// Estado devuelve la última comprobación de deriva (cacheada).
// GET /api/reloj
func (h *RelojHandler) Estado(c *fiber.Ctx) error {
	return c.JSON(h.verificador.ComprobarDeriva(c.Context()))
}
